package service

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/obetrack/attainment-api/internal/models"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
)

type courseResolver interface {
	ResolveRef(ctx context.Context, ref string) (*models.Course, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Course, error)
}

// CourseScope is the outcome of resolving a course reference together with
// the section the caller is allowed to operate on. A nil Section means the
// caller operates across all sections.
type CourseScope struct {
	Course  *models.Course
	Section *string
}

// AccessService resolves course references and enforces section-level
// authorization for teachers.
type AccessService struct {
	courses courseResolver
	logger  *zap.Logger
}

// NewAccessService constructs AccessService.
func NewAccessService(courses courseResolver, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{courses: courses, logger: logger}
}

// ResolveScope resolves a course reference (id or code) and decides which
// section the caller may act on.
func (s *AccessService) ResolveScope(ctx context.Context, role models.UserRole, userID, courseRef, requestedSection string) (*CourseScope, error) {
	course, err := s.resolveRef(ctx, courseRef)
	if err != nil {
		return nil, err
	}
	return s.ScopeForCourse(course, role, userID, requestedSection)
}

// ScopeForCourse decides which section the caller may act on for an already
// loaded course.
//
// Admins pass through: the requested section is taken verbatim, with "all"
// or an empty value meaning every section.
//
// Teachers are bound to their assignments. A teacher with exactly one
// section gets it auto-selected when no section is requested. A teacher
// with several sections, or one holding only the legacy whole-course
// assignment, must name a section explicitly. A requested section outside
// the teacher's assignments is rejected, as is a teacher with no
// assignment at all.
func (s *AccessService) ScopeForCourse(course *models.Course, role models.UserRole, userID, requestedSection string) (*CourseScope, error) {
	requested := strings.TrimSpace(requestedSection)
	if role == models.RoleAdmin {
		if requested == "" || strings.EqualFold(requested, "all") {
			return &CourseScope{Course: course}, nil
		}
		section := requested
		return &CourseScope{Course: course, Section: &section}, nil
	}
	if role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
	}
	owned := ownedSections(course, userID)
	legacy := course.AssignedTeacherID != nil && *course.AssignedTeacherID == userID
	switch {
	case len(owned) == 1:
		if requested == "" || strings.EqualFold(requested, owned[0]) {
			section := owned[0]
			return &CourseScope{Course: course, Section: &section}, nil
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not assigned to this section")
	case len(owned) > 1:
		if requested == "" {
			return nil, appErrors.Clone(appErrors.ErrSectionRequired, "")
		}
		for _, section := range owned {
			if strings.EqualFold(requested, section) {
				matched := section
				return &CourseScope{Course: course, Section: &matched}, nil
			}
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not assigned to this section")
	case legacy:
		// Legacy whole-course assignments carry no section list, so the
		// caller has to say which one they mean.
		if requested == "" {
			return nil, appErrors.Clone(appErrors.ErrSectionRequired, "")
		}
		section := requested
		return &CourseScope{Course: course, Section: &section}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not assigned to this course")
	}
}

// ResolveCourse resolves a course reference and verifies the caller may
// operate on it at course level, without binding to a section. Exam and
// question management is course-level work.
func (s *AccessService) ResolveCourse(ctx context.Context, role models.UserRole, userID, courseRef string) (*models.Course, error) {
	course, err := s.resolveRef(ctx, courseRef)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeCourse(course, role, userID); err != nil {
		return nil, err
	}
	return course, nil
}

// AuthorizeCourse verifies course-level access for an already loaded course.
func (s *AccessService) AuthorizeCourse(course *models.Course, role models.UserRole, userID string) error {
	if role == models.RoleAdmin {
		return nil
	}
	if role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
	}
	if len(ownedSections(course, userID)) > 0 {
		return nil
	}
	if course.AssignedTeacherID != nil && *course.AssignedTeacherID == userID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not assigned to this course")
}

// AssignedCourses lists the courses a teacher is assigned to, restricted to
// the sections they own. Legacy assignments surface with an empty section
// list and the legacy flag set.
func (s *AccessService) AssignedCourses(ctx context.Context, teacherID string) ([]models.AssignedCourse, error) {
	courses, err := s.courses.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned courses")
	}
	assigned := make([]models.AssignedCourse, 0, len(courses))
	for _, course := range courses {
		sections := ownedSections(&course, teacherID)
		legacy := len(sections) == 0 && course.AssignedTeacherID != nil && *course.AssignedTeacherID == teacherID
		if len(sections) == 0 && !legacy {
			continue
		}
		assigned = append(assigned, models.AssignedCourse{
			ID:           course.ID,
			Code:         course.Code,
			Name:         course.Name,
			Semester:     course.Semester,
			AcademicYear: course.AcademicYear,
			Sections:     sections,
			Legacy:       legacy,
		})
	}
	return assigned, nil
}

func (s *AccessService) resolveRef(ctx context.Context, courseRef string) (*models.Course, error) {
	course, err := s.courses.ResolveRef(ctx, courseRef)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course")
	}
	return course, nil
}

func ownedSections(course *models.Course, teacherID string) []string {
	var sections []string
	for _, st := range course.SectionTeachers {
		if st.TeacherID == teacherID {
			sections = append(sections, st.Section)
		}
	}
	return sections
}
