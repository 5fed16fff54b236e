package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/obetrack/attainment-api/internal/models"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
)

type courseStore interface {
	Create(ctx context.Context, course *models.Course) error
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	ResolveRef(ctx context.Context, ref string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
	ReplaceSectionTeachers(ctx context.Context, courseID string, teachers []models.SectionTeacher) error
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateCourseRequest creates a course.
type CreateCourseRequest struct {
	Code         string  `json:"code" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Semester     *int    `json:"semester" validate:"omitempty,min=1,max=12"`
	AcademicYear *string `json:"academic_year"`
}

// SectionTeacherInput is one section-to-teacher assignment.
type SectionTeacherInput struct {
	Section   string `json:"section" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

// AssignTeachersRequest replaces the full section assignment set of a course.
type AssignTeachersRequest struct {
	Assignments []SectionTeacherInput `json:"assignments" validate:"required,dive"`
}

// CourseService manages courses and their teacher assignments.
type CourseService struct {
	courses   courseStore
	users     teacherLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseStore, users teacherLookup, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, users: users, validator: validate, logger: logger}
}

// Create registers a new course. Course codes are unique.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if _, err := s.courses.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	course := &models.Course{
		Code:         req.Code,
		Name:         req.Name,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// List returns all courses.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get resolves a course by id or code.
func (s *CourseService) Get(ctx context.Context, ref string) (*models.Course, error) {
	course, err := s.courses.ResolveRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course")
	}
	return course, nil
}

// AssignTeachers replaces the section assignments of a course. Every
// referenced user must exist and hold the teacher role; duplicate sections
// are rejected.
func (s *CourseService) AssignTeachers(ctx context.Context, courseRef string, req AssignTeachersRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	course, err := s.Get(ctx, courseRef)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(req.Assignments))
	teachers := make([]models.SectionTeacher, 0, len(req.Assignments))
	for _, assignment := range req.Assignments {
		if seen[assignment.Section] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate section in assignments")
		}
		seen[assignment.Section] = true
		user, err := s.users.FindByID(ctx, assignment.TeacherID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "assigned teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		if user.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assigned user is not a teacher")
		}
		teachers = append(teachers, models.SectionTeacher{Section: assignment.Section, TeacherID: assignment.TeacherID})
	}
	if err := s.courses.ReplaceSectionTeachers(ctx, course.ID, teachers); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teachers")
	}
	return s.Get(ctx, course.ID)
}
