package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obetrack/attainment-api/internal/models"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
)

type fakeCourseResolver struct {
	courses []models.Course
}

func (f *fakeCourseResolver) ResolveRef(ctx context.Context, ref string) (*models.Course, error) {
	for i := range f.courses {
		if f.courses[i].ID == ref || f.courses[i].Code == ref {
			return &f.courses[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCourseResolver) ListByTeacher(ctx context.Context, teacherID string) ([]models.Course, error) {
	var result []models.Course
	for _, course := range f.courses {
		owned := false
		for _, st := range course.SectionTeachers {
			if st.TeacherID == teacherID {
				owned = true
			}
		}
		if course.AssignedTeacherID != nil && *course.AssignedTeacherID == teacherID {
			owned = true
		}
		if owned {
			result = append(result, course)
		}
	}
	return result, nil
}

func accessCourse(assignments ...models.SectionTeacher) *models.Course {
	return &models.Course{ID: "course-1", Code: "CSE501", Name: "Software Engineering", SectionTeachers: assignments}
}

func TestScopeForCourseAdmin(t *testing.T) {
	svc := NewAccessService(&fakeCourseResolver{}, nil)
	course := accessCourse()

	scope, err := svc.ScopeForCourse(course, models.RoleAdmin, "admin-1", "")
	require.NoError(t, err)
	assert.Nil(t, scope.Section)

	scope, err = svc.ScopeForCourse(course, models.RoleAdmin, "admin-1", "all")
	require.NoError(t, err)
	assert.Nil(t, scope.Section)

	scope, err = svc.ScopeForCourse(course, models.RoleAdmin, "admin-1", "B")
	require.NoError(t, err)
	require.NotNil(t, scope.Section)
	assert.Equal(t, "B", *scope.Section)
}

func TestScopeForCourseSingleSectionAutoSelects(t *testing.T) {
	svc := NewAccessService(&fakeCourseResolver{}, nil)
	course := accessCourse(models.SectionTeacher{Section: "A", TeacherID: "t1"})

	scope, err := svc.ScopeForCourse(course, models.RoleTeacher, "t1", "")
	require.NoError(t, err)
	require.NotNil(t, scope.Section)
	assert.Equal(t, "A", *scope.Section)

	// Matching is case insensitive.
	scope, err = svc.ScopeForCourse(course, models.RoleTeacher, "t1", "a")
	require.NoError(t, err)
	require.NotNil(t, scope.Section)
	assert.Equal(t, "A", *scope.Section)

	_, err = svc.ScopeForCourse(course, models.RoleTeacher, "t1", "B")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScopeForCourseMultiSectionRequiresSection(t *testing.T) {
	svc := NewAccessService(&fakeCourseResolver{}, nil)
	course := accessCourse(
		models.SectionTeacher{Section: "A", TeacherID: "t1"},
		models.SectionTeacher{Section: "B", TeacherID: "t1"},
	)

	_, err := svc.ScopeForCourse(course, models.RoleTeacher, "t1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSectionRequired.Code, appErrors.FromError(err).Code)

	scope, err := svc.ScopeForCourse(course, models.RoleTeacher, "t1", "b")
	require.NoError(t, err)
	require.NotNil(t, scope.Section)
	assert.Equal(t, "B", *scope.Section)

	_, err = svc.ScopeForCourse(course, models.RoleTeacher, "t1", "C")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScopeForCourseLegacyAssignment(t *testing.T) {
	svc := NewAccessService(&fakeCourseResolver{}, nil)
	teacherID := "t1"
	course := accessCourse()
	course.AssignedTeacherID = &teacherID

	_, err := svc.ScopeForCourse(course, models.RoleTeacher, "t1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSectionRequired.Code, appErrors.FromError(err).Code)

	scope, err := svc.ScopeForCourse(course, models.RoleTeacher, "t1", "A")
	require.NoError(t, err)
	require.NotNil(t, scope.Section)
	assert.Equal(t, "A", *scope.Section)
}

func TestScopeForCourseUnassignedTeacher(t *testing.T) {
	svc := NewAccessService(&fakeCourseResolver{}, nil)
	course := accessCourse(models.SectionTeacher{Section: "A", TeacherID: "other"})

	_, err := svc.ScopeForCourse(course, models.RoleTeacher, "t1", "A")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestResolveScopeUnknownCourse(t *testing.T) {
	svc := NewAccessService(&fakeCourseResolver{}, nil)

	_, err := svc.ResolveScope(context.Background(), models.RoleAdmin, "admin-1", "NOPE", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveScopeByCode(t *testing.T) {
	resolver := &fakeCourseResolver{courses: []models.Course{
		{ID: "course-1", Code: "CSE501", SectionTeachers: []models.SectionTeacher{{Section: "A", TeacherID: "t1"}}},
	}}
	svc := NewAccessService(resolver, nil)

	scope, err := svc.ResolveScope(context.Background(), models.RoleTeacher, "t1", "CSE501", "")
	require.NoError(t, err)
	assert.Equal(t, "course-1", scope.Course.ID)
	require.NotNil(t, scope.Section)
	assert.Equal(t, "A", *scope.Section)
}

func TestAuthorizeCourse(t *testing.T) {
	svc := NewAccessService(&fakeCourseResolver{}, nil)
	course := accessCourse(
		models.SectionTeacher{Section: "A", TeacherID: "t1"},
		models.SectionTeacher{Section: "B", TeacherID: "t1"},
	)

	// Course-level access never demands a section, even for multi-section
	// teachers.
	assert.NoError(t, svc.AuthorizeCourse(course, models.RoleTeacher, "t1"))
	assert.NoError(t, svc.AuthorizeCourse(course, models.RoleAdmin, "admin-1"))

	err := svc.AuthorizeCourse(course, models.RoleTeacher, "t2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignedCourses(t *testing.T) {
	legacyTeacher := "t1"
	resolver := &fakeCourseResolver{courses: []models.Course{
		{
			ID: "course-1", Code: "CSE501", Name: "Software Engineering",
			SectionTeachers: []models.SectionTeacher{
				{Section: "A", TeacherID: "t1"},
				{Section: "B", TeacherID: "t2"},
			},
		},
		{ID: "course-2", Code: "CSE502", Name: "Compilers", AssignedTeacherID: &legacyTeacher},
	}}
	svc := NewAccessService(resolver, nil)

	assigned, err := svc.AssignedCourses(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, assigned, 2)

	assert.Equal(t, "CSE501", assigned[0].Code)
	assert.Equal(t, []string{"A"}, assigned[0].Sections)
	assert.False(t, assigned[0].Legacy)

	assert.Equal(t, "CSE502", assigned[1].Code)
	assert.Empty(t, assigned[1].Sections)
	assert.True(t, assigned[1].Legacy)
}
