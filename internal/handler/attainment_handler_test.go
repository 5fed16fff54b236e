package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obetrack/attainment-api/internal/middleware"
	"github.com/obetrack/attainment-api/internal/models"
	"github.com/obetrack/attainment-api/internal/service"
)

type stubAttainmentDeps struct {
	course *models.Course
}

func (s *stubAttainmentDeps) FindByID(context.Context, string) (*models.Course, error) {
	return s.course, nil
}

func (s *stubAttainmentDeps) ListByCourseAndTypes(context.Context, string, []models.ExamType) ([]models.Exam, error) {
	return nil, nil
}

func (s *stubAttainmentDeps) ListByExam(context.Context, string) ([]models.Question, error) {
	return nil, nil
}

func (s *stubAttainmentDeps) ListByQuestions(context.Context, []string) ([]models.StudentMark, error) {
	return nil, nil
}

func (s *stubAttainmentDeps) ListStudents(context.Context, models.RosterFilter) ([]models.User, error) {
	return nil, nil
}

func (s *stubAttainmentDeps) GetSummary(context.Context, string) (*models.AttainmentSummary, error) {
	return nil, nil
}

func (s *stubAttainmentDeps) SetSummary(context.Context, *models.AttainmentSummary) error {
	return nil
}

func (s *stubAttainmentDeps) InvalidateSummary(context.Context, string) error { return nil }

type stubExamReader struct{ stubAttainmentDeps }

func (s *stubExamReader) FindByID(context.Context, string) (*models.Exam, error) {
	return nil, nil
}

type stubCORecords struct{}

func (s *stubCORecords) Upsert(context.Context, *models.COAttainment) error { return nil }

func (s *stubCORecords) ListByExamAndSection(context.Context, string, *string) ([]models.COAttainment, error) {
	return nil, nil
}

func (s *stubCORecords) ListByCourse(context.Context, string) ([]models.COAttainment, error) {
	return nil, nil
}

func (s *stubCORecords) CombinedByCourse(context.Context, string) ([]models.CombinedCOAttainment, error) {
	return nil, nil
}

type stubFinalRecords struct {
	stored []*models.CourseAttainment
}

func (s *stubFinalRecords) Upsert(_ context.Context, record *models.CourseAttainment) error {
	s.stored = append(s.stored, record)
	return nil
}

func (s *stubFinalRecords) Find(context.Context, string, models.AttainmentType, *string) (*models.CourseAttainment, error) {
	return nil, nil
}

func (s *stubFinalRecords) ListByCourse(context.Context, string, *models.AttainmentType) ([]models.CourseAttainment, error) {
	return nil, nil
}

func (s *stubFinalRecords) ListSections(context.Context, string, models.AttainmentType) ([]models.CourseAttainment, error) {
	return nil, nil
}

type stubCourseResolver struct {
	course *models.Course
}

func (s *stubCourseResolver) ResolveRef(context.Context, string) (*models.Course, error) {
	return s.course, nil
}

func (s *stubCourseResolver) ListByTeacher(context.Context, string) ([]models.Course, error) {
	return nil, nil
}

func newFinalHandlerFixture() (*AttainmentHandler, *stubFinalRecords) {
	course := &models.Course{ID: "course-1", Code: "CS101"}
	deps := &stubAttainmentDeps{course: course}
	finals := &stubFinalRecords{}
	attainments := service.NewAttainmentService(deps, &stubExamReader{}, deps, deps, deps, &stubCORecords{}, finals, deps, nil)
	access := service.NewAccessService(&stubCourseResolver{course: course}, nil)
	return NewAttainmentHandler(attainments, nil, access, service.NewMetricsService()), finals
}

func performFinalRequest(handler func(*gin.Context), target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, target, nil)
	c.Params = gin.Params{{Key: "courseRef", Value: "course-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	handler(c)
	return rec
}

func TestCalculateCTFinalRollsUpCTType(t *testing.T) {
	handler, finals := newFinalHandlerFixture()

	rec := performFinalRequest(handler.CalculateCTFinal, "/attainment/ct-final/course-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, finals.stored, 1)
	assert.Equal(t, models.AttainmentCTFinal, finals.stored[0].Type)
}

func TestCalculateAssignmentFinalRollsUpAssignmentType(t *testing.T) {
	handler, finals := newFinalHandlerFixture()

	rec := performFinalRequest(handler.CalculateAssignmentFinal, "/attainment/assignment-final/course-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, finals.stored, 1)
	assert.Equal(t, models.AttainmentAssignmentFinal, finals.stored[0].Type)
}

func TestCalculateCTFinalRequiresAuth(t *testing.T) {
	handler, _ := newFinalHandlerFixture()

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attainment/ct-final/course-1", nil)
	c.Params = gin.Params{{Key: "courseRef", Value: "course-1"}}

	handler.CalculateCTFinal(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
