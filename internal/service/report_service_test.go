package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obetrack/attainment-api/internal/models"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
)

type fakeAttainmentViewer struct {
	view      *models.CourseAttainmentView
	coRecords []models.COAttainment
}

func (f *fakeAttainmentViewer) GetCourseView(ctx context.Context, courseID string, typ *models.AttainmentType) (*models.CourseAttainmentView, error) {
	return f.view, nil
}

func (f *fakeAttainmentViewer) ListCourseCO(ctx context.Context, courseID string) ([]models.COAttainment, error) {
	return f.coRecords, nil
}

func reportFixture() (*ReportService, *fakeAttainmentViewer) {
	examID := "exam-1"
	level := 2
	overall := 3
	y, n := 12, 8
	pct := 60.0
	viewer := &fakeAttainmentViewer{
		coRecords: []models.COAttainment{
			{CourseID: "course-1", ExamID: &examID, ExamLabel: "CT1", Section: sectionPtr("A"), CONumber: 1, Y: 3, N: 1, Percentage: 75, Level: 3},
		},
		view: &models.CourseAttainmentView{
			CourseID: "course-1",
			PerSection: []models.CourseAttainment{
				{CourseID: "course-1", Type: models.AttainmentCTFinal, Section: sectionPtr("A"), TotalY: &y, TotalN: &n, Percentage: &pct, Level: 2},
			},
			Combined: &models.AttainmentSummary{
				CourseID:     "course-1",
				OverallLevel: &overall,
				CTFinal:      models.FinalSummary{TotalY: &y, TotalN: &n, Percentage: &pct, Level: &level},
				GeneratedAt:  time.Now().UTC(),
			},
			CombinedCO: []models.CombinedCOAttainment{
				{CONumber: 1, Y: 8, N: 12, Percentage: 40, Level: 0},
			},
		},
	}
	courses := &fakeCourseReader{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Code: "CSE501", Name: "Software Engineering"},
	}}
	return NewReportService(viewer, courses, nil), viewer
}

func TestCourseAttainmentReportCSV(t *testing.T) {
	svc, _ := reportFixture()

	file, err := svc.CourseAttainmentReport(context.Background(), "course-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "attainment_CSE501.csv", file.Filename)

	content := string(file.Content)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	assert.Equal(t, "Scope,Section,CO,Y,N,Percentage,Level", lines[0])
	assert.Contains(t, content, "CT1,A,CO1,3,1,75.00,3")
	assert.Contains(t, content, "COMBINED,ALL,CO1,8,12,40.00,0")
	assert.Contains(t, content, "CT_FINAL,A")
	assert.Contains(t, content, "OVERALL,ALL")
}

func TestCourseAttainmentReportDefaultsToCSV(t *testing.T) {
	svc, _ := reportFixture()

	file, err := svc.CourseAttainmentReport(context.Background(), "course-1", "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
}

func TestCourseAttainmentReportPDF(t *testing.T) {
	svc, _ := reportFixture()

	file, err := svc.CourseAttainmentReport(context.Background(), "course-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "attainment_CSE501.pdf", file.Filename)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestCourseAttainmentReportUnknownFormat(t *testing.T) {
	svc, _ := reportFixture()

	_, err := svc.CourseAttainmentReport(context.Background(), "course-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
