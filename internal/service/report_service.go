package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/obetrack/attainment-api/internal/models"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
	"github.com/obetrack/attainment-api/pkg/export"
)

type attainmentViewer interface {
	GetCourseView(ctx context.Context, courseID string, typ *models.AttainmentType) (*models.CourseAttainmentView, error)
	ListCourseCO(ctx context.Context, courseID string) ([]models.COAttainment, error)
}

// ReportFile is a rendered export ready for download.
type ReportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ReportService renders course attainment reports as CSV or PDF.
type ReportService struct {
	attainments attainmentViewer
	courses     courseReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(attainments attainmentViewer, courses courseReader, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attainments: attainments,
		courses:     courses,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// CourseAttainmentReport renders the full attainment picture of a course:
// the per-exam CO records followed by the course-level rollups. Supported
// formats are "csv" and "pdf".
func (s *ReportService) CourseAttainmentReport(ctx context.Context, courseID, format string) (*ReportFile, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	view, err := s.attainments.GetCourseView(ctx, courseID, nil)
	if err != nil {
		return nil, err
	}
	coRecords, err := s.attainments.ListCourseCO(ctx, courseID)
	if err != nil {
		return nil, err
	}
	data := buildReportDataset(coRecords, view)
	title := fmt.Sprintf("%s %s attainment", course.Code, course.Name)
	filename := fmt.Sprintf("attainment_%s", course.Code)
	switch strings.ToLower(format) {
	case "", "csv":
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ReportFile{Content: content, ContentType: "text/csv", Filename: filename + ".csv"}, nil
	case "pdf":
		content, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ReportFile{Content: content, ContentType: "application/pdf", Filename: filename + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func buildReportDataset(coRecords []models.COAttainment, view *models.CourseAttainmentView) export.Dataset {
	headers := []string{"Scope", "Section", "CO", "Y", "N", "Percentage", "Level"}
	rows := make([]map[string]string, 0, len(coRecords)+len(view.PerSection)+len(view.CombinedCO))
	for _, record := range coRecords {
		rows = append(rows, map[string]string{
			"Scope":      record.ExamLabel,
			"Section":    sectionLabel(record.Section),
			"CO":         fmt.Sprintf("CO%d", record.CONumber),
			"Y":          strconv.Itoa(record.Y),
			"N":          strconv.Itoa(record.N),
			"Percentage": fmt.Sprintf("%.2f", record.Percentage),
			"Level":      strconv.Itoa(record.Level),
		})
	}
	for _, combined := range view.CombinedCO {
		rows = append(rows, map[string]string{
			"Scope":      "COMBINED",
			"Section":    "ALL",
			"CO":         fmt.Sprintf("CO%d", combined.CONumber),
			"Y":          strconv.Itoa(combined.Y),
			"N":          strconv.Itoa(combined.N),
			"Percentage": fmt.Sprintf("%.2f", combined.Percentage),
			"Level":      strconv.Itoa(combined.Level),
		})
	}
	for _, record := range view.PerSection {
		rows = append(rows, courseAttainmentRow(record))
	}
	if view.Combined != nil {
		if view.Combined.CTFinal.Level != nil {
			rows = append(rows, finalRow(string(models.AttainmentCTFinal), view.Combined.CTFinal))
		}
		if view.Combined.AssignmentFinal.Level != nil {
			rows = append(rows, finalRow(string(models.AttainmentAssignmentFinal), view.Combined.AssignmentFinal))
		}
		if view.Combined.OverallLevel != nil {
			rows = append(rows, map[string]string{
				"Scope":   string(models.AttainmentOverall),
				"Section": "ALL",
				"Level":   strconv.Itoa(*view.Combined.OverallLevel),
			})
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func courseAttainmentRow(record models.CourseAttainment) map[string]string {
	row := map[string]string{
		"Scope":   string(record.Type),
		"Section": sectionLabel(record.Section),
		"Level":   strconv.Itoa(record.Level),
	}
	if record.TotalY != nil {
		row["Y"] = strconv.Itoa(*record.TotalY)
	}
	if record.TotalN != nil {
		row["N"] = strconv.Itoa(*record.TotalN)
	}
	if record.Percentage != nil {
		row["Percentage"] = fmt.Sprintf("%.2f", *record.Percentage)
	}
	return row
}

func finalRow(scope string, final models.FinalSummary) map[string]string {
	row := map[string]string{"Scope": scope, "Section": "ALL"}
	if final.TotalY != nil {
		row["Y"] = strconv.Itoa(*final.TotalY)
	}
	if final.TotalN != nil {
		row["N"] = strconv.Itoa(*final.TotalN)
	}
	if final.Percentage != nil {
		row["Percentage"] = fmt.Sprintf("%.2f", *final.Percentage)
	}
	if final.Level != nil {
		row["Level"] = strconv.Itoa(*final.Level)
	}
	return row
}

func sectionLabel(section *string) string {
	if section == nil {
		return "ALL"
	}
	return *section
}
