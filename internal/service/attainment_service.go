package service

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/obetrack/attainment-api/internal/models"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListByCourseAndTypes(ctx context.Context, courseID string, types []models.ExamType) ([]models.Exam, error)
}

type questionLister interface {
	ListByExam(ctx context.Context, examID string) ([]models.Question, error)
}

type markLister interface {
	ListByQuestions(ctx context.Context, questionIDs []string) ([]models.StudentMark, error)
}

type rosterReader interface {
	ListStudents(ctx context.Context, filter models.RosterFilter) ([]models.User, error)
}

type coAttainmentStore interface {
	Upsert(ctx context.Context, record *models.COAttainment) error
	ListByExamAndSection(ctx context.Context, examID string, section *string) ([]models.COAttainment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.COAttainment, error)
	CombinedByCourse(ctx context.Context, courseID string) ([]models.CombinedCOAttainment, error)
}

type courseAttainmentStore interface {
	Upsert(ctx context.Context, record *models.CourseAttainment) error
	Find(ctx context.Context, courseID string, typ models.AttainmentType, section *string) (*models.CourseAttainment, error)
	ListByCourse(ctx context.Context, courseID string, typ *models.AttainmentType) ([]models.CourseAttainment, error)
	ListSections(ctx context.Context, courseID string, typ models.AttainmentType) ([]models.CourseAttainment, error)
}

type summaryCache interface {
	GetSummary(ctx context.Context, courseID string) (*models.AttainmentSummary, error)
	SetSummary(ctx context.Context, summary *models.AttainmentSummary) error
	InvalidateSummary(ctx context.Context, courseID string) error
}

// AttainmentService computes and serves outcome attainment. Every
// calculation resolves its roster snapshot once up front and threads it
// through; students are never re-fetched mid-calculation.
type AttainmentService struct {
	courses      courseReader
	exams        examReader
	questions    questionLister
	marks        markLister
	roster       rosterReader
	coRecords    coAttainmentStore
	finalRecords courseAttainmentStore
	cache        summaryCache
	logger       *zap.Logger
}

// NewAttainmentService constructs AttainmentService.
func NewAttainmentService(courses courseReader, exams examReader, questions questionLister, marks markLister, roster rosterReader, coRecords coAttainmentStore, finalRecords courseAttainmentStore, cache summaryCache, logger *zap.Logger) *AttainmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttainmentService{
		courses:      courses,
		exams:        exams,
		questions:    questions,
		marks:        marks,
		roster:       roster,
		coRecords:    coRecords,
		finalRecords: finalRecords,
		cache:        cache,
		logger:       logger,
	}
}

// quantizeLevel maps an attainment percentage to a level on the 0-3 scale.
func quantizeLevel(percentage float64) int {
	switch {
	case percentage >= 70:
		return 3
	case percentage >= 60:
		return 2
	case percentage >= 50:
		return 1
	default:
		return 0
	}
}

// roundLevel averages the two final levels, rounding halves up.
func roundLevel(ct, assignment int) int {
	return int(math.Round(float64(ct+assignment) / 2))
}

// CalculateExamCO classifies every roster student per CO for one exam and
// section scope and persists the resulting Y/N records. A nil section scopes
// the calculation to every section of the course.
func (s *AttainmentService) CalculateExamCO(ctx context.Context, examID string, section *string) ([]models.COAttainment, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	course, err := s.courses.FindByID(ctx, exam.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	roster, err := s.resolveRoster(ctx, course, section)
	if err != nil {
		return nil, err
	}
	records, err := s.computeExamCO(ctx, course, exam, roster)
	if err != nil {
		return nil, err
	}
	// An exam without questions is empty data, not an error. Nothing to
	// persist, nothing changed.
	if len(records) == 0 {
		return []models.COAttainment{}, nil
	}
	for i := range records {
		if err := s.coRecords.Upsert(ctx, &records[i]); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store co attainment")
		}
	}
	s.invalidate(ctx, course.ID)
	return records, nil
}

// CalculateCourseFinal aggregates Y/N across the exams feeding one rollup
// type and persists both the refreshed per-exam CO records and the
// course-level record for the given section scope. A course with no exams of
// the type set still gets a persisted zero record.
func (s *AttainmentService) CalculateCourseFinal(ctx context.Context, courseID string, typ models.AttainmentType, section *string) (*models.CourseAttainment, error) {
	types, err := finalExamTypes(typ)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	exams, err := s.exams.ListByCourseAndTypes(ctx, courseID, types)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	roster, err := s.resolveRoster(ctx, course, section)
	if err != nil {
		return nil, err
	}
	totalY, totalN := 0, 0
	for i := range exams {
		records, err := s.computeExamCO(ctx, course, &exams[i], roster)
		if err != nil {
			return nil, err
		}
		// Y and N are summed per (exam, CO) pair: a student counts once for
		// every CO of every exam they sat.
		for j := range records {
			if err := s.coRecords.Upsert(ctx, &records[j]); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store co attainment")
			}
			totalY += records[j].Y
			totalN += records[j].N
		}
	}
	percentage := 0.0
	if totalY+totalN > 0 {
		percentage = float64(totalY) / float64(totalY+totalN) * 100
	}
	record := &models.CourseAttainment{
		CourseID:   courseID,
		Type:       typ,
		Section:    section,
		TotalY:     &totalY,
		TotalN:     &totalN,
		Percentage: &percentage,
		Level:      quantizeLevel(percentage),
	}
	if err := s.finalRecords.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store course attainment")
	}
	s.invalidate(ctx, courseID)
	return record, nil
}

// CalculateOverall averages the CT and assignment final levels for one
// section scope. A final that has not been computed yet counts as level 0.
func (s *AttainmentService) CalculateOverall(ctx context.Context, courseID string, section *string) (*models.CourseAttainment, error) {
	ctLevel, err := s.finalLevel(ctx, courseID, models.AttainmentCTFinal, section)
	if err != nil {
		return nil, err
	}
	assignmentLevel, err := s.finalLevel(ctx, courseID, models.AttainmentAssignmentFinal, section)
	if err != nil {
		return nil, err
	}
	record := &models.CourseAttainment{
		CourseID: courseID,
		Type:     models.AttainmentOverall,
		Section:  section,
		Level:    roundLevel(ctLevel, assignmentLevel),
	}
	if err := s.finalRecords.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store overall attainment")
	}
	s.invalidate(ctx, courseID)
	return record, nil
}

// RefreshCombined rebuilds the cross-section (nil section) course records by
// summing the stored per-section finals, then recomputes the combined
// overall level when both finals exist. The combined rows are the single
// source of truth the summary cache is filled from.
func (s *AttainmentService) RefreshCombined(ctx context.Context, courseID string) (*models.AttainmentSummary, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	var levels [2]*int
	for i, typ := range []models.AttainmentType{models.AttainmentCTFinal, models.AttainmentAssignmentFinal} {
		sections, err := s.finalRecords.ListSections(ctx, courseID, typ)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list section finals")
		}
		if len(sections) == 0 {
			continue
		}
		totalY, totalN := 0, 0
		for _, record := range sections {
			if record.TotalY != nil {
				totalY += *record.TotalY
			}
			if record.TotalN != nil {
				totalN += *record.TotalN
			}
		}
		percentage := 0.0
		if totalY+totalN > 0 {
			percentage = float64(totalY) / float64(totalY+totalN) * 100
		}
		level := quantizeLevel(percentage)
		combined := &models.CourseAttainment{
			CourseID:   courseID,
			Type:       typ,
			TotalY:     &totalY,
			TotalN:     &totalN,
			Percentage: &percentage,
			Level:      level,
		}
		if err := s.finalRecords.Upsert(ctx, combined); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store combined final")
		}
		levels[i] = &level
	}
	if levels[0] != nil && levels[1] != nil {
		overall := &models.CourseAttainment{
			CourseID: courseID,
			Type:     models.AttainmentOverall,
			Level:    roundLevel(*levels[0], *levels[1]),
		}
		if err := s.finalRecords.Upsert(ctx, overall); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store combined overall")
		}
	}
	s.invalidate(ctx, courseID)
	return s.GetSummary(ctx, courseID)
}

// GetSummary serves the combined attainment summary of a course through the
// read-through cache, rebuilding it from the nil-section course records on a
// miss.
func (s *AttainmentService) GetSummary(ctx context.Context, courseID string) (*models.AttainmentSummary, error) {
	if cached, err := s.cache.GetSummary(ctx, courseID); err != nil {
		s.logger.Warn("summary cache read failed", zap.String("course_id", courseID), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}
	summary := &models.AttainmentSummary{CourseID: courseID, GeneratedAt: time.Now().UTC()}
	ct, err := s.loadFinal(ctx, courseID, models.AttainmentCTFinal)
	if err != nil {
		return nil, err
	}
	summary.CTFinal = ct
	assignment, err := s.loadFinal(ctx, courseID, models.AttainmentAssignmentFinal)
	if err != nil {
		return nil, err
	}
	summary.AssignmentFinal = assignment
	overall, err := s.finalRecords.Find(ctx, courseID, models.AttainmentOverall, nil)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overall attainment")
	}
	if overall != nil {
		level := overall.Level
		summary.OverallLevel = &level
	}
	if err := s.cache.SetSummary(ctx, summary); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("course_id", courseID), zap.Error(err))
	}
	return summary, nil
}

// GetCourseView assembles the full read-side answer for a course: the stored
// per-section records, the combined summary and the combined per-CO rollup.
// An optional type narrows the per-section records.
func (s *AttainmentService) GetCourseView(ctx context.Context, courseID string, typ *models.AttainmentType) (*models.CourseAttainmentView, error) {
	records, err := s.finalRecords.ListByCourse(ctx, courseID, typ)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course attainments")
	}
	perSection := make([]models.CourseAttainment, 0, len(records))
	for _, record := range records {
		if record.Section != nil {
			perSection = append(perSection, record)
		}
	}
	summary, err := s.GetSummary(ctx, courseID)
	if err != nil {
		return nil, err
	}
	combinedCO, err := s.CombinedCO(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &models.CourseAttainmentView{
		CourseID:   courseID,
		PerSection: perSection,
		Combined:   summary,
		CombinedCO: combinedCO,
	}, nil
}

// CombinedCO sums the stored per-exam Y/N records per CO across all sections
// and exams of a course.
func (s *AttainmentService) CombinedCO(ctx context.Context, courseID string) ([]models.CombinedCOAttainment, error) {
	combined, err := s.coRecords.CombinedByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to combine co attainments")
	}
	for i := range combined {
		percentage := 0.0
		if combined[i].Y+combined[i].N > 0 {
			percentage = float64(combined[i].Y) / float64(combined[i].Y+combined[i].N) * 100
		}
		combined[i].Percentage = percentage
		combined[i].Level = quantizeLevel(percentage)
	}
	return combined, nil
}

// ListExamCO returns the stored per-CO records of one exam and section scope.
func (s *AttainmentService) ListExamCO(ctx context.Context, examID string, section *string) ([]models.COAttainment, error) {
	records, err := s.coRecords.ListByExamAndSection(ctx, examID, section)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list co attainments")
	}
	return records, nil
}

// ListCourseCO returns every stored per-CO record of a course.
func (s *AttainmentService) ListCourseCO(ctx context.Context, courseID string) ([]models.COAttainment, error) {
	records, err := s.coRecords.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list co attainments")
	}
	return records, nil
}

func (s *AttainmentService) finalLevel(ctx context.Context, courseID string, typ models.AttainmentType, section *string) (int, error) {
	record, err := s.finalRecords.Find(ctx, courseID, typ, section)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course attainment")
	}
	return record.Level, nil
}

func (s *AttainmentService) loadFinal(ctx context.Context, courseID string, typ models.AttainmentType) (models.FinalSummary, error) {
	record, err := s.finalRecords.Find(ctx, courseID, typ, nil)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.FinalSummary{}, nil
		}
		return models.FinalSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course attainment")
	}
	level := record.Level
	return models.FinalSummary{
		TotalY:     record.TotalY,
		TotalN:     record.TotalN,
		Percentage: record.Percentage,
		Level:      &level,
	}, nil
}

func (s *AttainmentService) resolveRoster(ctx context.Context, course *models.Course, section *string) (models.RosterSnapshot, error) {
	students, err := s.roster.ListStudents(ctx, models.RosterFilter{
		Semester:     course.Semester,
		AcademicYear: course.AcademicYear,
		Section:      section,
	})
	if err != nil {
		return models.RosterSnapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve roster")
	}
	ids := make([]string, 0, len(students))
	for _, student := range students {
		ids = append(ids, student.ID)
	}
	return models.RosterSnapshot{
		CourseID:     course.ID,
		Semester:     course.Semester,
		AcademicYear: course.AcademicYear,
		Section:      section,
		StudentIDs:   ids,
		ResolvedAt:   time.Now().UTC(),
	}, nil
}

// computeExamCO classifies each roster student per CO for one exam. Returns
// nil when the exam has no questions. Marks from students outside the roster
// snapshot are ignored; roster students with no marks count as N.
func (s *AttainmentService) computeExamCO(ctx context.Context, course *models.Course, exam *models.Exam, roster models.RosterSnapshot) ([]models.COAttainment, error) {
	questions, err := s.questions.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	if len(questions) == 0 {
		return nil, nil
	}
	coQuestions := make(map[int][]string)
	coMaxMarks := make(map[int]float64)
	questionIDs := make([]string, 0, len(questions))
	for _, question := range questions {
		coQuestions[question.CONumber] = append(coQuestions[question.CONumber], question.ID)
		coMaxMarks[question.CONumber] += question.MaxMarks
		questionIDs = append(questionIDs, question.ID)
	}
	marks, err := s.marks.ListByQuestions(ctx, questionIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	byStudent := make(map[string]map[string]float64)
	for _, mark := range marks {
		if byStudent[mark.StudentID] == nil {
			byStudent[mark.StudentID] = make(map[string]float64)
		}
		byStudent[mark.StudentID][mark.QuestionID] = mark.MarksObtained
	}
	coNumbers := make([]int, 0, len(coQuestions))
	for co := range coQuestions {
		coNumbers = append(coNumbers, co)
	}
	sort.Ints(coNumbers)
	examID := exam.ID
	records := make([]models.COAttainment, 0, len(coNumbers))
	for _, co := range coNumbers {
		// A CO group without positive max marks has no meaningful benchmark.
		if coMaxMarks[co] <= 0 {
			continue
		}
		// Benchmark is half the CO's total marks in this exam.
		benchmark := coMaxMarks[co] * 0.5
		y, n := 0, 0
		for _, studentID := range roster.StudentIDs {
			total := 0.0
			if studentMarks, ok := byStudent[studentID]; ok {
				for _, questionID := range coQuestions[co] {
					total += studentMarks[questionID]
				}
			}
			if total >= benchmark {
				y++
			} else {
				n++
			}
		}
		percentage := 0.0
		if y+n > 0 {
			percentage = float64(y) / float64(y+n) * 100
		}
		records = append(records, models.COAttainment{
			CourseID:   course.ID,
			ExamID:     &examID,
			ExamLabel:  exam.Name,
			Section:    roster.Section,
			CONumber:   co,
			Y:          y,
			N:          n,
			Percentage: percentage,
			Level:      quantizeLevel(percentage),
		})
	}
	return records, nil
}

func (s *AttainmentService) invalidate(ctx context.Context, courseID string) {
	if err := s.cache.InvalidateSummary(ctx, courseID); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.String("course_id", courseID), zap.Error(err))
	}
}

func finalExamTypes(typ models.AttainmentType) ([]models.ExamType, error) {
	switch typ {
	case models.AttainmentCTFinal:
		return models.CTFinalTypes, nil
	case models.AttainmentAssignmentFinal:
		return models.AssignmentFinalTypes, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported attainment type")
	}
}
