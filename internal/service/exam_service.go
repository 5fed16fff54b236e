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

type examStore interface {
	Create(ctx context.Context, exam *models.Exam) error
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Exam, error)
}

type questionStore interface {
	BulkCreate(ctx context.Context, questions []models.Question) error
	FindByID(ctx context.Context, id string) (*models.Question, error)
	ListByExam(ctx context.Context, examID string) ([]models.Question, error)
	Delete(ctx context.Context, id string) error
}

type markStore interface {
	BulkUpsert(ctx context.Context, marks []models.StudentMark) error
	ListByQuestions(ctx context.Context, questionIDs []string) ([]models.StudentMark, error)
	DeleteByQuestion(ctx context.Context, questionID string) error
}

// QuestionInput defines one question in an exam payload.
type QuestionInput struct {
	CONumber int     `json:"co_number" validate:"required,min=1"`
	MaxMarks float64 `json:"max_marks" validate:"required,gt=0"`
}

// CreateExamRequest creates an exam with an optional initial question set.
type CreateExamRequest struct {
	Name      string          `json:"name" validate:"required"`
	Type      models.ExamType `json:"type" validate:"required"`
	Questions []QuestionInput `json:"questions" validate:"omitempty,dive"`
}

// MarkEntry carries one student's marks keyed by question id. Missing
// questions are left untouched.
type MarkEntry struct {
	StudentID string             `json:"student_id" validate:"required"`
	Marks     map[string]float64 `json:"marks" validate:"required"`
}

// SubmitMarksheetRequest is a bulk mark submission for one exam.
type SubmitMarksheetRequest struct {
	Entries []MarkEntry `json:"entries" validate:"required,min=1,dive"`
}

// ExamService manages exams, questions and mark entry.
type ExamService struct {
	exams     examStore
	questions questionStore
	marks     markStore
	roster    rosterReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(exams examStore, questions questionStore, marks markStore, roster rosterReader, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, questions: questions, marks: marks, roster: roster, validator: validate, logger: logger}
}

// CreateExam creates an exam for a course, with its questions when given.
func (s *ExamService) CreateExam(ctx context.Context, courseID string, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if !models.ValidExamType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown exam type")
	}
	exam := &models.Exam{CourseID: courseID, Name: req.Name, Type: req.Type}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	if len(req.Questions) > 0 {
		if _, err := s.createQuestions(ctx, exam.ID, req.Questions); err != nil {
			return nil, err
		}
	}
	return exam, nil
}

// ListExams returns the exams of a course.
func (s *ExamService) ListExams(ctx context.Context, courseID string) ([]models.Exam, error) {
	exams, err := s.exams.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// AddQuestions appends questions to an existing exam.
func (s *ExamService) AddQuestions(ctx context.Context, examID string, inputs []QuestionInput) ([]models.Question, error) {
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "questions required")
	}
	for _, input := range inputs {
		if err := s.validator.Struct(input); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
		}
	}
	if _, err := s.loadExam(ctx, examID); err != nil {
		return nil, err
	}
	return s.createQuestions(ctx, examID, inputs)
}

// DeleteQuestion removes a question together with every mark recorded
// against it.
func (s *ExamService) DeleteQuestion(ctx context.Context, questionID string) error {
	if _, err := s.questions.FindByID(ctx, questionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	if err := s.marks.DeleteByQuestion(ctx, questionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete marks")
	}
	if err := s.questions.Delete(ctx, questionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete question")
	}
	return nil
}

// GetExam returns one exam by id.
func (s *ExamService) GetExam(ctx context.Context, examID string) (*models.Exam, error) {
	return s.loadExam(ctx, examID)
}

// QuestionOwner returns the exam a question belongs to.
func (s *ExamService) QuestionOwner(ctx context.Context, questionID string) (*models.Exam, error) {
	question, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	return s.loadExam(ctx, question.ExamID)
}

// GetMarksheet builds the editable marksheet of one exam for a section
// scope: questions in stable order and the roster students with any marks
// they already have.
func (s *ExamService) GetMarksheet(ctx context.Context, course *models.Course, examID string, section *string) (*models.Marksheet, error) {
	exam, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.CourseID != course.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam does not belong to this course")
	}
	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	sheetQuestions := make([]models.MarksheetQuestion, 0, len(questions))
	questionIDs := make([]string, 0, len(questions))
	for i, question := range questions {
		sheetQuestions = append(sheetQuestions, models.MarksheetQuestion{
			ID:       question.ID,
			QNo:      i + 1,
			CONumber: question.CONumber,
			MaxMarks: question.MaxMarks,
		})
		questionIDs = append(questionIDs, question.ID)
	}
	students, err := s.roster.ListStudents(ctx, models.RosterFilter{
		Semester:     course.Semester,
		AcademicYear: course.AcademicYear,
		Section:      section,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve roster")
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
	sheetStudents := make([]models.MarksheetStudent, 0, len(students))
	for _, student := range students {
		entry := models.MarksheetStudent{
			StudentID: student.ID,
			Name:      student.Name,
			Email:     student.Email,
			Section:   student.Section,
			Marks:     byStudent[student.ID],
		}
		if entry.Marks == nil {
			entry.Marks = map[string]float64{}
		}
		sheetStudents = append(sheetStudents, entry)
	}
	return &models.Marksheet{
		Exam:      *exam,
		Course:    *course,
		Section:   section,
		Questions: sheetQuestions,
		Students:  sheetStudents,
	}, nil
}

// SubmitMarksheet upserts the submitted marks. Entries for students outside
// the roster, unknown questions or out-of-range marks are skipped rather
// than failing the whole submission.
func (s *ExamService) SubmitMarksheet(ctx context.Context, course *models.Course, examID string, section *string, req SubmitMarksheetRequest) (*models.MarksheetResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marksheet payload")
	}
	exam, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.CourseID != course.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam does not belong to this course")
	}
	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	maxMarks := make(map[string]float64, len(questions))
	for _, question := range questions {
		maxMarks[question.ID] = question.MaxMarks
	}
	students, err := s.roster.ListStudents(ctx, models.RosterFilter{
		Semester:     course.Semester,
		AcademicYear: course.AcademicYear,
		Section:      section,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve roster")
	}
	rosterSet := make(map[string]bool, len(students))
	for _, student := range students {
		rosterSet[student.ID] = true
	}
	var toUpsert []models.StudentMark
	skipped := 0
	for _, entry := range req.Entries {
		if !rosterSet[entry.StudentID] {
			skipped += len(entry.Marks)
			continue
		}
		for questionID, obtained := range entry.Marks {
			max, ok := maxMarks[questionID]
			if !ok || obtained < 0 || obtained > max {
				skipped++
				continue
			}
			toUpsert = append(toUpsert, models.StudentMark{
				StudentID:     entry.StudentID,
				QuestionID:    questionID,
				MarksObtained: obtained,
			})
		}
	}
	if err := s.marks.BulkUpsert(ctx, toUpsert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store marks")
	}
	s.logger.Info("marksheet submitted",
		zap.String("exam_id", examID),
		zap.Int("updated", len(toUpsert)),
		zap.Int("skipped", skipped))
	return &models.MarksheetResult{Section: section, Updated: len(toUpsert), Skipped: skipped}, nil
}

func (s *ExamService) loadExam(ctx context.Context, examID string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

func (s *ExamService) createQuestions(ctx context.Context, examID string, inputs []QuestionInput) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(inputs))
	for _, input := range inputs {
		questions = append(questions, models.Question{
			ExamID:   examID,
			CONumber: input.CONumber,
			MaxMarks: input.MaxMarks,
		})
	}
	if err := s.questions.BulkCreate(ctx, questions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create questions")
	}
	return questions, nil
}
