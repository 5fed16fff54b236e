package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obetrack/attainment-api/internal/models"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
)

type fakeExamStore struct {
	exams map[string]*models.Exam
	seq   int
}

func (f *fakeExamStore) Create(ctx context.Context, exam *models.Exam) error {
	f.seq++
	exam.ID = fmt.Sprintf("exam-%d", f.seq)
	if f.exams == nil {
		f.exams = make(map[string]*models.Exam)
	}
	f.exams[exam.ID] = exam
	return nil
}

func (f *fakeExamStore) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if exam, ok := f.exams[id]; ok {
		return exam, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeExamStore) ListByCourse(ctx context.Context, courseID string) ([]models.Exam, error) {
	var result []models.Exam
	for _, exam := range f.exams {
		if exam.CourseID == courseID {
			result = append(result, *exam)
		}
	}
	return result, nil
}

type fakeQuestionStore struct {
	questions []models.Question
	seq       int
}

func (f *fakeQuestionStore) BulkCreate(ctx context.Context, questions []models.Question) error {
	for i := range questions {
		f.seq++
		questions[i].ID = fmt.Sprintf("q-%d", f.seq)
		f.questions = append(f.questions, questions[i])
	}
	return nil
}

func (f *fakeQuestionStore) FindByID(ctx context.Context, id string) (*models.Question, error) {
	for i := range f.questions {
		if f.questions[i].ID == id {
			return &f.questions[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeQuestionStore) ListByExam(ctx context.Context, examID string) ([]models.Question, error) {
	var result []models.Question
	for _, question := range f.questions {
		if question.ExamID == examID {
			result = append(result, question)
		}
	}
	return result, nil
}

func (f *fakeQuestionStore) Delete(ctx context.Context, id string) error {
	for i := range f.questions {
		if f.questions[i].ID == id {
			f.questions = append(f.questions[:i], f.questions[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeMarkStore struct {
	marks map[string]models.StudentMark
}

func markKey(studentID, questionID string) string {
	return studentID + "|" + questionID
}

func (f *fakeMarkStore) BulkUpsert(ctx context.Context, marks []models.StudentMark) error {
	if f.marks == nil {
		f.marks = make(map[string]models.StudentMark)
	}
	for _, m := range marks {
		f.marks[markKey(m.StudentID, m.QuestionID)] = m
	}
	return nil
}

func (f *fakeMarkStore) ListByQuestions(ctx context.Context, questionIDs []string) ([]models.StudentMark, error) {
	wanted := make(map[string]bool, len(questionIDs))
	for _, id := range questionIDs {
		wanted[id] = true
	}
	var result []models.StudentMark
	for _, m := range f.marks {
		if wanted[m.QuestionID] {
			result = append(result, m)
		}
	}
	return result, nil
}

func (f *fakeMarkStore) DeleteByQuestion(ctx context.Context, questionID string) error {
	for key, m := range f.marks {
		if m.QuestionID == questionID {
			delete(f.marks, key)
		}
	}
	return nil
}

type examFixture struct {
	exams     *fakeExamStore
	questions *fakeQuestionStore
	marks     *fakeMarkStore
	roster    *fakeRosterReader
	svc       *ExamService
}

func newExamFixture() *examFixture {
	f := &examFixture{
		exams:     &fakeExamStore{},
		questions: &fakeQuestionStore{},
		marks:     &fakeMarkStore{},
		roster:    &fakeRosterReader{},
	}
	f.svc = NewExamService(f.exams, f.questions, f.marks, f.roster, nil, nil)
	return f
}

func examCourse() *models.Course {
	semester := 5
	year := "2025-2026"
	return &models.Course{ID: "course-1", Code: "CSE501", Name: "Software Engineering", Semester: &semester, AcademicYear: &year}
}

func TestCreateExamWithQuestions(t *testing.T) {
	f := newExamFixture()

	exam, err := f.svc.CreateExam(context.Background(), "course-1", CreateExamRequest{
		Name: "CT1",
		Type: models.ExamTypeCT1,
		Questions: []QuestionInput{
			{CONumber: 1, MaxMarks: 10},
			{CONumber: 2, MaxMarks: 5},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, exam.ID)
	assert.Equal(t, "course-1", exam.CourseID)

	questions, err := f.questions.ListByExam(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestCreateExamRejectsUnknownType(t *testing.T) {
	f := newExamFixture()

	_, err := f.svc.CreateExam(context.Background(), "course-1", CreateExamRequest{Name: "CT1", Type: "MIDTERM"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetMarksheetNumbersQuestionsInOrder(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	exam, err := f.svc.CreateExam(ctx, "course-1", CreateExamRequest{
		Name: "CT1",
		Type: models.ExamTypeCT1,
		Questions: []QuestionInput{
			{CONumber: 2, MaxMarks: 10},
			{CONumber: 1, MaxMarks: 5},
			{CONumber: 3, MaxMarks: 8},
		},
	})
	require.NoError(t, err)

	f.roster.students = []models.User{student("s1", "A"), student("s2", "A")}
	questions, err := f.questions.ListByExam(ctx, exam.ID)
	require.NoError(t, err)
	require.NoError(t, f.marks.BulkUpsert(ctx, []models.StudentMark{mark("s1", questions[0].ID, 7)}))

	sheet, err := f.svc.GetMarksheet(ctx, examCourse(), exam.ID, sectionPtr("A"))
	require.NoError(t, err)

	require.Len(t, sheet.Questions, 3)
	for i, q := range sheet.Questions {
		assert.Equal(t, i+1, q.QNo)
	}
	assert.Equal(t, 2, sheet.Questions[0].CONumber)

	require.Len(t, sheet.Students, 2)
	assert.Equal(t, 7.0, sheet.Students[0].Marks[questions[0].ID])
	// Students without marks still carry an editable empty map.
	assert.NotNil(t, sheet.Students[1].Marks)
	assert.Empty(t, sheet.Students[1].Marks)
}

func TestGetMarksheetRejectsForeignExam(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	exam, err := f.svc.CreateExam(ctx, "course-2", CreateExamRequest{Name: "CT1", Type: models.ExamTypeCT1})
	require.NoError(t, err)

	_, err = f.svc.GetMarksheet(ctx, examCourse(), exam.ID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitMarksheetSkipRules(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	exam, err := f.svc.CreateExam(ctx, "course-1", CreateExamRequest{
		Name:      "CT1",
		Type:      models.ExamTypeCT1,
		Questions: []QuestionInput{{CONumber: 1, MaxMarks: 10}},
	})
	require.NoError(t, err)
	questions, err := f.questions.ListByExam(ctx, exam.ID)
	require.NoError(t, err)
	qID := questions[0].ID

	f.roster.students = []models.User{student("s1", "A")}

	result, err := f.svc.SubmitMarksheet(ctx, examCourse(), exam.ID, sectionPtr("A"), SubmitMarksheetRequest{
		Entries: []MarkEntry{
			{StudentID: "s1", Marks: map[string]float64{qID: 8, "q-unknown": 5}},
			{StudentID: "outsider", Marks: map[string]float64{qID: 10}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 2, result.Skipped)

	stored, err := f.marks.ListByQuestions(ctx, []string{qID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "s1", stored[0].StudentID)
	assert.Equal(t, 8.0, stored[0].MarksObtained)
}

func TestSubmitMarksheetSkipsOutOfRangeMarks(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	exam, err := f.svc.CreateExam(ctx, "course-1", CreateExamRequest{
		Name:      "CT1",
		Type:      models.ExamTypeCT1,
		Questions: []QuestionInput{{CONumber: 1, MaxMarks: 10}},
	})
	require.NoError(t, err)
	questions, err := f.questions.ListByExam(ctx, exam.ID)
	require.NoError(t, err)
	qID := questions[0].ID

	f.roster.students = []models.User{student("s1", "A"), student("s2", "A")}

	result, err := f.svc.SubmitMarksheet(ctx, examCourse(), exam.ID, sectionPtr("A"), SubmitMarksheetRequest{
		Entries: []MarkEntry{
			{StudentID: "s1", Marks: map[string]float64{qID: 11}},
			{StudentID: "s2", Marks: map[string]float64{qID: -1}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, result.Skipped)
}

func TestDeleteQuestionCascadesMarks(t *testing.T) {
	f := newExamFixture()
	ctx := context.Background()
	exam, err := f.svc.CreateExam(ctx, "course-1", CreateExamRequest{
		Name:      "CT1",
		Type:      models.ExamTypeCT1,
		Questions: []QuestionInput{{CONumber: 1, MaxMarks: 10}},
	})
	require.NoError(t, err)
	questions, err := f.questions.ListByExam(ctx, exam.ID)
	require.NoError(t, err)
	qID := questions[0].ID
	require.NoError(t, f.marks.BulkUpsert(ctx, []models.StudentMark{mark("s1", qID, 6)}))

	require.NoError(t, f.svc.DeleteQuestion(ctx, qID))

	remaining, err := f.questions.ListByExam(ctx, exam.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	stored, err := f.marks.ListByQuestions(ctx, []string{qID})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestDeleteQuestionNotFound(t *testing.T) {
	f := newExamFixture()

	err := f.svc.DeleteQuestion(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
