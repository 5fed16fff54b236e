package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/obetrack/attainment-api/internal/models"
)

// ExamRepository handles exam persistence.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exams (id, course_id, name, type, created_at)
        VALUES (:id, :course_id, :name, :type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// FindByID returns the exam with the given id.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, course_id, name, type, created_at FROM exams WHERE id = $1 LIMIT 1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListByCourse returns the exams of a course, newest first.
func (r *ExamRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Exam, error) {
	const query = `SELECT id, course_id, name, type, created_at FROM exams WHERE course_id = $1 ORDER BY created_at DESC`
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, courseID); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// ListByCourseAndTypes returns the exams of a course whose type is in the
// given set.
func (r *ExamRepository) ListByCourseAndTypes(ctx context.Context, courseID string, types []models.ExamType) ([]models.Exam, error) {
	if len(types) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(types))
	args := make([]interface{}, len(types)+1)
	args[0] = courseID
	for i, t := range types {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args[i+1] = string(t)
	}
	query := fmt.Sprintf(`SELECT id, course_id, name, type, created_at FROM exams
        WHERE course_id = $1 AND type IN (%s) ORDER BY created_at ASC`, strings.Join(placeholders, ","))
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, fmt.Errorf("list exams by type: %w", err)
	}
	return exams, nil
}
