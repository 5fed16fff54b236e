package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/obetrack/attainment-api/internal/models"
)

// QuestionRepository handles question persistence.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a new question repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts a single question.
func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO questions (id, exam_id, co_number, max_marks, created_at)
        VALUES (:id, :exam_id, :co_number, :max_marks, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// BulkCreate inserts multiple questions in a transaction.
func (r *QuestionRepository) BulkCreate(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
		if questions[i].CreatedAt.IsZero() {
			questions[i].CreatedAt = now
		}
		const query = `INSERT INTO questions (id, exam_id, co_number, max_marks, created_at)
            VALUES (:id, :exam_id, :co_number, :max_marks, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, questions[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk create question: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit questions: %w", err)
	}
	return nil
}

// FindByID returns the question with the given id.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	const query = `SELECT id, exam_id, co_number, max_marks, created_at FROM questions WHERE id = $1 LIMIT 1`
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		return nil, err
	}
	return &question, nil
}

// ListByExam returns the questions of one exam in stable creation order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID string) ([]models.Question, error) {
	const query = `SELECT id, exam_id, co_number, max_marks, created_at
        FROM questions WHERE exam_id = $1 ORDER BY created_at ASC, id ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, examID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// ListByExams returns the questions belonging to any of the given exams.
func (r *QuestionRepository) ListByExams(ctx context.Context, examIDs []string) ([]models.Question, error) {
	if len(examIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(examIDs))
	args := make([]interface{}, len(examIDs))
	for i, id := range examIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, exam_id, co_number, max_marks, created_at
        FROM questions WHERE exam_id IN (%s) ORDER BY created_at ASC, id ASC`, strings.Join(placeholders, ","))
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, args...); err != nil {
		return nil, fmt.Errorf("list questions by exams: %w", err)
	}
	return questions, nil
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted question rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
