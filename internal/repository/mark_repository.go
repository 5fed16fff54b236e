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

// MarkRepository handles student mark persistence.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Upsert inserts or updates the mark for one (student, question) pair.
func (r *MarkRepository) Upsert(ctx context.Context, mark *models.StudentMark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO student_marks (id, student_id, question_id, marks_obtained, created_at, updated_at)
        VALUES (:id, :student_id, :question_id, :marks_obtained, :created_at, :updated_at)
        ON CONFLICT (student_id, question_id)
        DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert mark: %w", err)
	}
	return nil
}

// BulkUpsert inserts or updates multiple marks in a transaction.
func (r *MarkRepository) BulkUpsert(ctx context.Context, marks []models.StudentMark) error {
	if len(marks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range marks {
		if marks[i].ID == "" {
			marks[i].ID = uuid.NewString()
		}
		if marks[i].CreatedAt.IsZero() {
			marks[i].CreatedAt = now
		}
		marks[i].UpdatedAt = now
		const query = `INSERT INTO student_marks (id, student_id, question_id, marks_obtained, created_at, updated_at)
            VALUES (:id, :student_id, :question_id, :marks_obtained, :created_at, :updated_at)
            ON CONFLICT (student_id, question_id)
            DO UPDATE SET marks_obtained = EXCLUDED.marks_obtained, updated_at = EXCLUDED.updated_at`
		if _, err := tx.NamedExecContext(ctx, query, marks[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert mark: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit marks: %w", err)
	}
	return nil
}

// ListByQuestions returns all marks against the given question set.
func (r *MarkRepository) ListByQuestions(ctx context.Context, questionIDs []string) ([]models.StudentMark, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(questionIDs))
	args := make([]interface{}, len(questionIDs))
	for i, id := range questionIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, student_id, question_id, marks_obtained, created_at, updated_at
        FROM student_marks WHERE question_id IN (%s)`, strings.Join(placeholders, ","))
	var marks []models.StudentMark
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// DeleteByQuestion removes all marks recorded against a question.
func (r *MarkRepository) DeleteByQuestion(ctx context.Context, questionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM student_marks WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("delete marks by question: %w", err)
	}
	return nil
}
