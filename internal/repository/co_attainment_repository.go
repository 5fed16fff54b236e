package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/obetrack/attainment-api/internal/models"
)

// COAttainmentRepository persists per-CO attainment records.
type COAttainmentRepository struct {
	db *sqlx.DB
}

// NewCOAttainmentRepository constructs the repository.
func NewCOAttainmentRepository(db *sqlx.DB) *COAttainmentRepository {
	return &COAttainmentRepository{db: db}
}

// Upsert replaces-or-inserts the record keyed by (course, exam, exam_label,
// section, co_number). Section and exam id may be NULL and NULL keys are
// matched as values, so an all-sections record never overwrites a
// section-specific one. Last writer wins.
func (r *COAttainmentRepository) Upsert(ctx context.Context, record *models.COAttainment) error {
	record.UpdatedAt = time.Now().UTC()
	const update = `UPDATE co_attainments
        SET y = $1, n = $2, percentage = $3, level = $4, updated_at = $5
        WHERE course_id = $6 AND exam_id IS NOT DISTINCT FROM $7
          AND exam_label = $8 AND section IS NOT DISTINCT FROM $9 AND co_number = $10`
	result, err := r.db.ExecContext(ctx, update,
		record.Y, record.N, record.Percentage, record.Level, record.UpdatedAt,
		record.CourseID, record.ExamID, record.ExamLabel, record.Section, record.CONumber)
	if err != nil {
		return fmt.Errorf("update co attainment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check co attainment rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const insert = `INSERT INTO co_attainments (id, course_id, exam_id, exam_label, section, co_number, y, n, percentage, level, updated_at)
        VALUES (:id, :course_id, :exam_id, :exam_label, :section, :co_number, :y, :n, :percentage, :level, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, record); err != nil {
		return fmt.Errorf("insert co attainment: %w", err)
	}
	return nil
}

// ListByExamAndSection returns the CO attainment records of an exam for one
// section scope (nil section selects the all-sections records).
func (r *COAttainmentRepository) ListByExamAndSection(ctx context.Context, examID string, section *string) ([]models.COAttainment, error) {
	const query = `SELECT id, course_id, exam_id, exam_label, section, co_number, y, n, percentage, level, updated_at
        FROM co_attainments WHERE exam_id = $1 AND section IS NOT DISTINCT FROM $2
        ORDER BY co_number ASC`
	var records []models.COAttainment
	if err := r.db.SelectContext(ctx, &records, query, examID, section); err != nil {
		return nil, fmt.Errorf("list co attainments: %w", err)
	}
	return records, nil
}

// ListByCourse returns every CO attainment record of a course.
func (r *COAttainmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.COAttainment, error) {
	const query = `SELECT id, course_id, exam_id, exam_label, section, co_number, y, n, percentage, level, updated_at
        FROM co_attainments WHERE course_id = $1 ORDER BY co_number ASC, exam_label ASC`
	var records []models.COAttainment
	if err := r.db.SelectContext(ctx, &records, query, courseID); err != nil {
		return nil, fmt.Errorf("list course co attainments: %w", err)
	}
	return records, nil
}

// CombinedByCourse sums Y/N per CO across every per-exam, per-section record
// of a course. Cross-exam rows (NULL exam id) and all-sections rows (NULL
// section) are excluded from the sums so no student is counted twice.
func (r *COAttainmentRepository) CombinedByCourse(ctx context.Context, courseID string) ([]models.CombinedCOAttainment, error) {
	const query = `SELECT co_number, COALESCE(SUM(y), 0) AS y, COALESCE(SUM(n), 0) AS n
        FROM co_attainments WHERE course_id = $1 AND exam_id IS NOT NULL AND section IS NOT NULL
        GROUP BY co_number ORDER BY co_number ASC`
	rows, err := r.db.QueryxContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("combine co attainments: %w", err)
	}
	defer rows.Close()
	var combined []models.CombinedCOAttainment
	for rows.Next() {
		var row models.CombinedCOAttainment
		if err := rows.Scan(&row.CONumber, &row.Y, &row.N); err != nil {
			return nil, fmt.Errorf("scan combined co attainment: %w", err)
		}
		combined = append(combined, row)
	}
	return combined, nil
}
