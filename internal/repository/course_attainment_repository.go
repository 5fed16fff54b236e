package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/obetrack/attainment-api/internal/models"
)

// CourseAttainmentRepository persists course-level attainment rollups.
type CourseAttainmentRepository struct {
	db *sqlx.DB
}

// NewCourseAttainmentRepository constructs the repository.
func NewCourseAttainmentRepository(db *sqlx.DB) *CourseAttainmentRepository {
	return &CourseAttainmentRepository{db: db}
}

// Upsert replaces-or-inserts the record keyed by (course, type, section).
// NULL sections are matched as values; last writer wins.
func (r *CourseAttainmentRepository) Upsert(ctx context.Context, record *models.CourseAttainment) error {
	record.UpdatedAt = time.Now().UTC()
	const update = `UPDATE course_attainments
        SET total_y = $1, total_n = $2, percentage = $3, level = $4, updated_at = $5
        WHERE course_id = $6 AND type = $7 AND section IS NOT DISTINCT FROM $8`
	result, err := r.db.ExecContext(ctx, update,
		record.TotalY, record.TotalN, record.Percentage, record.Level, record.UpdatedAt,
		record.CourseID, string(record.Type), record.Section)
	if err != nil {
		return fmt.Errorf("update course attainment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check course attainment rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const insert = `INSERT INTO course_attainments (id, course_id, type, section, total_y, total_n, percentage, level, updated_at)
        VALUES (:id, :course_id, :type, :section, :total_y, :total_n, :percentage, :level, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, record); err != nil {
		return fmt.Errorf("insert course attainment: %w", err)
	}
	return nil
}

// Find returns the record for (course, type, section), or sql.ErrNoRows.
func (r *CourseAttainmentRepository) Find(ctx context.Context, courseID string, typ models.AttainmentType, section *string) (*models.CourseAttainment, error) {
	const query = `SELECT id, course_id, type, section, total_y, total_n, percentage, level, updated_at
        FROM course_attainments
        WHERE course_id = $1 AND type = $2 AND section IS NOT DISTINCT FROM $3 LIMIT 1`
	var record models.CourseAttainment
	if err := r.db.GetContext(ctx, &record, query, courseID, string(typ), section); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByCourse returns the course attainment records for a course,
// optionally restricted to one type.
func (r *CourseAttainmentRepository) ListByCourse(ctx context.Context, courseID string, typ *models.AttainmentType) ([]models.CourseAttainment, error) {
	query := `SELECT id, course_id, type, section, total_y, total_n, percentage, level, updated_at
        FROM course_attainments WHERE course_id = $1`
	args := []interface{}{courseID}
	if typ != nil {
		query += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, string(*typ))
	}
	query += " ORDER BY type ASC, section ASC NULLS FIRST"
	var records []models.CourseAttainment
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list course attainments: %w", err)
	}
	return records, nil
}

// ListSections returns the per-section records (concrete sections only) of
// one type for a course. Used by the cross-section combined recomputation.
func (r *CourseAttainmentRepository) ListSections(ctx context.Context, courseID string, typ models.AttainmentType) ([]models.CourseAttainment, error) {
	const query = `SELECT id, course_id, type, section, total_y, total_n, percentage, level, updated_at
        FROM course_attainments
        WHERE course_id = $1 AND type = $2 AND section IS NOT NULL
        ORDER BY section ASC`
	var records []models.CourseAttainment
	if err := r.db.SelectContext(ctx, &records, query, courseID, string(typ)); err != nil {
		return nil, fmt.Errorf("list section attainments: %w", err)
	}
	return records, nil
}
