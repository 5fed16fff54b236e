package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/obetrack/attainment-api/internal/models"
)

// OutcomeRepository persists program outcomes, course outcomes and CO-PO
// mappings.
type OutcomeRepository struct {
	db *sqlx.DB
}

// NewOutcomeRepository creates a new outcome repository.
func NewOutcomeRepository(db *sqlx.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// CreateProgramOutcome inserts a program outcome.
func (r *OutcomeRepository) CreateProgramOutcome(ctx context.Context, po *models.ProgramOutcome) error {
	if po.ID == "" {
		po.ID = uuid.NewString()
	}
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO program_outcomes (id, code, description, created_at)
        VALUES (:id, :code, :description, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, po); err != nil {
		return fmt.Errorf("create program outcome: %w", err)
	}
	return nil
}

// ListProgramOutcomes returns all program outcomes ordered by code.
func (r *OutcomeRepository) ListProgramOutcomes(ctx context.Context) ([]models.ProgramOutcome, error) {
	const query = `SELECT id, code, description, created_at FROM program_outcomes ORDER BY code ASC`
	var pos []models.ProgramOutcome
	if err := r.db.SelectContext(ctx, &pos, query); err != nil {
		return nil, fmt.Errorf("list program outcomes: %w", err)
	}
	return pos, nil
}

// FindProgramOutcomeByCode returns the program outcome with the given code.
func (r *OutcomeRepository) FindProgramOutcomeByCode(ctx context.Context, code string) (*models.ProgramOutcome, error) {
	const query = `SELECT id, code, description, created_at FROM program_outcomes WHERE code = $1 LIMIT 1`
	var po models.ProgramOutcome
	if err := r.db.GetContext(ctx, &po, query, code); err != nil {
		return nil, err
	}
	return &po, nil
}

// CreateCourseOutcome inserts a course outcome.
func (r *OutcomeRepository) CreateCourseOutcome(ctx context.Context, co *models.CourseOutcome) error {
	if co.ID == "" {
		co.ID = uuid.NewString()
	}
	if co.CreatedAt.IsZero() {
		co.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_outcomes (id, course_id, number, description, created_at)
        VALUES (:id, :course_id, :number, :description, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, co); err != nil {
		return fmt.Errorf("create course outcome: %w", err)
	}
	return nil
}

// ListCourseOutcomes returns the COs of a course ordered by number.
func (r *OutcomeRepository) ListCourseOutcomes(ctx context.Context, courseID string) ([]models.CourseOutcome, error) {
	const query = `SELECT id, course_id, number, description, created_at
        FROM course_outcomes WHERE course_id = $1 ORDER BY number ASC`
	var cos []models.CourseOutcome
	if err := r.db.SelectContext(ctx, &cos, query, courseID); err != nil {
		return nil, fmt.Errorf("list course outcomes: %w", err)
	}
	return cos, nil
}

// CreateMapping inserts a CO-PO mapping.
func (r *OutcomeRepository) CreateMapping(ctx context.Context, mapping *models.COPOMapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO co_po_mappings (id, course_id, co_number, po_code, level, created_at)
        VALUES (:id, :course_id, :co_number, :po_code, :level, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mapping); err != nil {
		return fmt.Errorf("create co-po mapping: %w", err)
	}
	return nil
}

// ListMappings returns all CO-PO mappings with course identification.
func (r *OutcomeRepository) ListMappings(ctx context.Context) ([]models.COPOMappingDetail, error) {
	const query = `SELECT m.id, m.course_id, m.co_number, m.po_code, m.level, m.created_at,
        c.code AS course_code, c.name AS course_name
        FROM co_po_mappings m
        JOIN courses c ON c.id = m.course_id
        ORDER BY c.code ASC, m.co_number ASC, m.po_code ASC`
	var mappings []models.COPOMappingDetail
	if err := r.db.SelectContext(ctx, &mappings, query); err != nil {
		return nil, fmt.Errorf("list co-po mappings: %w", err)
	}
	return mappings, nil
}
