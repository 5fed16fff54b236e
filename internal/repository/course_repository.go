package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/obetrack/attainment-api/internal/models"
)

// CourseRepository handles course and section-teacher persistence.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, code, name, semester, academic_year, assigned_teacher_id, created_at, updated_at`

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, name, semester, academic_year, assigned_teacher_id, created_at, updated_at)
        VALUES (:id, :code, :name, :semester, :academic_year, :assigned_teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns the course with the given id, including its
// section-teacher assignments.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	teachers, err := r.ListSectionTeachers(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	course.SectionTeachers = teachers
	return &course, nil
}

// FindByCode returns the course with the given code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE code = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	teachers, err := r.ListSectionTeachers(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	course.SectionTeachers = teachers
	return &course, nil
}

// ResolveRef resolves a course reference that may be either an internal id
// or a course code, and returns the course. Callers resolve once at the
// boundary; everything downstream works on ids.
func (r *CourseRepository) ResolveRef(ctx context.Context, ref string) (*models.Course, error) {
	if _, err := uuid.Parse(ref); err == nil {
		course, err := r.FindByID(ctx, ref)
		if err == nil {
			return course, nil
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
	}
	return r.FindByCode(ctx, ref)
}

// List returns all courses ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses ORDER BY code ASC`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListSectionTeachers returns the section assignments of a course.
func (r *CourseRepository) ListSectionTeachers(ctx context.Context, courseID string) ([]models.SectionTeacher, error) {
	const query = `SELECT id, course_id, section, teacher_id, created_at
        FROM course_section_teachers WHERE course_id = $1 ORDER BY section ASC`
	var teachers []models.SectionTeacher
	if err := r.db.SelectContext(ctx, &teachers, query, courseID); err != nil {
		return nil, fmt.Errorf("list section teachers: %w", err)
	}
	return teachers, nil
}

// ReplaceSectionTeachers swaps the full set of section assignments for a
// course in one transaction and keeps the legacy assigned_teacher_id column
// in sync: it mirrors the teacher only while exactly one pair exists.
func (r *CourseRepository) ReplaceSectionTeachers(ctx context.Context, courseID string, teachers []models.SectionTeacher) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_section_teachers WHERE course_id = $1`, courseID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear section teachers: %w", err)
	}
	now := time.Now().UTC()
	for i := range teachers {
		teachers[i].ID = uuid.NewString()
		teachers[i].CourseID = courseID
		teachers[i].CreatedAt = now
		const query = `INSERT INTO course_section_teachers (id, course_id, section, teacher_id, created_at)
            VALUES (:id, :course_id, :section, :teacher_id, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, teachers[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert section teacher: %w", err)
		}
	}
	var legacy interface{}
	if len(teachers) == 1 {
		legacy = teachers[0].TeacherID
	}
	if _, err := tx.ExecContext(ctx, `UPDATE courses SET assigned_teacher_id = $1, updated_at = $2 WHERE id = $3`, legacy, now, courseID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("sync legacy teacher: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit section teachers: %w", err)
	}
	return nil
}

// ListByTeacher returns courses where the teacher holds a section
// assignment or the legacy single assignment.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Course, error) {
	const query = `SELECT DISTINCT c.id, c.code, c.name, c.semester, c.academic_year, c.assigned_teacher_id, c.created_at, c.updated_at
        FROM courses c
        LEFT JOIN course_section_teachers cst ON cst.course_id = c.id
        WHERE cst.teacher_id = $1 OR c.assigned_teacher_id = $1
        ORDER BY c.code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list courses by teacher: %w", err)
	}
	for i := range courses {
		teachers, err := r.ListSectionTeachers(ctx, courses[i].ID)
		if err != nil {
			return nil, err
		}
		courses[i].SectionTeachers = teachers
	}
	return courses, nil
}
