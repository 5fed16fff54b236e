package models

import "time"

// Course represents an academic course tracked for outcome attainment.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	Semester     *int      `db:"semester" json:"semester,omitempty"`
	AcademicYear *string   `db:"academic_year" json:"academic_year,omitempty"`
	// AssignedTeacherID is the legacy single-teacher assignment. It is kept in
	// sync only while the course has exactly one section-teacher pair.
	AssignedTeacherID *string   `db:"assigned_teacher_id" json:"assigned_teacher_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`

	SectionTeachers []SectionTeacher `json:"section_teachers,omitempty"`
}

// SectionTeacher assigns one teacher to one section of a course.
type SectionTeacher struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Section   string    `db:"section" json:"section"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssignedCourse is a course as seen by one teacher, restricted to the
// sections they own. Sections is empty under a legacy assignment.
type AssignedCourse struct {
	ID           string   `json:"id"`
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Semester     *int     `json:"semester,omitempty"`
	AcademicYear *string  `json:"academic_year,omitempty"`
	Sections     []string `json:"sections"`
	Legacy       bool     `json:"legacy,omitempty"`
}
