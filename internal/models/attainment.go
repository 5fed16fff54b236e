package models

import "time"

// AttainmentType identifies a course-level rollup bucket.
type AttainmentType string

const (
	AttainmentCTFinal         AttainmentType = "CT_FINAL"
	AttainmentAssignmentFinal AttainmentType = "ASSIGNMENT_FINAL"
	AttainmentOverall         AttainmentType = "OVERALL"
)

// COAttainment is the per-CO Y/N classification for one exam and section.
// A nil ExamID marks a cross-exam combined record; a nil Section means the
// record aggregates all sections. ExamLabel carries the exam's name.
type COAttainment struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	ExamID     *string   `db:"exam_id" json:"exam_id,omitempty"`
	ExamLabel  string    `db:"exam_label" json:"exam_label"`
	Section    *string   `db:"section" json:"section,omitempty"`
	CONumber   int       `db:"co_number" json:"co_number"`
	Y          int       `db:"y" json:"y"`
	N          int       `db:"n" json:"n"`
	Percentage float64   `db:"percentage" json:"percentage"`
	Level      int       `db:"level" json:"level"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CourseAttainment is the course-level rollup per type and section. A nil
// Section is the cross-section combined record. For OVERALL only Level is
// meaningful; TotalY, TotalN and Percentage stay nil.
type CourseAttainment struct {
	ID         string         `db:"id" json:"id"`
	CourseID   string         `db:"course_id" json:"course_id"`
	Type       AttainmentType `db:"type" json:"type"`
	Section    *string        `db:"section" json:"section,omitempty"`
	TotalY     *int           `db:"total_y" json:"total_y,omitempty"`
	TotalN     *int           `db:"total_n" json:"total_n,omitempty"`
	Percentage *float64       `db:"percentage" json:"percentage,omitempty"`
	Level      int            `db:"level" json:"level"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// RosterSnapshot is the set of enrolled students a calculator operates on.
// It is resolved once at the start of an invocation and threaded explicitly,
// never re-fetched mid-calculation.
type RosterSnapshot struct {
	CourseID     string
	Semester     *int
	AcademicYear *string
	Section      *string
	StudentIDs   []string
	ResolvedAt   time.Time
}

// Size returns the number of students in the snapshot.
func (r RosterSnapshot) Size() int {
	return len(r.StudentIDs)
}

// FinalSummary is one course-final bucket inside the attainment summary.
type FinalSummary struct {
	TotalY     *int     `json:"total_y"`
	TotalN     *int     `json:"total_n"`
	Percentage *float64 `json:"percentage"`
	Level      *int     `json:"level"`
}

// AttainmentSummary is the combined cross-section view of a course, served
// through a read-through cache and rebuilt from the course_attainments rows
// with a nil section.
type AttainmentSummary struct {
	CourseID        string       `json:"course_id"`
	OverallLevel    *int         `json:"overall_level"`
	CTFinal         FinalSummary `json:"ct_final"`
	AssignmentFinal FinalSummary `json:"assignment_final"`
	GeneratedAt     time.Time    `json:"generated_at"`
}

// CombinedCOAttainment aggregates CO attainment across all sections and
// exams of a course.
type CombinedCOAttainment struct {
	CONumber   int     `json:"co_number"`
	Y          int     `json:"y"`
	N          int     `json:"n"`
	Percentage float64 `json:"percentage"`
	Level      int     `json:"level"`
}

// CourseAttainmentView is the full read-side answer for a course: raw
// per-section records, the combined summary and the combined per-CO rollup.
type CourseAttainmentView struct {
	CourseID   string                 `json:"course_id"`
	PerSection []CourseAttainment     `json:"per_section"`
	Combined   *AttainmentSummary     `json:"combined"`
	CombinedCO []CombinedCOAttainment `json:"combined_co"`
}
