package models

import "time"

// ProgramOutcome is a program-wide competency.
type ProgramOutcome struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CourseOutcome is a numbered learning objective within a course.
type CourseOutcome struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Number      int       `db:"number" json:"number"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// COPOMapping links a course outcome to a program outcome with a
// strength level of 1 to 3.
type COPOMapping struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CONumber  int       `db:"co_number" json:"co_number"`
	POCode    string    `db:"po_code" json:"po_code"`
	Level     int       `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// COPOMappingDetail enriches a mapping with course identification.
type COPOMappingDetail struct {
	COPOMapping
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}
