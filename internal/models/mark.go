package models

import "time"

// StudentMark is one record per (student, question) pair, upserted on entry.
type StudentMark struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	QuestionID    string    `db:"question_id" json:"question_id"`
	MarksObtained float64   `db:"marks_obtained" json:"marks_obtained"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// MarksheetQuestion is a question row in the marksheet view; QNo is the
// 1-based position in the exam's stable question ordering.
type MarksheetQuestion struct {
	ID       string  `json:"id"`
	QNo      int     `json:"q_no"`
	CONumber int     `json:"co_number"`
	MaxMarks float64 `json:"max_marks"`
}

// MarksheetStudent is a student row with their existing marks keyed by
// question ID.
type MarksheetStudent struct {
	StudentID string             `json:"student_id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Section   *string            `json:"section,omitempty"`
	Marks     map[string]float64 `json:"marks"`
}

// Marksheet bundles everything a client needs to display and edit marks for
// one exam and section.
type Marksheet struct {
	Exam      Exam                `json:"exam"`
	Course    Course              `json:"course"`
	Section   *string             `json:"section,omitempty"`
	Questions []MarksheetQuestion `json:"questions"`
	Students  []MarksheetStudent  `json:"students"`
}

// MarksheetResult summarises a marksheet submission.
type MarksheetResult struct {
	Section *string `json:"section,omitempty"`
	Updated int     `json:"updated"`
	Skipped int     `json:"skipped"`
}
