package models

import "time"

// ExamType classifies an exam for attainment rollups.
type ExamType string

// Exam types. CT-type exams feed CT_FINAL, assignments feed ASSIGNMENT_FINAL.
const (
	ExamTypePreCT      ExamType = "PRE_CT"
	ExamTypeCT1        ExamType = "CT1"
	ExamTypeCT2        ExamType = "CT2"
	ExamTypeCT3        ExamType = "CT3"
	ExamTypePUE        ExamType = "PUE"
	ExamTypeAssignment ExamType = "ASSIGNMENT"
	ExamTypeOther      ExamType = "OTHER"
)

// CTFinalTypes is the exam-type set aggregated into CT_FINAL. CT3 is not in
// this set; the upstream reports were built without it.
var CTFinalTypes = []ExamType{ExamTypePreCT, ExamTypeCT1, ExamTypeCT2, ExamTypePUE}

// AssignmentFinalTypes is the exam-type set aggregated into ASSIGNMENT_FINAL.
var AssignmentFinalTypes = []ExamType{ExamTypeAssignment}

// ValidExamType reports whether t is a member of the exam type enumeration.
func ValidExamType(t ExamType) bool {
	switch t {
	case ExamTypePreCT, ExamTypeCT1, ExamTypeCT2, ExamTypeCT3, ExamTypePUE, ExamTypeAssignment, ExamTypeOther:
		return true
	}
	return false
}

// Exam belongs to exactly one course.
type Exam struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	Type      ExamType  `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Question belongs to exactly one exam and is tagged with a CO number.
type Question struct {
	ID        string    `db:"id" json:"id"`
	ExamID    string    `db:"exam_id" json:"exam_id"`
	CONumber  int       `db:"co_number" json:"co_number"`
	MaxMarks  float64   `db:"max_marks" json:"max_marks"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
