package models

import "time"

// Enrollment registers a student to a course within a term. It carries the
// persisted eligibility flag, which only the eligibility engine may mutate,
// and the exemption override fields, which only an authorized grant/revoke
// may mutate.
type Enrollment struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	CourseID         string    `db:"course_id" json:"course_id"`
	TermID           string    `db:"term_id" json:"term_id"`
	EligibleForExam  bool      `db:"eligible_for_exam" json:"eligible_for_exam"`
	ExemptionGranted bool      `db:"exemption_granted" json:"exemption_granted"`
	ExemptionReason  *string   `db:"exemption_reason" json:"exemption_reason,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string  `db:"student_name" json:"student_name"`
	CourseCode  string  `db:"course_code" json:"course_code"`
	CourseName  string  `db:"course_name" json:"course_name"`
	TermName    *string `db:"term_name" json:"term_name,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	TermID    string
	Page      int
	PageSize  int
}
