package models

import "time"

// Course is a teaching unit students enroll into for a term.
type Course struct {
	ID               string     `db:"id" json:"id"`
	Code             string     `db:"code" json:"code"`
	Name             string     `db:"name" json:"name"`
	TermID           string     `db:"term_id" json:"term_id"`
	TotalHours       float64    `db:"total_hours" json:"total_hours"`
	AbsenceThreshold *float64   `db:"absence_threshold" json:"absence_threshold,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	ArchivedAt       *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

// Session is one scheduled occurrence of a course.
type Session struct {
	ID             string    `db:"id" json:"id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	Date           time.Time `db:"date" json:"date"`
	ScheduledHours float64   `db:"scheduled_hours" json:"scheduled_hours"`
	Room           *string   `db:"room" json:"room,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
