package models

import "time"

// ValidationStatus tracks the administrator review of an imported exam.
type ValidationStatus string

const (
	ExamStatusNotProcessed ValidationStatus = "not_processed"
	ExamStatusInProgress   ValidationStatus = "in_progress"
	ExamStatusValidated    ValidationStatus = "validated"
	ExamStatusRejected     ValidationStatus = "rejected"
)

var examTransitions = map[ValidationStatus][]ValidationStatus{
	ExamStatusNotProcessed: {ExamStatusInProgress, ExamStatusRejected},
	ExamStatusInProgress:   {ExamStatusValidated},
}

// Valid reports whether s is a known status.
func (s ValidationStatus) Valid() bool {
	switch s {
	case ExamStatusNotProcessed, ExamStatusInProgress, ExamStatusValidated, ExamStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ValidationStatus) Terminal() bool {
	return s == ExamStatusValidated || s == ExamStatusRejected
}

// CanTransition reports whether moving from s to next is allowed. Staying on the same status is allowed.
func (s ValidationStatus) CanTransition(next ValidationStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range examTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Exam is one scheduled exam row. Several rows sharing code, date, start time and
// a lettered room family form a single logical exam.
type Exam struct {
	ID                  string           `db:"id" json:"id"`
	SessionID           string           `db:"session_id" json:"session_id"`
	Code                string           `db:"code" json:"code"`
	Subject             string           `db:"subject" json:"subject"`
	ExamDate            time.Time        `db:"exam_date" json:"exam_date"`
	StartTime           string           `db:"start_time" json:"start_time"`
	EndTime             string           `db:"end_time" json:"end_time"`
	RoomLabel           string           `db:"room_label" json:"room_label"`
	ValidationStatus    ValidationStatus `db:"validation_status" json:"validation_status"`
	TeacherPresent      bool             `db:"teacher_present" json:"teacher_present"`
	TheoreticalOverride *int             `db:"theoretical_override" json:"theoretical_override,omitempty"`
	TheoreticalCount    *int             `db:"theoretical_count" json:"theoretical_count,omitempty"`
	TeacherCount        int              `db:"teacher_count" json:"teacher_count"`
	HelperCount         int              `db:"helper_count" json:"helper_count"`
	PreAssignedCount    int              `db:"pre_assigned_count" json:"pre_assigned_count"`
	Active              bool             `db:"active" json:"active"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// DateKey returns the exam date formatted as YYYY-MM-DD.
func (e Exam) DateKey() string {
	if e.ExamDate.IsZero() {
		return ""
	}
	return e.ExamDate.Format("2006-01-02")
}

// ExamFilter captures list filters for exams of a session.
type ExamFilter struct {
	SessionID  string
	Status     *ValidationStatus
	Code       string
	Date       *time.Time
	ActiveOnly bool
	Page       int
	PageSize   int
}

// ExamSnapshot carries the computed counters persisted back onto an exam row.
type ExamSnapshot struct {
	ExamID           string `db:"id"`
	TheoreticalCount int    `db:"theoretical_count"`
	TeacherCount     int    `db:"teacher_count"`
	HelperCount      int    `db:"helper_count"`
	PreAssignedCount int    `db:"pre_assigned_count"`
}
