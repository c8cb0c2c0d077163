package models

import "time"

// Attribution binds one invigilator to one exam within a session.
type Attribution struct {
	ID            string    `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	ExamID        string    `db:"exam_id" json:"exam_id"`
	InvigilatorID string    `db:"invigilator_id" json:"invigilator_id"`
	IsPreAssigned bool      `db:"is_pre_assigned" json:"is_pre_assigned"`
	IsObligatory  bool      `db:"is_obligatory" json:"is_obligatory"`
	IsLocked      bool      `db:"is_locked" json:"is_locked"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Locked reports whether the attribution is immune to automatic reassignment
// and therefore counts as coverage.
func (a Attribution) Locked() bool {
	return a.IsPreAssigned || a.IsObligatory || a.IsLocked
}
