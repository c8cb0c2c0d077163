package models

import "time"

// HelperPerson is someone a teacher brings to help proctor one exam.
type HelperPerson struct {
	ID                string    `db:"id" json:"id"`
	ExamID            string    `db:"exam_id" json:"exam_id"`
	Name              string    `db:"name" json:"name"`
	Email             *string   `db:"email" json:"email,omitempty"`
	IsAssistant       bool      `db:"is_assistant" json:"is_assistant"`
	PresentOnSite     bool      `db:"present_on_site" json:"present_on_site"`
	CountsTowardQuota bool      `db:"counts_toward_quota" json:"counts_toward_quota"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Counts reports whether the helper contributes to exam coverage.
// Assistants always count toward the quota.
func (h HelperPerson) Counts() bool {
	return h.PresentOnSite && (h.CountsTowardQuota || h.IsAssistant)
}
