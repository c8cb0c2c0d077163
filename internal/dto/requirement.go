package dto

import "github.com/noah-isme/exam-surveillance-api/internal/requirement"

// SessionRequirementsResponse is the computed requirement view of a session.
type SessionRequirementsResponse struct {
	requirement.Result
	Policy requirement.Policy `json:"redistribution_policy"`
}

// ExamRequirementResponse is the per-row breakdown of one exam and its logical group.
type ExamRequirementResponse struct {
	ExamID string                  `json:"exam_id"`
	Unit   requirement.Unit        `json:"unit"`
	Group  requirement.GroupResult `json:"group"`
}

// WriteBackResponse reports the outcome of a snapshot write-back.
type WriteBackResponse struct {
	SessionID string `json:"session_id"`
	Rows      int    `json:"rows"`
	Updated   int    `json:"updated"`
}
