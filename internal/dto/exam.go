package dto

import (
	"strings"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/requirement"
)

// ExamListQuery binds GET /exams query parameters.
type ExamListQuery struct {
	SessionID string `form:"sessionId"`
	Status    string `form:"status"`
	Code      string `form:"code"`
	Date      string `form:"date"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// UpdateExamStatusRequest moves an exam through the validation workflow.
type UpdateExamStatusRequest struct {
	Status models.ValidationStatus `json:"status" validate:"required,oneof=not_processed in_progress validated rejected"`
}

// EditGroupRequest sets the theoretical total of a logical exam group.
// A nil Theoretical clears the override on every row.
type EditGroupRequest struct {
	SessionID   string `json:"session_id"`
	Code        string `json:"code" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required"`
	Room        string `json:"room" validate:"required"`
	Theoretical *int   `json:"theoretical" validate:"omitempty,min=0"`
}

// Key returns the group key addressed by the request.
func (r EditGroupRequest) Key() requirement.GroupKey {
	return requirement.GroupKey{
		Code:      strings.TrimSpace(r.Code),
		Date:      strings.TrimSpace(r.Date),
		StartTime: strings.TrimSpace(r.StartTime),
		Room:      strings.TrimSpace(r.Room),
	}
}

// EditGroupResponse reports how a group edit was applied.
type EditGroupResponse struct {
	Key            requirement.GroupKey       `json:"key"`
	ExamIDs        []string                   `json:"exam_ids"`
	Redistribution requirement.Redistribution `json:"redistribution"`
}
