package dto

// PreAssignRequest locks an invigilator onto an exam.
type PreAssignRequest struct {
	InvigilatorID string `json:"invigilator_id" validate:"required"`
	Locked        bool   `json:"locked"`
}
