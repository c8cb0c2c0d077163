package dto

// RoomConstraintRequest creates or updates a room constraint.
type RoomConstraintRequest struct {
	RoomLabel     string  `json:"room_label" validate:"required,max=120"`
	RequiredCount *int    `json:"required_count" validate:"required,min=0,max=100"`
	Notes         *string `json:"notes" validate:"omitempty,max=500"`
}
