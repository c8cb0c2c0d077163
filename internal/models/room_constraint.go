package models

import "time"

// RoomConstraint maps a room label to the number of invigilators it requires.
type RoomConstraint struct {
	ID            string    `db:"id" json:"id"`
	RoomLabel     string    `db:"room_label" json:"room_label"`
	RequiredCount int       `db:"required_count" json:"required_count"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
