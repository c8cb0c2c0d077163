package requirement

import (
	"fmt"
	"strings"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

// TheoreticalSource tells which policy produced a theoretical requirement.
type TheoreticalSource string

const (
	TheoreticalOverride TheoreticalSource = "override"
	TheoreticalComputed TheoreticalSource = "computed"
	TheoreticalStored   TheoreticalSource = "stored"
	TheoreticalDefault  TheoreticalSource = "defaulted"
)

// TheoreticalResult is the invigilator count derived from room constraints alone.
type TheoreticalResult struct {
	Total    int               `json:"total"`
	Source   TheoreticalSource `json:"source"`
	Rooms    []Resolution      `json:"rooms"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

// SplitRooms splits a comma separated room label into trimmed, non-empty tokens.
func SplitRooms(label string) []string {
	parts := strings.Split(label, ",")
	rooms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			rooms = append(rooms, p)
		}
	}
	return rooms
}

// Theoretical sums the resolved requirement of every room of the exam.
//
// An administrator override wins. Otherwise the value is computed from table.
// A nil table means constraints could not be loaded: the stored snapshot is
// used when present, else every room counts DefaultRequirement.
func Theoretical(exam models.Exam, table *ConstraintTable) TheoreticalResult {
	rooms := SplitRooms(exam.RoomLabel)
	res := TheoreticalResult{Rooms: make([]Resolution, 0, len(rooms))}

	if exam.TheoreticalOverride != nil {
		total, negative := clamp(*exam.TheoreticalOverride)
		if negative {
			res.Warnings = append(res.Warnings, negativeWarning(exam.ID, "theoretical override", *exam.TheoreticalOverride))
		}
		res.Total = total
		res.Source = TheoreticalOverride
		for _, room := range rooms {
			res.Rooms = append(res.Rooms, table.Resolve(room))
		}
		return res
	}

	if len(rooms) == 0 {
		res.Source = TheoreticalComputed
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnMalformedRoomLabel,
			ExamID:  exam.ID,
			Room:    exam.RoomLabel,
			Message: "room label has no room, theoretical requirement is 0",
		})
		return res
	}

	if table == nil {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnConstraintsUnavailable,
			ExamID:  exam.ID,
			Message: "room constraints unavailable",
		})
		if exam.TheoreticalCount != nil {
			total, negative := clamp(*exam.TheoreticalCount)
			if negative {
				res.Warnings = append(res.Warnings, negativeWarning(exam.ID, "stored theoretical count", *exam.TheoreticalCount))
			}
			res.Total = total
			res.Source = TheoreticalStored
			return res
		}
		for _, room := range rooms {
			res.Rooms = append(res.Rooms, table.Resolve(room))
		}
		res.Total = len(rooms) * DefaultRequirement
		res.Source = TheoreticalDefault
		return res
	}

	res.Source = TheoreticalComputed
	for _, room := range rooms {
		r := table.Resolve(room)
		if r.Defaulted() {
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarnMissingConstraint,
				ExamID:  exam.ID,
				Room:    r.Room,
				Message: fmt.Sprintf("no constraint for room, defaulting to %d", DefaultRequirement),
			})
		}
		res.Rooms = append(res.Rooms, r)
		res.Total += r.Required
	}
	return res
}
