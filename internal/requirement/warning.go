// Package requirement computes how many invigilators each exam needs.
//
// Every function is pure: callers fetch exams, constraints, helpers and
// attributions for an explicit session and pass them in. Policy defaults never
// produce errors; they are reported as Warnings on the results instead.
package requirement

import "fmt"

// WarningCode classifies a recoverable condition met during a computation.
type WarningCode string

const (
	// WarnMissingConstraint marks a room that fell back to the default requirement of 1.
	WarnMissingConstraint WarningCode = "MISSING_CONSTRAINT"
	// WarnMalformedRoomLabel marks an exam whose room label holds no room.
	WarnMalformedRoomLabel WarningCode = "MALFORMED_ROOM_LABEL"
	// WarnNegativeInput marks a negative count that was clamped to 0.
	WarnNegativeInput WarningCode = "NEGATIVE_INPUT"
	// WarnInconsistentGroupRounding marks a group edit whose per-row split does not add up to the requested total.
	WarnInconsistentGroupRounding WarningCode = "INCONSISTENT_GROUP_ROUNDING"
	// WarnConstraintsUnavailable marks a computation run without a constraint table.
	WarnConstraintsUnavailable WarningCode = "CONSTRAINTS_UNAVAILABLE"
)

// Warning is a structured, non-fatal signal surfaced to callers.
type Warning struct {
	Code    WarningCode `json:"code"`
	ExamID  string      `json:"exam_id,omitempty"`
	Room    string      `json:"room,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Room != "" {
		return fmt.Sprintf("%s[%s]: %s", w.Code, w.Room, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

func clamp(v int) (int, bool) {
	if v < 0 {
		return 0, true
	}
	return v, false
}

func negativeWarning(examID, field string, value int) Warning {
	return Warning{
		Code:    WarnNegativeInput,
		ExamID:  examID,
		Message: fmt.Sprintf("%s was %d, clamped to 0", field, value),
	}
}
