package requirement

import (
	"sort"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

// Totals summarises a session.
type Totals struct {
	Groups         int `json:"groups"`
	Rows           int `json:"rows"`
	Theoretical    int `json:"theoretical"`
	Covered        int `json:"covered"`
	NetNeed        int `json:"net_need"`
	DefaultedRooms int `json:"defaulted_rooms"`
}

// Result is the full requirement computation for a set of exams.
type Result struct {
	SessionID      string        `json:"session_id"`
	Groups         []GroupResult `json:"groups"`
	Totals         Totals        `json:"totals"`
	UnmatchedRooms []string      `json:"unmatched_rooms"`
	Warnings       []Warning     `json:"warnings,omitempty"`
}

// Compute builds every row, groups them and summarises the session.
// A nil table yields a CONSTRAINTS_UNAVAILABLE warning on every row.
func Compute(sessionID string, inputs []Input, table *ConstraintTable) Result {
	units := make([]Unit, 0, len(inputs))
	for _, in := range inputs {
		units = append(units, BuildUnit(in, table))
	}

	res := Result{SessionID: sessionID, Groups: Group(units)}
	res.Warnings = append(res.Warnings, table.Warnings()...)
	res.UnmatchedRooms = UnmatchedRooms(units)

	for _, g := range res.Groups {
		res.Totals.Groups++
		res.Totals.Rows += len(g.Rows)
		res.Totals.Theoretical += g.Theoretical
		res.Totals.Covered += g.Covered()
		res.Totals.NetNeed += g.NetNeed
		res.Warnings = append(res.Warnings, g.Warnings...)
	}
	res.Totals.DefaultedRooms = len(res.UnmatchedRooms)
	return res
}

// UnmatchedRooms lists the distinct rooms that fell back to the default requirement.
func UnmatchedRooms(units []Unit) []string {
	seen := make(map[string]string)
	for _, u := range units {
		if u.TheoreticalSource != TheoreticalComputed {
			continue
		}
		for _, r := range u.Rooms {
			if r.Defaulted() {
				key := NormalizeRoom(r.Room)
				if _, ok := seen[key]; !ok {
					seen[key] = r.Room
				}
			}
		}
	}
	rooms := make([]string, 0, len(seen))
	for _, room := range seen {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Snapshot returns the counters persisted back onto the exam row of u.
func Snapshot(u Unit) models.ExamSnapshot {
	var id string
	if len(u.ExamIDs) > 0 {
		id = u.ExamIDs[0]
	}
	return models.ExamSnapshot{
		ExamID:           id,
		TheoreticalCount: u.Theoretical,
		TeacherCount:     u.TeacherPresent,
		HelperCount:      u.HelpersCounted,
		PreAssignedCount: u.PreAssigned,
	}
}
