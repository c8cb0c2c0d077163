package requirement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

// Input gathers one exam row with its helpers and attributions.
type Input struct {
	Exam         models.Exam
	Helpers      []models.HelperPerson
	Attributions []models.Attribution
}

// Unit is the requirement breakdown of one exam row, or of a collapsed group.
type Unit struct {
	ExamIDs           []string          `json:"exam_ids"`
	Code              string            `json:"code"`
	Subject           string            `json:"subject"`
	Date              string            `json:"date"`
	StartTime         string            `json:"start_time"`
	EndTime           string            `json:"end_time"`
	Room              string            `json:"room"`
	Status            string            `json:"status,omitempty"`
	Theoretical       int               `json:"theoretical"`
	TheoreticalSource TheoreticalSource `json:"theoretical_source"`
	TeacherPresent    int               `json:"teacher_present"`
	HelpersCounted    int               `json:"helpers_counted"`
	PreAssigned       int               `json:"pre_assigned"`
	NetNeed           int               `json:"net_need"`
	Rooms             []Resolution      `json:"rooms,omitempty"`
	Warnings          []Warning         `json:"warnings,omitempty"`
	// Grouped marks a collapsed group whose Room is already unified.
	Grouped bool `json:"grouped,omitempty"`
}

// Covered returns the coverage total of the unit.
func (u Unit) Covered() int {
	return u.TeacherPresent + u.HelpersCounted + u.PreAssigned
}

// BuildUnit computes the per-row requirement of one exam.
func BuildUnit(in Input, table *ConstraintTable) Unit {
	theo := Theoretical(in.Exam, table)
	cov := Coverage(in.Exam, in.Helpers, in.Attributions)

	u := Unit{
		ExamIDs:           []string{in.Exam.ID},
		Code:              strings.TrimSpace(in.Exam.Code),
		Subject:           in.Exam.Subject,
		Date:              in.Exam.DateKey(),
		StartTime:         strings.TrimSpace(in.Exam.StartTime),
		EndTime:           strings.TrimSpace(in.Exam.EndTime),
		Room:              strings.TrimSpace(in.Exam.RoomLabel),
		Status:            string(in.Exam.ValidationStatus),
		Theoretical:       theo.Total,
		TheoreticalSource: theo.Source,
		TeacherPresent:    cov.TeacherPresent,
		HelpersCounted:    cov.HelpersCounted,
		PreAssigned:       cov.PreAssigned,
		Rooms:             theo.Rooms,
	}
	u.NetNeed = NetNeed(u.Theoretical, u.TeacherPresent, u.HelpersCounted, u.PreAssigned)
	u.Warnings = append(append(u.Warnings, theo.Warnings...), cov.Warnings...)
	return u
}

// GroupKey identifies a logical exam.
type GroupKey struct {
	Code      string `json:"code"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Room      string `json:"room"`
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Code, k.Date, k.StartTime, k.Room)
}

func (k GroupKey) matchKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Code, k.Date, k.StartTime, NormalizeRoom(k.Room))
}

// KeyOf returns the group key of a unit.
func KeyOf(u Unit) GroupKey {
	room := UnifiedRoom(u.Room)
	if u.Grouped {
		room = strings.TrimSpace(u.Room)
	}
	return GroupKey{Code: u.Code, Date: u.Date, StartTime: u.StartTime, Room: room}
}

// Matches reports whether the exam row belongs to the group identified by k.
func (k GroupKey) Matches(exam models.Exam) bool {
	other := GroupKey{
		Code:      strings.TrimSpace(exam.Code),
		Date:      exam.DateKey(),
		StartTime: strings.TrimSpace(exam.StartTime),
		Room:      UnifiedRoom(exam.RoomLabel),
	}
	return other.matchKey() == k.matchKey()
}

// GroupResult aggregates the rows of one logical exam.
type GroupResult struct {
	Key            GroupKey  `json:"key"`
	Subject        string    `json:"subject"`
	EndTime        string    `json:"end_time"`
	Theoretical    int       `json:"theoretical"`
	TeacherPresent int       `json:"teacher_present"`
	HelpersCounted int       `json:"helpers_counted"`
	PreAssigned    int       `json:"pre_assigned"`
	NetNeed        int       `json:"net_need"`
	Rows           []Unit    `json:"rows"`
	Warnings       []Warning `json:"warnings,omitempty"`
}

// Covered returns the coverage total of the group.
func (g GroupResult) Covered() int {
	return g.TeacherPresent + g.HelpersCounted + g.PreAssigned
}

// ExamIDs returns the ids of every underlying exam row.
func (g GroupResult) ExamIDs() []string {
	var ids []string
	for _, r := range g.Rows {
		ids = append(ids, r.ExamIDs...)
	}
	return ids
}

// Group folds units sharing code, date, start time and unified room into one
// logical exam. Every total is the sum over the rows; the net need is the sum
// of each row's own clamped net need, so a row with surplus coverage never
// reduces the need of another row.
func Group(units []Unit) []GroupResult {
	index := make(map[string]int)
	groups := make([]GroupResult, 0)
	for _, u := range units {
		key := KeyOf(u)
		mk := key.matchKey()
		i, ok := index[mk]
		if !ok {
			i = len(groups)
			index[mk] = i
			groups = append(groups, GroupResult{Key: key, Subject: u.Subject, EndTime: u.EndTime})
		}
		g := &groups[i]
		if g.EndTime < u.EndTime {
			g.EndTime = u.EndTime
		}
		g.Theoretical += u.Theoretical
		g.TeacherPresent += u.TeacherPresent
		g.HelpersCounted += u.HelpersCounted
		g.PreAssigned += u.PreAssigned
		g.NetNeed += u.NetNeed
		g.Rows = append(g.Rows, u)
		g.Warnings = append(g.Warnings, u.Warnings...)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ka, kb := groups[a].Key, groups[b].Key
		if ka.Date != kb.Date {
			return ka.Date < kb.Date
		}
		if ka.StartTime != kb.StartTime {
			return ka.StartTime < kb.StartTime
		}
		if ka.Code != kb.Code {
			return ka.Code < kb.Code
		}
		return NormalizeRoom(ka.Room) < NormalizeRoom(kb.Room)
	})
	return groups
}

// Collapse turns the group into a single unit carrying the group totals.
// Grouping collapsed units again yields the same totals.
func (g GroupResult) Collapse() Unit {
	u := Unit{
		ExamIDs:        g.ExamIDs(),
		Code:           g.Key.Code,
		Subject:        g.Subject,
		Date:           g.Key.Date,
		StartTime:      g.Key.StartTime,
		EndTime:        g.EndTime,
		Room:           g.Key.Room,
		Theoretical:    g.Theoretical,
		TeacherPresent: g.TeacherPresent,
		HelpersCounted: g.HelpersCounted,
		PreAssigned:    g.PreAssigned,
		NetNeed:        g.NetNeed,
		Warnings:       append([]Warning(nil), g.Warnings...),
		Grouped:        true,
	}
	u.TheoreticalSource = TheoreticalComputed
	for _, r := range g.Rows {
		u.Rooms = append(u.Rooms, r.Rooms...)
		if r.TheoreticalSource != TheoreticalComputed {
			u.TheoreticalSource = r.TheoreticalSource
		}
	}
	return u
}
