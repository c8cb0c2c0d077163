package requirement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

func examAt(id, code, date, start, room string) models.Exam {
	d, _ := time.Parse("2006-01-02", date)
	return models.Exam{ID: id, Code: code, ExamDate: d, StartTime: start, RoomLabel: room}
}

func TestBuildUnitScenarioFullyCovered(t *testing.T) {
	table := NewConstraintTable(constraints("R1", 2, "R2", 1))
	exam := examAt("a", "EXA", "2024-01-15", "09:00", "R1, R2")
	exam.TeacherPresent = true
	exam.PreAssignedCount = 1

	u := BuildUnit(Input{
		Exam:    exam,
		Helpers: []models.HelperPerson{{ExamID: "a", PresentOnSite: true, CountsTowardQuota: true}},
	}, table)

	assert.Equal(t, 3, u.Theoretical)
	assert.Equal(t, 3, u.Covered())
	assert.Equal(t, 0, u.NetNeed)
	assert.Equal(t, "2024-01-15", u.Date)
}

func TestGroupLetteredFamilyScenario(t *testing.T) {
	table := NewConstraintTable(constraints("Hall A", 2, "Hall B", 3))
	units := []Unit{
		BuildUnit(Input{Exam: examAt("1", "EX1", "2024-01-15", "09:00", "Hall A")}, table),
		BuildUnit(Input{Exam: examAt("2", "EX1", "2024-01-15", "09:00", "Hall B")}, table),
	}

	groups := Group(units)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, GroupKey{Code: "EX1", Date: "2024-01-15", StartTime: "09:00", Room: "Hall"}, g.Key)
	assert.Equal(t, 5, g.Theoretical)
	assert.Equal(t, 5, g.NetNeed)
	assert.ElementsMatch(t, []string{"1", "2"}, g.ExamIDs())
}

func TestGroupKeepsDistinctKeysApart(t *testing.T) {
	table := NewConstraintTable(nil)
	units := []Unit{
		BuildUnit(Input{Exam: examAt("1", "EX1", "2024-01-15", "09:00", "Hall A")}, table),
		BuildUnit(Input{Exam: examAt("2", "EX1", "2024-01-15", "14:00", "Hall B")}, table),
		BuildUnit(Input{Exam: examAt("3", "EX2", "2024-01-15", "09:00", "Hall A")}, table),
		BuildUnit(Input{Exam: examAt("4", "EX1", "2024-01-14", "09:00", "R1, R2")}, table),
	}

	groups := Group(units)
	require.Len(t, groups, 4)
	assert.Equal(t, "2024-01-14", groups[0].Key.Date)
	assert.Equal(t, "R1, R2", groups[0].Key.Room)
	assert.Equal(t, "EX1", groups[1].Key.Code)
	assert.Equal(t, "EX2", groups[2].Key.Code)
	assert.Equal(t, "14:00", groups[3].Key.StartTime)
}

func TestGroupNetNeedClampsPerRow(t *testing.T) {
	table := NewConstraintTable(constraints("R1", 1, "R2", 3))
	over := examAt("1", "EX1", "2024-01-15", "09:00", "R1")
	over.TeacherPresent = true
	over.PreAssignedCount = 2
	under := examAt("2", "EX1", "2024-01-15", "09:00", "r1")

	groups := Group([]Unit{
		BuildUnit(Input{Exam: over}, table),
		BuildUnit(Input{Exam: under}, table),
	})
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, 2, g.Theoretical)
	assert.Equal(t, 3, g.Covered())
	assert.Equal(t, 1, g.NetNeed)
}

func TestGroupingIsIdempotent(t *testing.T) {
	table := NewConstraintTable(constraints("Hall A", 2, "Hall B", 3, "Block B A", 2, "Block B B", 1, "R1", 2))
	exams := []models.Exam{
		examAt("1", "EX1", "2024-01-15", "09:00", "Hall A"),
		examAt("2", "EX1", "2024-01-15", "09:00", "Hall B"),
		examAt("3", "EX2", "2024-01-15", "09:00", "Block B A"),
		examAt("4", "EX2", "2024-01-15", "09:00", "Block B B"),
		examAt("5", "EX3", "2024-01-16", "08:00", "R1"),
		examAt("6", "EX3", "2024-01-16", "08:00", "R1"),
	}
	exams[0].TeacherPresent = true
	exams[4].PreAssignedCount = 5

	units := make([]Unit, 0, len(exams))
	for _, e := range exams {
		units = append(units, BuildUnit(Input{Exam: e}, table))
	}
	first := Group(units)

	collapsed := make([]Unit, 0, len(first))
	for _, g := range first {
		collapsed = append(collapsed, g.Collapse())
	}
	second := Group(collapsed)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.Equal(t, first[i].Theoretical, second[i].Theoretical)
		assert.Equal(t, first[i].Covered(), second[i].Covered())
		assert.Equal(t, first[i].NetNeed, second[i].NetNeed)
		assert.ElementsMatch(t, first[i].ExamIDs(), second[i].ExamIDs())
	}
}

func TestGroupKeyMatches(t *testing.T) {
	key := GroupKey{Code: "EX1", Date: "2024-01-15", StartTime: "09:00", Room: "Hall"}

	assert.True(t, key.Matches(examAt("1", "EX1", "2024-01-15", "09:00", "hall  B")))
	assert.False(t, key.Matches(examAt("1", "EX1", "2024-01-15", "10:00", "Hall B")))
	assert.False(t, key.Matches(examAt("1", "EX1", "2024-01-15", "09:00", "Hall B, Hall C")))
}
