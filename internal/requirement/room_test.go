package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

func constraints(pairs ...interface{}) []models.RoomConstraint {
	out := make([]models.RoomConstraint, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.RoomConstraint{RoomLabel: pairs[i].(string), RequiredCount: pairs[i+1].(int)})
	}
	return out
}

func TestResolveNormalisesLabels(t *testing.T) {
	table := NewConstraintTable(constraints("Amphi  Nord", 4, "Salle B12", 2))

	cases := map[string]int{
		"Amphi Nord":     4,
		"  amphi   nord": 4,
		"AMPHINORD":      4,
		"salle b12":      2,
		"SalleB12":       2,
	}
	for room, want := range cases {
		r := table.Resolve(room)
		assert.Equal(t, want, r.Required, room)
		assert.Equal(t, SourceConstraint, r.Source, room)
	}
}

func TestResolveDefaultIsDistinguishable(t *testing.T) {
	table := NewConstraintTable(constraints("R1", 1))

	matched := table.Resolve("R1")
	defaulted := table.Resolve("R9")

	assert.Equal(t, matched.Required, defaulted.Required)
	assert.False(t, matched.Defaulted())
	assert.True(t, defaulted.Defaulted())
}

func TestResolveLetteredFamilySumsSubRooms(t *testing.T) {
	table := NewConstraintTable(constraints("Hall A", 2, "Hall B", 3, "Hall", 9))

	r := table.Resolve("Hall")
	assert.Equal(t, 5, r.Required)
	assert.Equal(t, SourceFamily, r.Source)
	assert.ElementsMatch(t, []string{"Hall A", "Hall B"}, r.Members)

	assert.Equal(t, 2, table.Resolve("hall a").Required)
	assert.Equal(t, 3, table.Resolve("Hall B").Required)
}

func TestResolveClampsNegativeConstraints(t *testing.T) {
	table := NewConstraintTable(constraints("R1", -2, "R1", 5))

	r := table.Resolve("R1")
	assert.Equal(t, 0, r.Required)
	assert.Equal(t, SourceConstraint, r.Source)
	assert.Equal(t, 1, table.Len())
	if assert.Len(t, table.Warnings(), 1) {
		assert.Equal(t, WarnNegativeInput, table.Warnings()[0].Code)
	}
}

func TestResolveOnNilTableDefaults(t *testing.T) {
	var table *ConstraintTable
	r := table.Resolve("R1")
	assert.Equal(t, DefaultRequirement, r.Required)
	assert.True(t, r.Defaulted())
	assert.Zero(t, table.Len())
}

func TestUnifiedRoom(t *testing.T) {
	cases := map[string]string{
		"Hall A":         "Hall",
		"  Hall   b ":    "Hall",
		"Amphi Nord":     "Amphi Nord",
		"R1, R2":         "R1, R2",
		"Hall A, Hall B": "Hall A, Hall B",
		"B":              "B",
		" Salle 101 ":    "Salle 101",
	}
	for in, want := range cases {
		assert.Equal(t, want, UnifiedRoom(in), in)
	}
}
