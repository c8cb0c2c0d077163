package requirement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedistributeCeilKeepsRoundingSlack(t *testing.T) {
	r := Redistribute(7, 2, PolicyCeil)

	assert.Equal(t, []int{4, 4}, r.PerRow)
	assert.Equal(t, 8, r.Applied)
	if assert.Len(t, r.Warnings, 1) {
		assert.Equal(t, WarnInconsistentGroupRounding, r.Warnings[0].Code)
	}
}

func TestRedistributeExactSpreadsRemainder(t *testing.T) {
	r := Redistribute(7, 3, PolicyExact)

	assert.Equal(t, []int{3, 2, 2}, r.PerRow)
	assert.Equal(t, 7, r.Applied)
	assert.Empty(t, r.Warnings)
}

func TestRedistributeDivisibleHasNoWarning(t *testing.T) {
	r := Redistribute(6, 3, PolicyCeil)
	assert.Equal(t, []int{2, 2, 2}, r.PerRow)
	assert.Empty(t, r.Warnings)
}

func TestRedistributeEdgeCases(t *testing.T) {
	assert.Empty(t, Redistribute(5, 0, PolicyCeil).PerRow)

	neg := Redistribute(-3, 2, PolicyExact)
	assert.Equal(t, []int{0, 0}, neg.PerRow)
	assert.Equal(t, WarnNegativeInput, neg.Warnings[0].Code)

	assert.Equal(t, PolicyCeil, Redistribute(1, 1, Policy("round")).Policy)
	assert.Equal(t, PolicyExact, ParsePolicy("exact"))
	assert.Equal(t, PolicyCeil, ParsePolicy(""))
}
