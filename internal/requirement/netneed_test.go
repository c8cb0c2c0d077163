package requirement

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetNeedMatchesDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		theo, teacher, helpers, pre := rng.Intn(20), rng.Intn(2), rng.Intn(6), rng.Intn(6)
		want := theo - teacher - helpers - pre
		if want < 0 {
			want = 0
		}
		got := NetNeed(theo, teacher, helpers, pre)
		assert.Equal(t, want, got)
		assert.GreaterOrEqual(t, got, 0)
	}
}

func TestNetNeedOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		theo, a, b, c := rng.Intn(15), rng.Intn(5), rng.Intn(5), rng.Intn(5)
		want := NetNeed(theo, a, b, c)
		assert.Equal(t, want, NetNeed(theo, c, a, b))
		assert.Equal(t, want, NetNeed(theo, b, c, a))
		assert.Equal(t, want, NetNeed(theo, a, c, b))
	}
}

func TestNetNeedClampsNegativeInputs(t *testing.T) {
	assert.Equal(t, 3, NetNeed(3, -5, 0, 0))
	assert.Equal(t, 0, NetNeed(-4, 0, 0, 0))
	assert.Equal(t, 2, NetNeed(4, 1, -1, 1))
}
