package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRand_SameSeedSameStream(t *testing.T) {
	a := NewRand(42)
	b := NewRand(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestNewRand_DifferentSeedsDiverge(t *testing.T) {
	a := NewRand(1)
	b := NewRand(2)
	same := 0
	for i := 0; i < 16; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	assert.Less(t, same, 16)
}

func TestNew_ZeroSeedIsReplaced(t *testing.T) {
	src := New(0)
	assert.NotZero(t, src.Seed)
	assert.Positive(t, src.Seed)
	assert.NotNil(t, src.Rand)
}

func TestNew_KeepsExplicitSeed(t *testing.T) {
	src := New(7)
	assert.Equal(t, int64(7), src.Seed)
	assert.Equal(t, NewRand(7).Uint64(), src.Rand.Uint64())
}
