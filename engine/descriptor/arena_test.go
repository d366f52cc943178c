package descriptor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocateIsContiguous(t *testing.T) {
	a := NewArena(KindGeneral, 16)

	assert.Equal(t, 0, a.Allocate(3))
	assert.Equal(t, 3, a.Allocate(5))
	assert.Equal(t, 8, a.Cursor())
}

func TestArenaBeginFrameResetsCursor(t *testing.T) {
	a := NewArena(KindSampler, 8)
	a.Allocate(7)

	a.BeginFrame()

	assert.Equal(t, 0, a.Allocate(1))
	assert.Equal(t, 1, a.Cursor())
}

func TestArenaFillsExactlyToCapacity(t *testing.T) {
	a := NewArena(KindGeneral, 4)

	assert.Equal(t, 0, a.Allocate(4))
	assert.Equal(t, a.Capacity(), a.Cursor())
}

func TestArenaOverflowPanics(t *testing.T) {
	a := NewArena(KindGeneral, 4)
	a.Allocate(3)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok, "panic value should be an error")
		assert.True(t, errors.Is(err, ErrArenaExhausted))
		assert.Contains(t, err.Error(), "general")
	}()
	a.Allocate(2)
}

func TestArenaRejectsNonPositiveCount(t *testing.T) {
	a := NewArena(KindGeneral, 4)

	assert.Panics(t, func() { a.Allocate(0) })
	assert.Panics(t, func() { a.Allocate(-1) })
	assert.Equal(t, 0, a.Cursor())
}

func TestNewArenaRejectsZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { NewArena(KindSampler, 0) })
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "general", KindGeneral.String())
	assert.Equal(t, "sampler", KindSampler.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}
