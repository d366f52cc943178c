package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDivRoundUp(t *testing.T) {
	tests := map[string]struct {
		n, d, want uint32
	}{
		"exact":        {1024, 256, 4},
		"remainder":    {1025, 256, 5},
		"zero divisor": {10, 0, 0},
		"zero":         {0, 256, 0},
		"near max":     {math.MaxUint32, 256, 16777216},
		"max exact":    {math.MaxUint32, math.MaxUint32, 1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, DivRoundUp(tt.n, tt.d))
		})
	}
}

func TestGroupCount(t *testing.T) {
	assert.Equal(t, [3]uint32{4, 1024, 1}, GroupCount([3]uint32{1024, 1024, 1}, [3]uint32{256, 1, 1}))
	assert.Equal(t, [3]uint32{16777216, 1, 1}, GroupCount([3]uint32{math.MaxUint32, 1, 1}, [3]uint32{256, 1, 1}))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 256, AlignUp(1, 256))
	assert.Equal(t, 256, AlignUp(256, 256))
	assert.Equal(t, 7, AlignUp(7, 0))
}
