package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustIntToUint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint(42), MustIntToUint(42))
	assert.Equal(t, uint(0), MustIntToUint(0))
	assert.PanicsWithValue(t, "safeconv: negative int to uint conversion", func() {
		MustIntToUint(-1)
	})
}

func TestMustIntToUint32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  int
		want   uint32
		panics bool
	}{
		{name: "zero", input: 0, want: 0},
		{name: "symbols", input: 14, want: 14},
		{name: "max", input: int(MaxUint32), want: MaxUint32},
		{name: "negative", input: -1, panics: true},
		{name: "overflow", input: int(MaxUint32) + 1, panics: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.panics {
				assert.PanicsWithValue(t, "safeconv: int to uint32 out of bounds", func() {
					MustIntToUint32(tt.input)
				})

				return
			}

			assert.Equal(t, tt.want, MustIntToUint32(tt.input))
		})
	}
}

func TestMustUint64ToInt64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(7), MustUint64ToInt64(7))
	assert.Equal(t, int64(math.MaxInt64), MustUint64ToInt64(math.MaxInt64))
	assert.PanicsWithValue(t, "safeconv: uint64 to int64 overflow", func() {
		MustUint64ToInt64(math.MaxInt64 + 1)
	})
}
