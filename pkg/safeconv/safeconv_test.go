package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustUintToUint32(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(42), MustUintToUint32(42))
	})

	t.Run("max_uint32", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, MaxUint32, MustUintToUint32(uint(MaxUint32)))
	})

	t.Run("overflow_panics", func(t *testing.T) {
		t.Parallel()

		if uint64(^uint(0)) <= math.MaxUint32 {
			t.Skip("uint is 32-bit")
		}

		big := uint64(MaxUint32) + 1

		assert.PanicsWithValue(t, "safeconv: uint to uint32 overflow", func() {
			MustUintToUint32(uint(big))
		})
	})
}

func TestMustIntTo(t *testing.T) {
	t.Parallel()

	t.Run("uint32", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(7), MustIntTo[uint32](7))
	})

	t.Run("uint64", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint64(MaxInt), MustIntTo[uint64](MaxInt))
	})

	t.Run("negative_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: int out of bounds for position width", func() {
			MustIntTo[uint64](-1)
		})
	})

	t.Run("overflow_panics", func(t *testing.T) {
		t.Parallel()

		if MaxInt <= math.MaxUint32 {
			t.Skip("int is 32-bit")
		}

		big := uint64(MaxUint32) + 1

		assert.Panics(t, func() {
			MustIntTo[uint32](int(big))
		})
	})
}

func TestMustToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 9, MustToInt(uint32(9)))
	assert.Equal(t, MaxInt, MustToInt(uint64(MaxInt)))

	assert.PanicsWithValue(t, "safeconv: position to int overflow", func() {
		MustToInt(uint64(math.MaxUint64))
	})
}

func TestFitsIn(t *testing.T) {
	t.Parallel()

	assert.True(t, FitsIn[uint32](math.MaxUint32))
	assert.False(t, FitsIn[uint32](math.MaxUint32+1))
	assert.True(t, FitsIn[uint64](math.MaxUint64))
}
