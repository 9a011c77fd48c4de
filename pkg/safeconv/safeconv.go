// Package safeconv provides safe integer type conversion functions that panic on overflow.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// Unsigned is the set of position widths the conversions below support.
type Unsigned interface {
	~uint32 | ~uint64
}

// MustUintToUint32 converts uint to uint32, panics on overflow.
// Use only when overflow is logically impossible.
func MustUintToUint32(v uint) uint32 {
	if uint64(v) > uint64(MaxUint32) {
		panic("safeconv: uint to uint32 overflow")
	}

	return uint32(v)
}

// MustIntTo converts a non-negative int to the unsigned width T, panics if
// the value is negative or does not fit.
func MustIntTo[T Unsigned](v int) T {
	if v < 0 || uint64(T(v)) != uint64(v) {
		panic("safeconv: int out of bounds for position width")
	}

	return T(v)
}

// MustToInt converts an unsigned position to int, panics on overflow.
func MustToInt[T Unsigned](v T) int {
	if uint64(v) > uint64(MaxInt) {
		panic("safeconv: position to int overflow")
	}

	return int(v)
}

// FitsIn reports whether v can be represented in the unsigned width T.
func FitsIn[T Unsigned](v uint64) bool {
	return uint64(T(v)) == v
}
