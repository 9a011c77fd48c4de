// Package colcodec compresses fixed-width integer columns with LZ4 block
// compression, optionally after delta encoding.
package colcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/pierrec/lz4/v4"
)

// Unsigned is the set of column element types.
type Unsigned interface {
	~uint32 | ~uint64
}

// ErrCorrupt is returned when a block does not decode to the expected column.
var ErrCorrupt = errors.New("corrupt column block")

// Block kinds, stored in the first byte of every block.
const (
	blockRaw byte = iota
	blockLZ4
)

// maxExpansion bounds how many bytes one byte of an LZ4 block can decode to.
const maxExpansion = 256

// Width returns the encoded size of one element of T in bytes.
func Width[T Unsigned]() int {
	var zero T

	return binary.Size(zero)
}

// Compress packs data little-endian and compresses it with LZ4. Data LZ4
// cannot shrink is stored raw.
func Compress[T Unsigned](data []T) ([]byte, error) {
	packed := pack(data)
	if len(packed) == 0 {
		return []byte{blockRaw}, nil
	}

	compressed := make([]byte, 1+lz4.CompressBlockBound(len(packed)))

	written, err := lz4.CompressBlock(packed, compressed[1:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	if written == 0 || written >= len(packed) {
		return append([]byte{blockRaw}, packed...), nil
	}

	compressed[0] = blockLZ4

	return compressed[:1+written], nil
}

// MayHold reports whether a block of blockLen bytes can decode to count
// elements of T, so readers can reject corrupt lengths before allocating.
func MayHold[T Unsigned](blockLen, count int) bool {
	width := Width[T]()
	if count < 0 || count > math.MaxInt/width/maxExpansion {
		return false
	}

	return count*width <= maxExpansion*blockLen
}

// Decompress restores a block produced by Compress into result, which must
// be preallocated with the original length.
func Decompress[T Unsigned](block []byte, result []T) error {
	if len(block) == 0 {
		return fmt.Errorf("%w: empty block", ErrCorrupt)
	}

	size := len(result) * Width[T]()

	var packed []byte

	switch block[0] {
	case blockRaw:
		packed = block[1:]
	case blockLZ4:
		packed = make([]byte, size)

		read, err := lz4.UncompressBlock(block[1:], packed)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		packed = packed[:read]
	default:
		return fmt.Errorf("%w: unknown block kind %d", ErrCorrupt, block[0])
	}

	if len(packed) != size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrCorrupt, len(packed), size)
	}

	unpack(packed, result)

	return nil
}

// DeltaEncode replaces each element with the difference from its
// predecessor, in place. The first element is left unchanged. Sorted columns
// turn into small, repetitive values that compress better with LZ4.
func DeltaEncode[T Unsigned](data []T) {
	for i := len(data) - 1; i > 0; i-- {
		data[i] -= data[i-1]
	}
}

// DeltaDecode performs a prefix-sum to restore values from deltas produced
// by DeltaEncode. The operation is performed in place.
func DeltaDecode[T Unsigned](data []T) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}

func pack[T Unsigned](data []T) []byte {
	width := Width[T]()
	out := make([]byte, len(data)*width)

	for i, v := range data {
		if width == 4 {
			binary.LittleEndian.PutUint32(out[i*width:], uint32(v))
		} else {
			binary.LittleEndian.PutUint64(out[i*width:], uint64(v))
		}
	}

	return out
}

func unpack[T Unsigned](packed []byte, result []T) {
	width := Width[T]()

	for i := range result {
		if width == 4 {
			result[i] = T(binary.LittleEndian.Uint32(packed[i*width:]))
		} else {
			result[i] = T(binary.LittleEndian.Uint64(packed[i*width:]))
		}
	}
}
