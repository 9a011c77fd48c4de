package colcodec_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukasn42/move-datastructure/internal/colcodec"
)

// Column test constants.
const (
	testSize      = 1000
	testConstVal  = 7
	testSortStep  = 3
	testBenchSize = 100000
	testSeed      = 42
)

func TestWidth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, colcodec.Width[uint32]())
	assert.Equal(t, 8, colcodec.Width[uint64]())
}

func TestCompressDecompressConstant(t *testing.T) {
	t.Parallel()

	data := make([]uint32, testSize)
	for i := range data {
		data[i] = testConstVal
	}

	block, err := colcodec.Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(block), testSize*4, "constant column should shrink")

	restored := make([]uint32, testSize)
	require.NoError(t, colcodec.Decompress(block, restored))
	assert.Equal(t, data, restored)
}

func TestCompressDecompressRandom64(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(testSeed))

	data := make([]uint64, testSize)
	for i := range data {
		data[i] = rng.Uint64()
	}

	block, err := colcodec.Compress(data)
	require.NoError(t, err)

	restored := make([]uint64, testSize)
	require.NoError(t, colcodec.Decompress(block, restored))
	assert.Equal(t, data, restored)
}

func TestCompressEmpty(t *testing.T) {
	t.Parallel()

	block, err := colcodec.Compress([]uint32{})
	require.NoError(t, err)

	require.NoError(t, colcodec.Decompress(block, []uint32{}))
}

func TestDecompressErrors(t *testing.T) {
	t.Parallel()

	block, err := colcodec.Compress([]uint32{1, 2, 3})
	require.NoError(t, err)

	require.ErrorIs(t, colcodec.Decompress(nil, make([]uint32, 3)), colcodec.ErrCorrupt)
	require.ErrorIs(t, colcodec.Decompress(block, make([]uint32, 4)), colcodec.ErrCorrupt)
	require.ErrorIs(t, colcodec.Decompress([]byte{9, 1, 2}, make([]uint32, 1)), colcodec.ErrCorrupt)
}

func TestDeltaSortedAscending(t *testing.T) {
	t.Parallel()

	original := make([]uint32, testSize)
	for i := range original {
		original[i] = uint32(i * testSortStep)
	}

	data := append([]uint32(nil), original...)

	colcodec.DeltaEncode(data)

	// After encoding, first element unchanged, rest should be testSortStep.
	assert.Equal(t, original[0], data[0])

	for i := 1; i < len(data); i++ {
		assert.Equal(t, uint32(testSortStep), data[i], "delta at index %d", i)
	}

	colcodec.DeltaDecode(data)
	assert.Equal(t, original, data)
}

// TestDeltaWraps verifies overflow wraps correctly.
func TestDeltaWraps(t *testing.T) {
	t.Parallel()

	original := []uint64{0, 1, ^uint64(0), ^uint64(0) - 1, 0}
	data := append([]uint64(nil), original...)

	colcodec.DeltaEncode(data)
	colcodec.DeltaDecode(data)

	assert.Equal(t, original, data)
}

func TestDeltaEmptyAndSingle(t *testing.T) {
	t.Parallel()

	var empty []uint32

	colcodec.DeltaEncode(empty)
	colcodec.DeltaDecode(empty)
	assert.Nil(t, empty)

	single := []uint32{42}
	colcodec.DeltaEncode(single)
	assert.Equal(t, []uint32{42}, single)
}

// TestDeltaImprovesCompression verifies delta encoding improves LZ4
// compression ratio for sorted data.
func TestDeltaImprovesCompression(t *testing.T) {
	t.Parallel()

	data := make([]uint32, testBenchSize)
	for i := range data {
		data[i] = uint32(i)
	}

	plain, err := colcodec.Compress(data)
	require.NoError(t, err)

	deltas := append([]uint32(nil), data...)
	colcodec.DeltaEncode(deltas)

	packed, err := colcodec.Compress(deltas)
	require.NoError(t, err)

	assert.Less(t, len(packed), len(plain))
}

func BenchmarkCompressSorted(b *testing.B) {
	data := make([]uint32, testBenchSize)
	for i := range data {
		data[i] = uint32(i * testSortStep)
	}

	colcodec.DeltaEncode(data)

	for b.Loop() {
		_, err := colcodec.Compress(data)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func TestMayHold(t *testing.T) {
	t.Parallel()

	assert.True(t, colcodec.MayHold[uint32](1+testSize*4, testSize))
	assert.True(t, colcodec.MayHold[uint64](testSize, testSize))
	assert.False(t, colcodec.MayHold[uint64](1, testSize))
	assert.False(t, colcodec.MayHold[uint32](testSize, -1))
	assert.False(t, colcodec.MayHold[uint64](testSize, math.MaxInt))
}
