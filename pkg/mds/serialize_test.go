package mds_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/mds"
)

func buildRandom(t *testing.T, seed int64) *mds.Structure[uint32] {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))

	s, _, err := mds.Build(context.Background(), randomSequence(rng, testN, testK), mds.WithThreads(2))
	require.NoError(t, err)

	return s
}

// requireSameMoves checks that both structures move every position alike.
func requireSameMoves[T intervals.Position](t *testing.T, want, got *mds.Structure[T]) {
	t.Helper()

	require.Equal(t, want.N(), got.N())
	require.Equal(t, want.K(), got.K())

	for x := range want.K() + 1 {
		require.Equal(t, want.Pair(x), got.Pair(x), "pair %d", x)
	}

	for i := T(0); i < want.N(); i++ {
		x := want.FindInterval(i)

		wantPos, wantX := want.Move(i, x)
		gotPos, gotX := got.Move(i, x)

		require.Equal(t, wantPos, gotPos, "move(%d)", i)
		require.Equal(t, wantX, gotX, "move(%d)", i)
	}
}

func TestRawLayout(t *testing.T) {
	t.Parallel()

	s, _, err := mds.Build(context.Background(), smallExample())
	require.NoError(t, err)

	var buf bytes.Buffer

	written, err := s.WriteTo(&buf)
	require.NoError(t, err)

	words := make([]uint32, buf.Len()/4)
	require.NoError(t, binary.Read(bytes.NewReader(buf.Bytes()), binary.LittleEndian, words))

	assert.Equal(t, int64(buf.Len()), written)
	assert.Equal(t, []uint32{
		8, 6,
		0, 4, 1, 5, 2, 6, 3, 7, 4, 0, 6, 2, 8, 8,
		4, 4, 5, 5, 0, 2,
	}, words)
}

func TestRawRoundTrip(t *testing.T) {
	t.Parallel()

	s := buildRandom(t, 1)

	var buf bytes.Buffer

	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, (2+2*(s.K()+1)+s.K())*4, buf.Len())

	loaded, err := mds.ReadStructure[uint32](&buf)
	require.NoError(t, err)

	assert.Zero(t, loaded.A())
	requireSameMoves(t, s, loaded)
}

func TestRawRoundTripUint64(t *testing.T) {
	t.Parallel()

	pairs := []intervals.Pair[uint64]{{P: 0, Q: 4}, {P: 1, Q: 5}, {P: 2, Q: 6}, {P: 3, Q: 7}, {P: 4, Q: 0}}

	s, _, err := mds.BuildPairs(context.Background(), pairs, uint64(8))
	require.NoError(t, err)

	var buf bytes.Buffer

	_, err = s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, (2+2*7+6)*8, buf.Len())

	loaded, err := mds.ReadStructure[uint64](&buf)
	require.NoError(t, err)

	requireSameMoves(t, s, loaded)
}

func TestReadStructureErrors(t *testing.T) {
	t.Parallel()

	s, _, err := mds.Build(context.Background(), smallExample())
	require.NoError(t, err)

	var buf bytes.Buffer

	_, err = s.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.Bytes()

	corruptIndex := bytes.Clone(raw)
	binary.LittleEndian.PutUint32(corruptIndex[len(corruptIndex)-4:], 0)

	hugeK := bytes.Clone(raw)
	binary.LittleEndian.PutUint32(hugeK[4:], 1<<30)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, mds.ErrTruncated},
		{"header only", raw[:8], mds.ErrTruncated},
		{"cut inside a word", raw[:len(raw)-1], mds.ErrTruncated},
		{"trailing data", append(bytes.Clone(raw), 0), mds.ErrCorrupt},
		{"index points elsewhere", corruptIndex, mds.ErrCorrupt},
		{"k above n", hugeK, mds.ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := mds.ReadStructure[uint32](bytes.NewReader(tt.data))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	t.Parallel()

	s := buildRandom(t, 2)

	var compressed bytes.Buffer

	require.NoError(t, mds.EncodeCompressed(&compressed, s))
	assert.Equal(t, mds.CompressedMagic, string(compressed.Bytes()[:len(mds.CompressedMagic)]))

	loaded, err := mds.DecodeCompressed[uint32](&compressed)
	require.NoError(t, err)

	assert.Equal(t, s.A(), loaded.A())
	requireSameMoves(t, s, loaded)
}

func TestDecodeCompressedErrors(t *testing.T) {
	t.Parallel()

	s, _, err := mds.Build(context.Background(), smallExample())
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, mds.EncodeCompressed(&buf, s))

	encoded := buf.Bytes()

	badMagic := bytes.Clone(encoded)
	badMagic[0] = 'X'

	badVersion := bytes.Clone(encoded)
	badVersion[len(mds.CompressedMagic)] = 9

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, mds.ErrTruncated},
		{"bad magic", badMagic, mds.ErrCorrupt},
		{"bad version", badVersion, mds.ErrCorrupt},
		{"truncated column", encoded[:len(encoded)-2], mds.ErrTruncated},
		{"trailing data", append(bytes.Clone(encoded), 1), mds.ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := mds.DecodeCompressed[uint32](bytes.NewReader(tt.data))
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err = mds.DecodeCompressed[uint64](bytes.NewReader(encoded))
	require.ErrorIs(t, err, mds.ErrWidthMismatch)
}
