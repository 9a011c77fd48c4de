package balance //nolint:testpackage // tests drive the unexported cut routines directly.

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukasn42/move-datastructure/pkg/dualindex"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
)

func pairs(values ...uint32) []intervals.Pair[uint32] {
	out := make([]intervals.Pair[uint32], 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		out = append(out, intervals.Pair[uint32]{P: values[i], Q: values[i+1]})
	}

	return out
}

func singleSection(t *testing.T, n uint32, ps []intervals.Pair[uint32]) *section[uint32] {
	t.Helper()

	sections, boundaryCuts, err := setup(intervals.New(n, ps), DefaultParams(), []uint32{0, n})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Zero(t, boundaryCuts)

	return sections[0]
}

func listRef(t *testing.T, s *section[uint32], p uint32) dualindex.Ref {
	t.Helper()

	found := dualindex.None

	s.c.List.Walk(func(ref dualindex.Ref, nd *dualindex.Node[uint32]) bool {
		if nd.P == p {
			found = ref

			return false
		}

		return true
	})

	require.NotEqual(t, dualindex.None, found, "no input interval starts at %d", p)

	return found
}

func TestUnbalanced(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n       uint32
		before  []intervals.Pair[uint32]
		firstP  uint32
		outP    uint32
		markerP uint32
		want    bool
	}{
		{
			name:   "single incoming start",
			n:      2,
			before: pairs(0, 1, 1, 0),
			firstP: 0,
			outP:   1,
		},
		{
			name:   "a-1 incoming starts",
			n:      9,
			before: pairs(0, 4, 2, 6, 3, 7, 4, 8, 5, 0),
			firstP: 0,
			outP:   5,
		},
		{
			name:    "a incoming starts",
			n:       9,
			before:  pairs(0, 4, 1, 5, 2, 6, 3, 7, 4, 8, 5, 0),
			firstP:  0,
			outP:    5,
			markerP: 2,
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := singleSection(t, tt.n, tt.before)
			marker := s.unbalanced(listRef(t, s, tt.firstP), listRef(t, s, tt.outP))

			if !tt.want {
				assert.Equal(t, dualindex.None, marker)

				return
			}

			require.NotEqual(t, dualindex.None, marker)
			assert.Equal(t, tt.markerP, s.node(marker).P)
		})
	}
}

func TestLengthFromTreeSuccessor(t *testing.T) {
	t.Parallel()

	s := singleSection(t, 10, pairs(0, 5, 3, 8, 5, 0))

	assert.Equal(t, uint32(3), s.length(listRef(t, s, 0)))
	assert.Equal(t, uint32(2), s.length(listRef(t, s, 3)))
	assert.Equal(t, uint32(5), s.length(listRef(t, s, 5)))
}

// The cases follow the position of the first new input start relative to
// q_u and to the cut interval, and whether it unbalances another interval.
func TestBalanceUpto(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		n        uint32
		before   []intervals.Pair[uint32]
		expected []intervals.Pair[uint32]
		firstP   uint32
		outP     uint32
	}{
		{
			name:     "new start beyond bound leaves target balanced",
			n:        8,
			before:   pairs(0, 4, 1, 5, 2, 6, 3, 7, 4, 0),
			expected: pairs(0, 4, 1, 5, 2, 6, 3, 7, 4, 0, 6, 2),
			firstP:   0,
			outP:     4,
		},
		{
			name:     "new start beyond bound unbalances target",
			n:        16,
			before:   pairs(0, 10, 1, 11, 2, 12, 3, 13, 4, 0, 8, 14, 9, 15, 10, 4),
			expected: pairs(0, 10, 1, 11, 2, 12, 3, 13, 4, 0, 6, 2, 8, 14, 9, 15, 10, 4),
			firstP:   0,
			outP:     4,
		},
		{
			name:     "new start below bound leaves target balanced",
			n:        8,
			before:   pairs(0, 4, 4, 0, 5, 1, 6, 2, 7, 3),
			expected: pairs(0, 4, 2, 6, 4, 0, 5, 1, 6, 2, 7, 3),
			firstP:   4,
			outP:     0,
		},
		{
			name:   "new start below bound unbalances target",
			n:      16,
			before: pairs(0, 6, 4, 10, 5, 11, 6, 12, 7, 13, 8, 14, 9, 15, 10, 0),
			expected: pairs(0, 6, 2, 8, 4, 10, 5, 11, 6, 12, 7, 13, 8, 14, 9, 15,
				10, 0, 14, 4),
			firstP: 6,
			outP:   0,
		},
		{
			name: "second cut lands beyond bound",
			n:    22,
			before: pairs(0, 6, 4, 18, 5, 19, 6, 10, 7, 11, 8, 12, 9, 13, 10, 0,
				16, 20, 17, 21, 18, 14),
			expected: pairs(0, 6, 2, 8, 4, 18, 5, 19, 6, 10, 7, 11, 8, 12, 9, 13,
				10, 0, 14, 4, 16, 20, 17, 21, 18, 14),
			firstP: 6,
			outP:   0,
		},
		{
			name: "second cut lands inside its own interval",
			n:    18,
			before: pairs(0, 6, 8, 14, 12, 0, 13, 1, 14, 2, 15, 3, 16, 4,
				17, 5),
			expected: pairs(0, 6, 6, 12, 8, 14, 10, 16, 12, 0, 13, 1, 14, 2,
				15, 3, 16, 4, 17, 5),
			firstP: 14,
			outP:   8,
		},
		{
			name: "second cut leaves its target balanced",
			n:    16,
			before: pairs(0, 12, 4, 6, 5, 7, 6, 0, 12, 8, 13, 9, 14, 10,
				15, 11),
			expected: pairs(0, 12, 2, 14, 4, 6, 5, 7, 6, 0, 10, 4, 12, 8,
				13, 9, 14, 10, 15, 11),
			firstP: 12,
			outP:   0,
		},
		{
			name: "cuts propagate twice",
			n:    26,
			before: pairs(0, 14, 4, 18, 5, 19, 6, 0, 12, 20, 13, 21, 14, 22,
				15, 23, 16, 24, 17, 25, 18, 6),
			expected: pairs(0, 14, 2, 16, 4, 18, 5, 19, 6, 0, 10, 4, 12, 20,
				13, 21, 14, 22, 15, 23, 16, 24, 17, 25, 18, 6, 24, 12),
			firstP: 14,
			outP:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, intervals.New(tt.n, tt.before).Validate())

			s := singleSection(t, tt.n, tt.before)
			out := listRef(t, s, tt.outP)

			marker := s.unbalanced(listRef(t, s, tt.firstP), out)
			require.NotEqual(t, dualindex.None, marker)

			s.balanceUpto(marker, out, s.node(out).Q)

			assert.Equal(t, tt.expected, s.c.Pairs())
			// The tree also holds the sentinel.
			assert.Equal(t, len(tt.expected)+1, s.c.Tree.Len())
			assert.Equal(t, len(tt.expected)-len(tt.before), s.cuts)

			for _, pair := range tt.expected {
				assert.NotEqual(t, dualindex.None, s.c.Tree.Find(pair.Q), "missing output start %d", pair.Q)
			}

			assert.NoError(t, intervals.New(tt.n, tt.expected).Validate())
		})
	}
}

func TestScanSmallExample(t *testing.T) {
	t.Parallel()

	s := singleSection(t, 8, pairs(0, 4, 1, 5, 2, 6, 3, 7, 4, 0))
	s.scan()

	assert.Equal(t, pairs(0, 4, 1, 5, 2, 6, 3, 7, 4, 0, 6, 2), s.c.Pairs())
	assert.Equal(t, 1, s.cuts)
}

func TestOwnerOf(t *testing.T) {
	t.Parallel()

	bounds := []uint32{0, 5, 9, 20}

	tests := []struct {
		pos  uint32
		want int
	}{
		{0, 0}, {4, 0}, {5, 1}, {8, 1}, {9, 2}, {19, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ownerOf(bounds, tt.pos), "pos %d", tt.pos)
	}

	assert.Equal(t, 0, ownerOf([]uint32{0, 7}, 6))
}

// mixedLengths is balanced and has input start 6, the middle of its pairs,
// inside the output interval [5, 7).
func mixedLengths() intervals.Sequence[uint32] {
	return intervals.New[uint32](16, pairs(0, 3, 1, 5, 3, 4, 4, 10, 6, 7, 9, 12, 10, 13, 13, 0))
}

func TestSectionBoundsPreferOutputStarts(t *testing.T) {
	t.Parallel()

	seq := mixedLengths()
	require.NoError(t, seq.Validate())

	starts := outputStarts(seq)
	assert.Equal(t, []uint32{0, 3, 4, 5, 7, 10, 12, 13}, starts)

	// Input start 4 next to the middle pair is also an output start.
	assert.Equal(t, []uint32{0, 4, 16}, sectionBounds(seq, starts, 2))
	// Sections of two pairs leave no room to move a boundary.
	assert.Equal(t, []uint32{0, 3, 6, 10, 16}, sectionBounds(seq, starts, 4))

	sections, boundaryCuts, err := setup(seq, DefaultParams(), []uint32{0, 4, 16})
	require.NoError(t, err)
	assert.Len(t, sections, 2)
	assert.Zero(t, boundaryCuts)
}

func TestIsBalanced(t *testing.T) {
	t.Parallel()

	seq := mixedLengths()
	assert.True(t, isBalanced(seq, outputStarts(seq), DefaultA))
	assert.False(t, isBalanced(seq, outputStarts(seq), 2))

	small := intervals.New[uint32](8, pairs(0, 4, 1, 5, 2, 6, 3, 7, 4, 0))
	assert.False(t, isBalanced(small, outputStarts(small), DefaultA))
	assert.Equal(t, []uint32{0, 8}, partition(seq, DefaultParams(), 4))
}

func TestRecoverCapacity(t *testing.T) {
	t.Parallel()

	run := func(v any) (err error) {
		defer recoverCapacity(&err)

		panic(v)
	}

	err := run(fmt.Errorf("%w: all pages in use", dualindex.ErrCapacity))
	require.ErrorIs(t, err, dualindex.ErrCapacity)

	assert.PanicsWithValue(t, "balance internal assertion failed", func() {
		_ = run("balance internal assertion failed")
	})
}
