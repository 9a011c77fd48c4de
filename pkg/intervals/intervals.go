// Package intervals defines disjoint interval sequences, the input of a move
// datastructure, and helpers that derive them from permutations and BWTs.
package intervals

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Position is the integer width of positions, pairs and indices.
type Position interface {
	~uint32 | ~uint64
}

// Sentinel validation errors.
var (
	ErrEmpty        = errors.New("interval sequence is empty")
	ErrTooShort     = errors.New("n must be at least the number of intervals")
	ErrFirstStart   = errors.New("first input interval must start at 0")
	ErrNotIncrease  = errors.New("input interval starts must strictly increase")
	ErrOutOfRange   = errors.New("interval start out of range")
	ErrNotTiling    = errors.New("output intervals do not tile [0, n)")
	ErrNotBijective = errors.New("not a permutation")
)

// Pair maps the input interval starting at P to the output interval starting at Q.
// Its length is implied by the start of the following pair.
type Pair[T Position] struct {
	P T
	Q T
}

// String renders the pair as "(p,q)".
func (p Pair[T]) String() string {
	return fmt.Sprintf("(%d,%d)", p.P, p.Q)
}

// Sequence is a disjoint interval sequence over [0, N) ordered by input start.
type Sequence[T Position] struct {
	N     T
	Pairs []Pair[T]
}

// New creates a sequence from pairs already ordered by P.
func New[T Position](n T, pairs []Pair[T]) Sequence[T] {
	return Sequence[T]{N: n, Pairs: pairs}
}

// Len returns the number of intervals.
func (s Sequence[T]) Len() int {
	return len(s.Pairs)
}

// Length returns the length of interval i.
func (s Sequence[T]) Length(i int) T {
	if i+1 < len(s.Pairs) {
		return s.Pairs[i+1].P - s.Pairs[i].P
	}

	return s.N - s.Pairs[i].P
}

// Apply evaluates the encoded function at position pos, which must lie in interval x.
func (s Sequence[T]) Apply(pos T, x int) T {
	return s.Pairs[x].Q + (pos - s.Pairs[x].P)
}

// Validate checks that the input intervals tile [0, N) in order and that the
// output intervals tile [0, N) as well.
func (s Sequence[T]) Validate() error {
	k := len(s.Pairs)
	if k == 0 {
		return ErrEmpty
	}

	if uint64(s.N) < uint64(k) {
		return fmt.Errorf("%w: n=%d k=%d", ErrTooShort, s.N, k)
	}

	if s.Pairs[0].P != 0 {
		return fmt.Errorf("%w: got %d", ErrFirstStart, s.Pairs[0].P)
	}

	for i := 1; i < k; i++ {
		if s.Pairs[i].P <= s.Pairs[i-1].P {
			return fmt.Errorf("%w: pair %d %s after %s", ErrNotIncrease, i, s.Pairs[i], s.Pairs[i-1])
		}
	}

	if s.Pairs[k-1].P >= s.N {
		return fmt.Errorf("%w: last start %d with n=%d", ErrOutOfRange, s.Pairs[k-1].P, s.N)
	}

	return s.validateOutputs()
}

func (s Sequence[T]) validateOutputs() error {
	order := make([]int, len(s.Pairs))
	for i := range order {
		order[i] = i
	}

	slices.SortFunc(order, func(x, y int) int {
		return cmp.Compare(s.Pairs[x].Q, s.Pairs[y].Q)
	})

	var next T

	for _, idx := range order {
		if s.Pairs[idx].Q != next {
			return fmt.Errorf("%w: expected an output interval at %d, got %s", ErrNotTiling, next, s.Pairs[idx])
		}

		next += s.Length(idx)
	}

	if next != s.N {
		return fmt.Errorf("%w: outputs end at %d, n=%d", ErrNotTiling, next, s.N)
	}

	return nil
}

// Clone returns a deep copy of the sequence.
func (s Sequence[T]) Clone() Sequence[T] {
	return Sequence[T]{N: s.N, Pairs: slices.Clone(s.Pairs)}
}
