// Package mds builds and queries move datastructures: balanced interval
// sequences flattened into two arrays so that applying the encoded
// permutation to a position takes a bounded number of steps.
package mds

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/safeconv"
)

// ErrInvalidStructure is returned by Verify.
var ErrInvalidStructure = errors.New("invalid move datastructure")

// Structure is a flattened move datastructure over [0, n).
//
// dPair holds the k pairs ordered by input start followed by the sentinel
// (n, n). dIndex[j] is the index of the input interval containing q_j.
type Structure[T intervals.Position] struct {
	n      T
	a      int
	dPair  []intervals.Pair[T]
	dIndex []T
}

// N returns the size of the domain.
func (s *Structure[T]) N() T {
	return s.n
}

// MaxValue returns n, the exclusive upper bound of positions.
func (s *Structure[T]) MaxValue() T {
	return s.n
}

// K returns the number of intervals.
func (s *Structure[T]) K() int {
	return len(s.dIndex)
}

// Intervals is an alias of K.
func (s *Structure[T]) Intervals() int {
	return len(s.dIndex)
}

// A returns the balancing threshold the structure was built with, or zero
// when it was loaded without that information.
func (s *Structure[T]) A() int {
	return s.a
}

// Pair returns pair x. x == K() yields the sentinel (n, n).
func (s *Structure[T]) Pair(x int) intervals.Pair[T] {
	return s.dPair[x]
}

// Index returns the index of the input interval containing q_x.
func (s *Structure[T]) Index(x int) int {
	return int(s.dIndex[x])
}

// Sequence returns the balanced intervals as a sequence.
func (s *Structure[T]) Sequence() intervals.Sequence[T] {
	return intervals.New(s.n, append([]intervals.Pair[T](nil), s.dPair[:len(s.dIndex)]...))
}

// Move applies the permutation to position i lying in input interval x and
// returns the image together with the interval containing it.
func (s *Structure[T]) Move(i T, x int) (T, int) {
	pair := s.dPair[x]
	i = pair.Q + (i - pair.P)
	x = int(s.dIndex[x])

	for s.dPair[x+1].P <= i {
		x++
	}

	return i, x
}

// MoveSteps is Move that also reports how many intervals it skipped.
func (s *Structure[T]) MoveSteps(i T, x int) (T, int, int) {
	pair := s.dPair[x]
	i = pair.Q + (i - pair.P)
	x = int(s.dIndex[x])
	steps := 0

	for s.dPair[x+1].P <= i {
		x++
		steps++
	}

	return i, x, steps
}

// FindInterval returns the index of the input interval containing i.
// i must be below n.
func (s *Structure[T]) FindInterval(i T) int {
	k := len(s.dIndex)

	return sort.Search(k, func(x int) bool { return s.dPair[x+1].P > i })
}

// Verify re-checks the structural invariants: the intervals form a valid
// sequence, every index entry points at the interval containing its output
// start and, when the threshold is known, no output interval holds a or
// more input starts.
func (s *Structure[T]) Verify() error {
	return s.VerifyThreshold(s.a)
}

// VerifyThreshold is Verify with an explicit balancing threshold. Zero skips
// the balance check.
func (s *Structure[T]) VerifyThreshold(a int) error {
	k := len(s.dIndex)

	if len(s.dPair) != k+1 {
		return fmt.Errorf("%w: %d pairs for %d intervals", ErrInvalidStructure, len(s.dPair), k)
	}

	if s.dPair[k] != (intervals.Pair[T]{P: s.n, Q: s.n}) {
		return fmt.Errorf("%w: sentinel is %v", ErrInvalidStructure, s.dPair[k])
	}

	err := s.Sequence().Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStructure, err)
	}

	for j := range k {
		x := int(s.dIndex[j])
		q := s.dPair[j].Q

		if x >= k || s.dPair[x].P > q || s.dPair[x+1].P <= q {
			return fmt.Errorf("%w: index %d points at %d, which does not contain %d",
				ErrInvalidStructure, j, x, q)
		}

		if a == 0 {
			continue
		}

		if starts := s.inDegree(j); starts >= a {
			return fmt.Errorf("%w: output interval %d holds %d input starts",
				ErrInvalidStructure, j, starts)
		}
	}

	return nil
}

// inDegree counts the input starts inside output interval j. The index
// entry of j must be correct.
func (s *Structure[T]) inDegree(j int) int {
	k := len(s.dIndex)
	x := int(s.dIndex[j])
	q := s.dPair[j].Q
	end := q + (s.dPair[j+1].P - s.dPair[j].P)
	last := x

	for last+1 < k && s.dPair[last+1].P < end {
		last++
	}

	starts := last - x
	if s.dPair[x].P == q {
		starts++
	}

	return starts
}

// newStructure allocates the arrays for k intervals.
func newStructure[T intervals.Position](n T, k, a int) *Structure[T] {
	return &Structure[T]{
		n:      n,
		a:      a,
		dPair:  make([]intervals.Pair[T], k+1),
		dIndex: make([]T, k),
	}
}

func (s *Structure[T]) setIndex(j, x int) {
	s.dIndex[j] = safeconv.MustIntTo[T](x)
}
