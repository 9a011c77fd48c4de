package balance

import (
	"github.com/lukasn42/move-datastructure/pkg/dualindex"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
)

// insertion hands a freshly cut node to the section owning its list slot.
type insertion struct {
	node   dualindex.Ref
	anchor dualindex.Ref
}

// section owns the input starts in [lo, hi) through its list and the output
// starts in [lo, hi) through its tree. The tree ends in a sentinel (hi, hi)
// so every output interval length is the distance to its tree successor.
type section[T intervals.Position] struct {
	id     int
	lo, hi T
	n      T
	bounds []T
	params Params

	c        *dualindex.Container[T]
	sentinel dualindex.Ref

	outbox [][]insertion
	cuts   int
}

func (s *section[T]) node(ref dualindex.Ref) *dualindex.Node[T] {
	return s.c.Arena.Node(ref)
}

// owner returns the section whose range contains pos.
func (s *section[T]) owner(pos T) int {
	return ownerOf(s.bounds, pos)
}

// length returns the length of the interval starting at j, taken from j's
// successor in output order.
func (s *section[T]) length(j dualindex.Ref) T {
	return s.node(s.c.Tree.Next(j)).Q - s.node(j).Q
}

// closeTree ends the tree in the sentinel (hi, hi).
func (s *section[T]) closeTree() {
	s.sentinel = s.c.Insert(intervals.Pair[T]{P: s.hi, Q: s.hi})
}

func (s *section[T]) send(dst int, msg insertion) {
	s.outbox[dst] = append(s.outbox[dst], msg)
}

func (s *section[T]) drainOutbox() [][]insertion {
	out := s.outbox
	s.outbox = make([][]insertion, len(out))

	return out
}

// firstConnected walks back from ref, which starts inside the output
// interval of y, to the first input interval starting inside it.
func (s *section[T]) firstConnected(ref, y dualindex.Ref) dualindex.Ref {
	yq := s.node(y).Q

	for {
		prev := s.c.List.Prev(ref)
		if prev == dualindex.None || s.node(prev).P < yq {
			return ref
		}

		ref = prev
	}
}

func ownerOf[T intervals.Position](bounds []T, pos T) int {
	lo, hi := 0, len(bounds)-2

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if bounds[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo
}
