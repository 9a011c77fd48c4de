package balance

import "github.com/lukasn42/move-datastructure/pkg/dualindex"

// unbalanced decides whether the output interval [q_j, q_j+d_j) of j has at
// least A input intervals starting inside it. first must be the first such
// input interval. When the interval is unbalanced the (B+1)-th connected
// input interval is returned as the cut marker, otherwise None.
//
// Counting stops at A, and an interval shorter than A cannot hold A starts,
// so the common case returns without walking the list.
func (s *section[T]) unbalanced(first, j dualindex.Ref) dualindex.Ref {
	d := s.length(j)
	if d < T(s.params.A) {
		return dualindex.None
	}

	last := s.node(j).Q + d - 1

	marker := dualindex.None
	cur := first

	for count := 1; count < s.params.A; {
		next := s.c.List.Next(cur)
		if next == dualindex.None || s.node(next).P > last {
			return dualindex.None
		}

		cur = next
		count++

		if count == s.params.B+1 {
			marker = cur
		}
	}

	return marker
}
