package balance

import (
	"github.com/lukasn42/move-datastructure/pkg/dualindex"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
)

// balanceUpto cuts the unbalanced output interval of j at its cut marker and
// keeps cutting the output intervals the new input intervals unbalance, as
// long as they start before qu. Every cut adds the pair (p_j+d, q_j+d) with
// d = p_marker - q_j, leaving B input starts in [q_j, q_j+d).
//
// A cut can unbalance at most one other output interval, the one containing
// p_j+d, so the pending work is a single interval that moves strictly
// towards smaller output starts.
func (s *section[T]) balanceUpto(marker, j dualindex.Ref, qu T) {
	for {
		jn := s.node(j)
		pj, qj := jn.P, jn.Q
		dj := s.length(j)
		d1 := s.node(marker).P - qj
		np := pj + d1

		added := s.c.Insert(intervals.Pair[T]{P: np, Q: qj + d1})
		s.cuts++

		// The new input interval lies inside j's, so both belong to the same section.
		dst := s.owner(pj)
		if dst != s.id {
			s.send(dst, insertion{node: added, anchor: j})

			return
		}

		s.c.InsertAfterInList(added, j)

		// Output intervals from qu on are balanced later, and p_j+d inside
		// either half of j's old interval cannot reach A starts.
		if np >= qu || (qj <= np && np < qj+dj) {
			return
		}

		y := s.c.PredecessorOrEqual(np)
		doAssert(y != dualindex.None)

		marker = s.unbalanced(s.firstConnected(added, y), y)
		if marker == dualindex.None {
			return
		}

		j = y
	}
}

// scan walks the output intervals in increasing order together with their
// first connected input interval and balances every unbalanced one.
func (s *section[T]) scan() {
	in := s.c.List.Head()
	out := s.c.SuccessorOrEqual(s.lo)

	if in == dualindex.None || out == s.sentinel {
		return
	}

	// The section's first input start equals its first output start.
	doAssert(s.node(in).P == s.node(out).Q)

	for {
		marker := s.unbalanced(in, out)
		if marker != dualindex.None {
			s.balanceUpto(marker, out, s.node(out).Q)
		}

		// Find the next output interval with an incoming input start.
		for {
			out = s.c.Tree.Next(out)
			if out == s.sentinel {
				return
			}

			oq := s.node(out).Q

			for s.node(in).P < oq {
				in = s.c.List.Next(in)
				if in == dualindex.None {
					return
				}
			}

			if s.node(in).P < oq+s.length(out) {
				break
			}
		}
	}
}

// deliver splices insertions sent by other sections into the list and
// balances the output interval each new input start lands in.
func (s *section[T]) deliver(msgs []insertion) {
	for _, msg := range msgs {
		s.c.InsertAfterInList(msg.node, msg.anchor)

		y := s.c.PredecessorOrEqual(s.node(msg.node).P)
		doAssert(y != dualindex.None)

		marker := s.unbalanced(s.firstConnected(msg.node, y), y)
		if marker != dualindex.None {
			s.balanceUpto(marker, y, s.n)
		}
	}
}

func doAssert(condition bool) {
	if !condition {
		panic("balance internal assertion failed")
	}
}
