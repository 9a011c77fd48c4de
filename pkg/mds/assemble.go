package mds

import (
	"context"
	"sync"

	"github.com/lukasn42/move-datastructure/pkg/balance"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
)

// minIndexChunk keeps tiny structures from being split across goroutines.
const minIndexChunk = 1 << 14

// flatten copies the balanced pairs into a structure and appends the sentinel.
func flatten[T intervals.Position](res *balance.Result[T], a int) *Structure[T] {
	k := res.Len()
	s := newStructure(res.N, k, a)

	res.Walk(func(i int, pair intervals.Pair[T]) bool {
		s.dPair[i] = pair

		return true
	})

	s.dPair[k] = intervals.Pair[T]{P: res.N, Q: res.N}

	return s
}

// buildIndex fills dIndex by binary search, fanned out over workers
// goroutines working on disjoint ranges.
func (s *Structure[T]) buildIndex(ctx context.Context, workers int) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	k := len(s.dIndex)
	workers = max(1, min(workers, k/minIndexChunk))

	if workers == 1 {
		s.indexRange(0, k)

		return nil
	}

	wg := sync.WaitGroup{}
	wg.Add(workers)

	for w := range workers {
		go func(lo, hi int) {
			defer wg.Done()

			s.indexRange(lo, hi)
		}(w*k/workers, (w+1)*k/workers)
	}

	wg.Wait()

	return nil
}

func (s *Structure[T]) indexRange(lo, hi int) {
	for j := lo; j < hi; j++ {
		s.setIndex(j, s.FindInterval(s.dPair[j].Q))
	}
}
