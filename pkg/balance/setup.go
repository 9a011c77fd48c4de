package balance

import (
	"fmt"
	"slices"

	"github.com/lukasn42/move-datastructure/pkg/dualindex"
	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/safeconv"
)

// partition returns the section boundaries for up to workers sections.
// bounds[0] is the first input start and bounds[len-1] is n. An already
// balanced sequence gets a single section, so balancing leaves it unchanged.
func partition[T intervals.Position](seq intervals.Sequence[T], params Params, workers int) []T {
	if workers == 1 {
		return []T{seq.Pairs[0].P, seq.N}
	}

	starts := outputStarts(seq)
	if isBalanced(seq, starts, params.A) {
		return []T{seq.Pairs[0].P, seq.N}
	}

	return sectionBounds(seq, starts, workers)
}

// outputStarts returns the output starts of seq in increasing order.
func outputStarts[T intervals.Position](seq intervals.Sequence[T]) []T {
	starts := make([]T, len(seq.Pairs))
	for i, pair := range seq.Pairs {
		starts[i] = pair.Q
	}

	slices.Sort(starts)

	return starts
}

// isBalanced reports whether every output interval holds fewer than a
// input starts.
func isBalanced[T intervals.Position](seq intervals.Sequence[T], starts []T, a int) bool {
	k := len(seq.Pairs)
	x := 0

	for j, q := range starts {
		end := seq.N
		if j+1 < len(starts) {
			end = starts[j+1]
		}

		for x < k && seq.Pairs[x].P < q {
			x++
		}

		first := x
		for x < k && seq.Pairs[x].P < end {
			x++
			if x-first >= a {
				return false
			}
		}
	}

	return true
}

// sectionBounds splits [0, n) at input starts near pairs i*k/w, so no input
// interval crosses a boundary. Within a quarter of a section around each
// target, an input start that is also an output start is preferred, since no
// output interval crosses it and no boundary cut is needed.
func sectionBounds[T intervals.Position](seq intervals.Sequence[T], starts []T, workers int) []T {
	k := len(seq.Pairs)
	radius := k / workers / 4
	bounds := make([]T, workers+1)
	bounds[0] = seq.Pairs[0].P

	isOutputStart := func(x int) bool {
		_, found := slices.BinarySearch(starts, seq.Pairs[x].P)

		return found
	}

	for i := 1; i < workers; i++ {
		target := i * k / workers
		pick := target

		for d := 0; d <= radius; d++ {
			if target-d >= 1 && isOutputStart(target-d) {
				pick = target - d

				break
			}

			if target+d < k && isOutputStart(target+d) {
				pick = target + d

				break
			}
		}

		bounds[i] = seq.Pairs[pick].P
	}

	bounds[workers] = seq.N

	return bounds
}

// nodeCapacity bounds the number of nodes a run can create: every pair has a
// distinct input start below n, plus one tree sentinel per section. Beyond
// dualindex.MaxNodes the arena is capped and running out of nodes surfaces
// as dualindex.ErrCapacity from Run.
func nodeCapacity[T intervals.Position](seq intervals.Sequence[T], workers int) (int, error) {
	k := len(seq.Pairs)
	if k+workers > dualindex.MaxNodes {
		return 0, fmt.Errorf("%w: %d pairs", dualindex.ErrCapacity, k)
	}

	if uint64(seq.N) >= uint64(dualindex.MaxNodes-workers) {
		return dualindex.MaxNodes, nil
	}

	return safeconv.MustToInt(seq.N) + workers, nil
}

// setup distributes the pairs over the sections delimited by bounds. A
// single section is bulk built. Otherwise lists are filled by streaming the
// pairs in input order and trees are bulk built from the pairs sorted by
// output start. Where no output interval starts at a section boundary, the
// interval crossing it is cut there first.
func setup[T intervals.Position](seq intervals.Sequence[T], params Params, bounds []T) ([]*section[T], int, error) {
	workers := len(bounds) - 1

	capacity, err := nodeCapacity(seq, workers)
	if err != nil {
		return nil, 0, err
	}

	arena, err := dualindex.NewArena[T](capacity, workers)
	if err != nil {
		return nil, 0, fmt.Errorf("create arena: %w", err)
	}

	sections := make([]*section[T], workers)

	for i := range sections {
		sections[i] = &section[T]{
			id:     i,
			lo:     bounds[i],
			hi:     bounds[i+1],
			n:      seq.N,
			bounds: bounds,
			params: params,
			c:      dualindex.NewContainer(arena),
			outbox: make([][]insertion, workers),
		}
	}

	if workers == 1 {
		sections[0].c.BulkBuild(seq.Pairs)
		sections[0].closeTree()

		return sections, 0, nil
	}

	refs := make([]dualindex.Ref, len(seq.Pairs))
	owner := 0

	for i, pair := range seq.Pairs {
		for pair.P >= bounds[owner+1] {
			owner++
		}

		sec := sections[owner]
		refs[i] = sec.c.Alloc(pair.P, pair.Q)
		sec.c.List.PushBack(refs[i])
	}

	chunks := splitByOutput(arena, dualindex.SortByQ(arena, refs), bounds)
	boundaryCuts := 0

	for i := 1; i < workers; i++ {
		if len(chunks[i]) > 0 && arena.Node(chunks[i][0]).Q == bounds[i] {
			continue
		}

		prev := chunks[i-1]
		doAssert(len(prev) > 0)

		m := prev[len(prev)-1]
		mn := arena.Node(m)

		added := sections[i].c.Alloc(mn.P+(bounds[i]-mn.Q), bounds[i])
		sections[ownerOf(bounds, mn.P)].c.InsertAfterInList(added, m)
		chunks[i] = append([]dualindex.Ref{added}, chunks[i]...)
		boundaryCuts++
	}

	for i, sec := range sections {
		sec.c.Tree.BuildBalanced(chunks[i])
		sec.closeTree()
	}

	return sections, boundaryCuts, nil
}

// splitByOutput cuts refs, sorted by output start, into one run per section.
func splitByOutput[T intervals.Position](arena *dualindex.Arena[T], sorted []dualindex.Ref, bounds []T) [][]dualindex.Ref {
	workers := len(bounds) - 1
	chunks := make([][]dualindex.Ref, workers)
	start := 0

	for i := range workers {
		end := start
		for end < len(sorted) && arena.Node(sorted[end]).Q < bounds[i+1] {
			end++
		}

		chunks[i] = sorted[start:end]
		start = end
	}

	return chunks
}
