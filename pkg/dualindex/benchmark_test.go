package dualindex //nolint:testpackage // benchmarks share helpers with the unit tests.

import (
	"math/rand"
	"testing"
)

const benchTreeSize = 100000

func BenchmarkTreeInsert(b *testing.B) {
	keys := rand.New(rand.NewSource(testSeed)).Perm(benchTreeSize)

	b.ResetTimer()

	for range b.N {
		arena := newTestArena(b, benchTreeSize)
		alloc := arena.NewAllocator()
		tree := NewTree(arena)

		for _, key := range keys {
			tree.Insert(alloc.New(0, uint32(key)))
		}
	}
}

func BenchmarkTreeBuildBalanced(b *testing.B) {
	for range b.N {
		arena := newTestArena(b, benchTreeSize)
		alloc := arena.NewAllocator()

		refs := make([]Ref, benchTreeSize)
		for i := range refs {
			refs[i] = alloc.New(0, uint32(i))
		}

		NewTree(arena).BuildBalanced(refs)
	}
}

func BenchmarkTreeFloor(b *testing.B) {
	arena := newTestArena(b, benchTreeSize)
	alloc := arena.NewAllocator()

	refs := make([]Ref, benchTreeSize)
	for i := range refs {
		refs[i] = alloc.New(0, uint32(2*i))
	}

	tree := NewTree(arena)
	tree.BuildBalanced(refs)

	b.ResetTimer()

	for i := range b.N {
		tree.Floor(uint32(i % (2 * benchTreeSize)))
	}
}
