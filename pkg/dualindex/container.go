package dualindex

import "github.com/lukasn42/move-datastructure/pkg/intervals"

// Container pairs a p-ordered List and a q-ordered Tree over nodes from one
// allocator. Both views reach the same nodes, so a node found through one
// ordering immediately knows its neighbours in the other.
type Container[T intervals.Position] struct {
	Arena *Arena[T]
	List  *List[T]
	Tree  *Tree[T]

	alloc *Allocator[T]
}

// NewContainer creates an empty container with its own allocator on arena.
func NewContainer[T intervals.Position](arena *Arena[T]) *Container[T] {
	return &Container[T]{
		Arena: arena,
		List:  NewList(arena),
		Tree:  NewTree(arena),
		alloc: arena.NewAllocator(),
	}
}

// Node returns the node addressed by ref.
func (c *Container[T]) Node(ref Ref) *Node[T] {
	return c.Arena.Node(ref)
}

// Alloc creates a detached node for the pair (p, q).
func (c *Container[T]) Alloc(p, q T) Ref {
	return c.alloc.New(p, q)
}

// Allocated returns the number of nodes created through this container.
func (c *Container[T]) Allocated() int {
	return c.alloc.Used()
}

// Insert creates a node for pair and adds it to the tree only. Placing it
// in the list is left to the caller.
func (c *Container[T]) Insert(pair intervals.Pair[T]) Ref {
	ref := c.alloc.New(pair.P, pair.Q)
	c.Tree.Insert(ref)

	return ref
}

// InsertAfterInList splices ref into the list right after after.
func (c *Container[T]) InsertAfterInList(ref, after Ref) {
	c.List.InsertAfter(after, ref)
}

// PredecessorOrEqual returns the node with the greatest Q <= q, or None.
func (c *Container[T]) PredecessorOrEqual(q T) Ref {
	return c.Tree.Floor(q)
}

// SuccessorOrEqual returns the node with the smallest Q >= q, or None.
func (c *Container[T]) SuccessorOrEqual(q T) Ref {
	return c.Tree.Ceil(q)
}

// BulkBuild appends pairs, given in increasing P, to the list and builds a
// balanced tree over them in one pass. The pairs are sorted by Q internally.
func (c *Container[T]) BulkBuild(pairs []intervals.Pair[T]) []Ref {
	refs := make([]Ref, len(pairs))

	for i, pair := range pairs {
		refs[i] = c.alloc.New(pair.P, pair.Q)
		c.List.PushBack(refs[i])
	}

	c.Tree.BuildBalanced(SortByQ(c.Arena, refs))

	return refs
}

// Pairs returns the pairs in list order.
func (c *Container[T]) Pairs() []intervals.Pair[T] {
	out := make([]intervals.Pair[T], 0, c.List.Len())

	c.List.Walk(func(_ Ref, nd *Node[T]) bool {
		out = append(out, nd.Pair())

		return true
	})

	return out
}
