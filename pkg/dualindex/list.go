package dualindex

import "github.com/lukasn42/move-datastructure/pkg/intervals"

// List is a doubly linked list of arena nodes ordered by input start P.
type List[T intervals.Position] struct {
	arena      *Arena[T]
	head, tail Ref
	size       int
}

// NewList creates an empty list over the arena.
func NewList[T intervals.Position](arena *Arena[T]) *List[T] {
	return &List[T]{arena: arena}
}

// Len returns the number of nodes in the list.
func (l *List[T]) Len() int {
	return l.size
}

// Head returns the node with the smallest P, or None.
func (l *List[T]) Head() Ref {
	return l.head
}

// Tail returns the node with the largest P, or None.
func (l *List[T]) Tail() Ref {
	return l.tail
}

// Next returns the list successor of ref, or None.
func (l *List[T]) Next(ref Ref) Ref {
	return l.arena.Node(ref).next
}

// Prev returns the list predecessor of ref, or None.
func (l *List[T]) Prev(ref Ref) Ref {
	return l.arena.Node(ref).prev
}

// PushBack appends a detached node. Its P must exceed the tail's.
func (l *List[T]) PushBack(ref Ref) {
	nd := l.arena.Node(ref)
	nd.prev = l.tail
	nd.next = None

	if l.tail == None {
		l.head = ref
	} else {
		l.arena.Node(l.tail).next = ref
	}

	l.tail = ref
	l.size++
}

// InsertAfter splices a detached node in right after the node after, which
// must already be in the list. The caller guarantees that the new P lies
// strictly between after and its successor.
func (l *List[T]) InsertAfter(after, ref Ref) {
	prev := l.arena.Node(after)
	nd := l.arena.Node(ref)

	nd.prev = after
	nd.next = prev.next

	if prev.next == None {
		l.tail = ref
	} else {
		l.arena.Node(prev.next).prev = ref
	}

	prev.next = ref
	l.size++
}

// Walk calls fn for every node in P order until fn returns false.
func (l *List[T]) Walk(fn func(ref Ref, nd *Node[T]) bool) {
	for ref := l.head; ref != None; {
		nd := l.arena.Node(ref)
		if !fn(ref, nd) {
			return
		}

		ref = nd.next
	}
}
