// Package dualindex provides the node arena, p-ordered list and q-ordered AVL
// tree that together index interval pairs by input and output start.
package dualindex

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/lukasn42/move-datastructure/pkg/intervals"
	"github.com/lukasn42/move-datastructure/pkg/safeconv"
)

// Ref addresses a node inside an Arena. The zero Ref is reserved and means "no node".
type Ref uint32

// None is the absent node.
const None Ref = 0

const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
	maxPages  = 1 << (32 - pageShift)
)

// MaxNodes is the largest node capacity an Arena can be created with.
const MaxNodes = maxPages*pageSize - 1

// ErrCapacity is returned when the requested capacity cannot be addressed by a Ref.
var ErrCapacity = errors.New("arena capacity exceeds addressable nodes")

// Node is an interval pair carrying the links of both orderings.
// List links are owned by the list the node belongs to, tree links and
// height by the tree.
type Node[T intervals.Position] struct {
	P T
	Q T

	prev, next          Ref
	parent, left, right Ref
	height              int8
}

// Pair returns the node's interval pair.
func (nd *Node[T]) Pair() intervals.Pair[T] {
	return intervals.Pair[T]{P: nd.P, Q: nd.Q}
}

// Arena is paged node storage. The page directory is sized once at creation
// so node addresses stay stable while several allocators fill pages concurrently.
type Arena[T intervals.Position] struct {
	pages   []*[pageSize]Node[T]
	claimed atomic.Uint32
}

// NewArena creates an arena able to hold capacity nodes spread over the
// given number of allocators.
func NewArena[T intervals.Position](capacity, allocators int) (*Arena[T], error) {
	if allocators < 1 {
		allocators = 1
	}

	if capacity < 0 || capacity > MaxNodes {
		return nil, fmt.Errorf("%w: %d", ErrCapacity, capacity)
	}

	// Every allocator may leave one page partially used.
	pages := (capacity+1+pageMask)/pageSize + allocators
	pages = min(pages, maxPages)

	return &Arena[T]{pages: make([]*[pageSize]Node[T], pages)}, nil
}

// Node returns the node addressed by ref. The pointer stays valid for the
// lifetime of the arena.
func (a *Arena[T]) Node(ref Ref) *Node[T] {
	return &a.pages[ref>>pageShift][ref&pageMask]
}

// Pages returns the number of pages handed out so far.
func (a *Arena[T]) Pages() int {
	return min(int(a.claimed.Load()), len(a.pages))
}

// NewAllocator returns an allocator that claims pages from the arena.
// An allocator must only be used by one goroutine at a time.
func (a *Arena[T]) NewAllocator() *Allocator[T] {
	return &Allocator[T]{arena: a, offset: pageSize}
}

// Allocator hands out nodes from pages it owns exclusively.
type Allocator[T intervals.Position] struct {
	arena  *Arena[T]
	page   *[pageSize]Node[T]
	base   Ref
	offset uint32
	used   int
}

// New allocates a detached node holding the pair (p, q).
func (al *Allocator[T]) New(p, q T) Ref {
	if al.offset == pageSize {
		al.claim()
	}

	ref := al.base | Ref(al.offset)

	nd := &al.page[al.offset]
	nd.P = p
	nd.Q = q
	nd.height = 1

	al.offset++
	al.used++

	return ref
}

// Used returns the number of nodes allocated so far.
func (al *Allocator[T]) Used() int {
	return al.used
}

// claim takes the next free page. An arena without free pages panics with
// an error wrapping ErrCapacity, which callers running a whole build may
// recover into an ordinary error.
func (al *Allocator[T]) claim() {
	idx := al.arena.claimed.Add(1) - 1
	if int(idx) >= len(al.arena.pages) {
		panic(fmt.Errorf("%w: all %d pages in use", ErrCapacity, len(al.arena.pages)))
	}

	page := new([pageSize]Node[T])
	al.arena.pages[idx] = page
	al.page = page
	al.base = Ref(safeconv.MustUintToUint32(uint(idx) << pageShift))
	al.offset = 0

	// Zero is reserved.
	if idx == 0 {
		al.offset = 1
	}
}

func doAssert(condition bool) {
	if !condition {
		panic("dualindex internal assertion failed")
	}
}
