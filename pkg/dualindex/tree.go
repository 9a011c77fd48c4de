package dualindex

import "github.com/lukasn42/move-datastructure/pkg/intervals"

// Tree is an AVL tree of arena nodes keyed by output start Q. Keys are unique.
//
// Rotations follow the classic height-based scheme: after an insertion every
// ancestor is revisited and rotated once its balance factor reaches +-2.
type Tree[T intervals.Position] struct {
	arena *Arena[T]

	// Root of the tree.
	root Ref

	// The minimum and maximum nodes under the tree.
	first, last Ref

	// Number of nodes under root, including the root.
	size int
}

// NewTree creates an empty tree over the arena.
func NewTree[T intervals.Position](arena *Arena[T]) *Tree[T] {
	return &Tree[T]{arena: arena}
}

// Len returns the number of nodes in the tree.
func (t *Tree[T]) Len() int {
	return t.size
}

// Root returns the root node, or None.
func (t *Tree[T]) Root() Ref {
	return t.root
}

// Height returns the height of the tree, 0 when empty.
func (t *Tree[T]) Height() int {
	return int(t.height(t.root))
}

// Min returns the node with the smallest Q, or None.
func (t *Tree[T]) Min() Ref {
	return t.first
}

// Max returns the node with the largest Q, or None.
func (t *Tree[T]) Max() Ref {
	return t.last
}

// Insert adds a detached node, rebalancing on the way back to the root.
//
// REQUIRES: no node with the same Q is in the tree.
func (t *Tree[T]) Insert(ref Ref) {
	nd := t.arena.Node(ref)
	nd.left, nd.right, nd.parent = None, None, None
	nd.height = 1

	if t.root == None {
		t.root, t.first, t.last = ref, ref, ref
		t.size = 1

		return
	}

	key := nd.Q
	parent := t.root

	for {
		cur := t.arena.Node(parent)
		doAssert(cur.Q != key)

		if key < cur.Q {
			if cur.left == None {
				cur.left = ref

				break
			}

			parent = cur.left
		} else {
			if cur.right == None {
				cur.right = ref

				break
			}

			parent = cur.right
		}
	}

	nd.parent = parent
	t.size++

	if key < t.arena.Node(t.first).Q {
		t.first = ref
	}

	if key > t.arena.Node(t.last).Q {
		t.last = ref
	}

	for cur := parent; cur != None; {
		cur = t.rebalance(cur)
		cur = t.arena.Node(cur).parent
	}
}

// Find returns the node with Q equal to q, or None.
func (t *Tree[T]) Find(q T) Ref {
	for cur := t.root; cur != None; {
		nd := t.arena.Node(cur)

		switch {
		case q == nd.Q:
			return cur
		case q < nd.Q:
			cur = nd.left
		default:
			cur = nd.right
		}
	}

	return None
}

// Floor returns the node with the greatest Q <= q, or None if every Q exceeds q.
func (t *Tree[T]) Floor(q T) Ref {
	best := None

	for cur := t.root; cur != None; {
		nd := t.arena.Node(cur)

		switch {
		case q == nd.Q:
			return cur
		case nd.Q < q:
			best = cur
			cur = nd.right
		default:
			cur = nd.left
		}
	}

	return best
}

// Ceil returns the node with the smallest Q >= q, or None if every Q is below q.
func (t *Tree[T]) Ceil(q T) Ref {
	best := None

	for cur := t.root; cur != None; {
		nd := t.arena.Node(cur)

		switch {
		case q == nd.Q:
			return cur
		case nd.Q > q:
			best = cur
			cur = nd.left
		default:
			cur = nd.right
		}
	}

	return best
}

// Next returns the in-order successor of ref, or None.
func (t *Tree[T]) Next(ref Ref) Ref {
	if ref == t.last {
		return None
	}

	nd := t.arena.Node(ref)
	if nd.right != None {
		return t.leftmost(nd.right)
	}

	for {
		parent := nd.parent
		if parent == None {
			return None
		}

		pnd := t.arena.Node(parent)
		if pnd.left == ref {
			return parent
		}

		ref, nd = parent, pnd
	}
}

// Prev returns the in-order predecessor of ref, or None.
func (t *Tree[T]) Prev(ref Ref) Ref {
	if ref == t.first {
		return None
	}

	nd := t.arena.Node(ref)
	if nd.left != None {
		return t.rightmost(nd.left)
	}

	for {
		parent := nd.parent
		if parent == None {
			return None
		}

		pnd := t.arena.Node(parent)
		if pnd.right == ref {
			return parent
		}

		ref, nd = parent, pnd
	}
}

// BuildBalanced builds a minimal-height tree from detached nodes sorted by
// strictly increasing Q in linear time.
//
// REQUIRES: the tree is empty.
func (t *Tree[T]) BuildBalanced(sorted []Ref) {
	doAssert(t.root == None)

	if len(sorted) == 0 {
		return
	}

	t.root = t.build(sorted, None)
	t.first = sorted[0]
	t.last = sorted[len(sorted)-1]
	t.size = len(sorted)
}

func (t *Tree[T]) build(sorted []Ref, parent Ref) Ref {
	if len(sorted) == 0 {
		return None
	}

	mid := len(sorted) / 2
	ref := sorted[mid]
	nd := t.arena.Node(ref)
	nd.parent = parent
	nd.left = t.build(sorted[:mid], ref)
	nd.right = t.build(sorted[mid+1:], ref)
	t.updateHeight(ref)

	return ref
}

func (t *Tree[T]) leftmost(ref Ref) Ref {
	for {
		left := t.arena.Node(ref).left
		if left == None {
			return ref
		}

		ref = left
	}
}

func (t *Tree[T]) rightmost(ref Ref) Ref {
	for {
		right := t.arena.Node(ref).right
		if right == None {
			return ref
		}

		ref = right
	}
}

func (t *Tree[T]) height(ref Ref) int8 {
	if ref == None {
		return 0
	}

	return t.arena.Node(ref).height
}

func (t *Tree[T]) updateHeight(ref Ref) {
	nd := t.arena.Node(ref)
	nd.height = 1 + max(t.height(nd.left), t.height(nd.right))
}

// rebalance restores the AVL property at ref and returns the root of the
// (possibly rotated) subtree.
func (t *Tree[T]) rebalance(ref Ref) Ref {
	nd := t.arena.Node(ref)
	balance := t.height(nd.left) - t.height(nd.right)

	switch {
	case balance > 1:
		left := t.arena.Node(nd.left)
		if t.height(left.left) < t.height(left.right) {
			t.rotateLeft(nd.left)
		}

		return t.rotateRight(ref)
	case balance < -1:
		right := t.arena.Node(nd.right)
		if t.height(right.right) < t.height(right.left) {
			t.rotateRight(nd.right)
		}

		return t.rotateLeft(ref)
	default:
		t.updateHeight(ref)

		return ref
	}
}

func (t *Tree[T]) rotateLeft(ref Ref) Ref {
	nd := t.arena.Node(ref)
	pivot := nd.right
	pnd := t.arena.Node(pivot)

	nd.right = pnd.left
	if pnd.left != None {
		t.arena.Node(pnd.left).parent = ref
	}

	t.replaceChild(nd.parent, ref, pivot)
	pnd.left = ref
	nd.parent = pivot

	t.updateHeight(ref)
	t.updateHeight(pivot)

	return pivot
}

func (t *Tree[T]) rotateRight(ref Ref) Ref {
	nd := t.arena.Node(ref)
	pivot := nd.left
	pnd := t.arena.Node(pivot)

	nd.left = pnd.right
	if pnd.right != None {
		t.arena.Node(pnd.right).parent = ref
	}

	t.replaceChild(nd.parent, ref, pivot)
	pnd.right = ref
	nd.parent = pivot

	t.updateHeight(ref)
	t.updateHeight(pivot)

	return pivot
}

// replaceChild points parent's link to old at repl instead.
func (t *Tree[T]) replaceChild(parent, old, repl Ref) {
	t.arena.Node(repl).parent = parent

	if parent == None {
		t.root = repl

		return
	}

	pnd := t.arena.Node(parent)
	if pnd.left == old {
		pnd.left = repl
	} else {
		pnd.right = repl
	}
}
