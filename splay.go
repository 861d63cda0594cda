package zone

import (
	"cmp"
	"iter"
	"reflect"
)

// SplayTree is a self-adjusting binary search tree whose nodes live in a
// zone. Removing a key unlinks its node; the node's memory is reclaimed by
// the next DeleteAll. The tree value itself is an ordinary Go value owned
// by its creator.
//
// Keys and values are stored in the zone and follow the same residency
// rules as New.
type SplayTree[K, V any] struct {
	Object
	zone    *Zone
	compare func(a, b K) int
	root    *splayNode[K, V]
	size    int
}

type splayNode[K, V any] struct {
	key   K
	value V
	left  *splayNode[K, V]
	right *splayNode[K, V]
}

// Locator gives access to the node holding a key.
type Locator[K, V any] struct {
	node *splayNode[K, V]
}

func (l Locator[K, V]) Key() K { return l.node.key }

func (l Locator[K, V]) Value() V { return l.node.value }

func (l Locator[K, V]) SetValue(v V) { l.node.value = v }

// NewSplayTree creates an empty tree ordered by compare, allocating nodes
// from z.
func NewSplayTree[K, V any](z *Zone, compare func(a, b K) int) *SplayTree[K, V] {
	checkResident(reflect.TypeFor[K]())
	checkResident(reflect.TypeFor[V]())
	return &SplayTree[K, V]{zone: z, compare: compare}
}

// NewOrderedSplayTree creates an empty tree ordered by cmp.Compare.
func NewOrderedSplayTree[K cmp.Ordered, V any](z *Zone) *SplayTree[K, V] {
	return NewSplayTree[K, V](z, cmp.Compare[K])
}

func (t *SplayTree[K, V]) IsEmpty() bool { return t.root == nil }

// Len returns the number of keys in the tree.
func (t *SplayTree[K, V]) Len() int { return t.size }

// Insert finds or creates the node for key. The boolean is true if a new
// node was created.
func (t *SplayTree[K, V]) Insert(key K) (Locator[K, V], bool) {
	if t.root == nil {
		t.root = t.newNode(key)
		t.size++
		return Locator[K, V]{t.root}, true
	}
	t.splay(key)
	c := t.compare(key, t.root.key)
	if c == 0 {
		return Locator[K, V]{t.root}, false
	}
	n := t.newNode(key)
	t.link(n, c)
	t.size++
	return Locator[K, V]{n}, true
}

// Find returns the node for key, if present.
func (t *SplayTree[K, V]) Find(key K) (Locator[K, V], bool) {
	if !t.findInternal(key) {
		return Locator[K, V]{}, false
	}
	return Locator[K, V]{t.root}, true
}

// FindGreatestLessThan returns the node with the greatest key that is less
// than or equal to key.
func (t *SplayTree[K, V]) FindGreatestLessThan(key K) (Locator[K, V], bool) {
	if t.root == nil {
		return Locator[K, V]{}, false
	}
	t.splay(key)
	if t.compare(t.root.key, key) <= 0 {
		return Locator[K, V]{t.root}, true
	}
	// Everything in the right subtree is greater as well.
	return greatest(t.root.left)
}

// FindLeastGreaterThan returns the node with the least key that is greater
// than or equal to key.
func (t *SplayTree[K, V]) FindLeastGreaterThan(key K) (Locator[K, V], bool) {
	if t.root == nil {
		return Locator[K, V]{}, false
	}
	t.splay(key)
	if t.compare(t.root.key, key) >= 0 {
		return Locator[K, V]{t.root}, true
	}
	return least(t.root.right)
}

func (t *SplayTree[K, V]) FindGreatest() (Locator[K, V], bool) { return greatest(t.root) }

func (t *SplayTree[K, V]) FindLeast() (Locator[K, V], bool) { return least(t.root) }

// Move re-keys the node for oldKey to newKey. It fails if oldKey is absent
// or newKey is already taken by another node.
func (t *SplayTree[K, V]) Move(oldKey, newKey K) bool {
	if !t.findInternal(oldKey) {
		return false
	}
	n := t.root
	if t.compare(oldKey, newKey) == 0 {
		n.key = newKey
		return true
	}
	if t.findInternal(newKey) {
		return false
	}
	t.findInternal(oldKey)
	t.removeRoot(oldKey)
	n.key = newKey
	n.left, n.right = nil, nil
	if t.root == nil {
		t.root = n
		return true
	}
	t.splay(newKey)
	t.link(n, t.compare(newKey, t.root.key))
	return true
}

// Remove unlinks the node for key. The boolean reports whether it existed.
func (t *SplayTree[K, V]) Remove(key K) bool {
	if !t.findInternal(key) {
		return false
	}
	t.removeRoot(key)
	t.size--
	return true
}

// Clear forgets every node. Node memory stays in the zone until DeleteAll.
func (t *SplayTree[K, V]) Clear() {
	t.root = nil
	t.size = 0
}

// ForEach calls f for every key and value in ascending key order. f must
// not modify the tree.
func (t *SplayTree[K, V]) ForEach(f func(key K, value V)) {
	for k, v := range t.All() {
		f(k, v)
	}
}

// All returns an in-order iterator over the tree. The tree must not be
// modified while iterating.
func (t *SplayTree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var stack []*splayNode[K, V]
		for n := t.root; n != nil || len(stack) > 0; {
			for ; n != nil; n = n.left {
				stack = append(stack, n)
			}
			n = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n.key, n.value) {
				return
			}
			n = n.right
		}
	}
}

func (t *SplayTree[K, V]) newNode(key K) *splayNode[K, V] {
	n := New[splayNode[K, V]](t.zone)
	n.key = key
	return n
}

// link makes n the root, splitting the current root's subtrees around it.
// c is the comparison of n's key with the current root's key.
func (t *SplayTree[K, V]) link(n *splayNode[K, V], c int) {
	if c > 0 {
		n.left = t.root
		n.right = t.root.right
		t.root.right = nil
	} else {
		n.right = t.root
		n.left = t.root.left
		t.root.left = nil
	}
	t.root = n
}

func (t *SplayTree[K, V]) findInternal(key K) bool {
	if t.root == nil {
		return false
	}
	t.splay(key)
	return t.compare(key, t.root.key) == 0
}

// removeRoot unlinks the root, which must hold key.
func (t *SplayTree[K, V]) removeRoot(key K) {
	if t.root.left == nil {
		t.root = t.root.right
		return
	}
	right := t.root.right
	t.root = t.root.left
	// key is greater than everything in the left subtree, so splaying it
	// brings the maximum up with an empty right child.
	t.splay(key)
	t.root.right = right
}

// splay performs a top-down splay for key. Afterwards the root holds key if
// it is present, and otherwise its would-be neighbour.
func (t *SplayTree[K, V]) splay(key K) {
	if t.root == nil {
		return
	}
	var dummy splayNode[K, V]
	left, right := &dummy, &dummy
	current := t.root
	for {
		c := t.compare(key, current.key)
		if c < 0 {
			if current.left == nil {
				break
			}
			if t.compare(key, current.left.key) < 0 {
				// Rotate right.
				tmp := current.left
				current.left = tmp.right
				tmp.right = current
				current = tmp
				if current.left == nil {
					break
				}
			}
			// Link right.
			right.left = current
			right = current
			current = current.left
		} else if c > 0 {
			if current.right == nil {
				break
			}
			if t.compare(key, current.right.key) > 0 {
				// Rotate left.
				tmp := current.right
				current.right = tmp.left
				tmp.left = current
				current = tmp
				if current.right == nil {
					break
				}
			}
			// Link left.
			left.right = current
			left = current
			current = current.right
		} else {
			break
		}
	}
	// Assemble.
	left.right = current.left
	right.left = current.right
	current.left = dummy.right
	current.right = dummy.left
	t.root = current
}

func greatest[K, V any](n *splayNode[K, V]) (Locator[K, V], bool) {
	if n == nil {
		return Locator[K, V]{}, false
	}
	for n.right != nil {
		n = n.right
	}
	return Locator[K, V]{n}, true
}

func least[K, V any](n *splayNode[K, V]) (Locator[K, V], bool) {
	if n == nil {
		return Locator[K, V]{}, false
	}
	for n.left != nil {
		n = n.left
	}
	return Locator[K, V]{n}, true
}
