// Package rbtree provides the ordered index behind the catalog.
//
// Red–Black Tree keyed by int:
//   - Single-writer API (caller coordinates concurrency).
//   - Nodes live in an arena addressed by index; slot 0 is the shared black
//     sentinel that terminates every leaf and parents the root.
//   - O(log n) Get/Insert/Delete, pruned range walks, one-pass closest lookup.
//   - Counts every recoloring done while rebalancing.
package rbtree

import "fmt"

type Color uint8

const (
	red   Color = 0
	black Color = 1
)

func (c Color) String() string {
	if c == red {
		return "RED"
	}
	return "BLACK"
}

// sentinel is the arena slot of the shared nil node.
const sentinel int32 = 0

type node[V any] struct {
	key    int
	value  V
	color  Color
	left   int32
	right  int32
	parent int32
}

// Item is a key/value pair read out of the tree.
type Item[V any] struct {
	Key   int
	Value V
}

type Tree[V any] struct {
	nodes []node[V] // nodes[0] is the sentinel
	free  []int32   // released slots, reused before the arena grows
	root  int32
	size  int
	flips uint64
}

// New constructs an empty tree with a black sentinel.
func New[V any]() *Tree[V] {
	t := &Tree[V]{root: sentinel}
	t.nodes = append(t.nodes, node[V]{color: black})
	return t
}

// Len returns the number of keys currently present.
func (t *Tree[V]) Len() int { return t.size }

// ColorFlips returns how many node colors rebalancing has changed so far.
func (t *Tree[V]) ColorFlips() uint64 { return t.flips }

// Get returns the value stored under key.
func (t *Tree[V]) Get(key int) (V, bool) {
	x := t.search(key)
	if x == sentinel {
		var zero V
		return zero, false
	}
	return t.nodes[x].value, true
}

// Contains reports whether key is present.
func (t *Tree[V]) Contains(key int) bool { return t.search(key) != sentinel }

// Insert adds key with value. Keys are unique: an existing key is left
// untouched and Insert returns false.
func (t *Tree[V]) Insert(key int, value V) bool {
	y := sentinel
	x := t.root
	for x != sentinel {
		y = x
		switch {
		case key < t.nodes[x].key:
			x = t.nodes[x].left
		case key > t.nodes[x].key:
			x = t.nodes[x].right
		default:
			return false // already present
		}
	}

	z := t.alloc(key, value, y)
	if y == sentinel {
		t.root = z
	} else if key < t.nodes[y].key {
		t.nodes[y].left = z
	} else {
		t.nodes[y].right = z
	}
	t.insertFixup(z)
	t.size++
	return true
}

// Delete removes key. Returns false (and changes nothing) if it is absent.
func (t *Tree[V]) Delete(key int) bool {
	z := t.search(key)
	if z == sentinel {
		return false
	}
	t.deleteNode(z)
	t.release(z)
	t.size--
	return true
}

// Min returns the smallest key or nil if the tree is empty.
func (t *Tree[V]) Min() *Item[V] { return t.item(t.minNode(t.root)) }

// Max returns the largest key or nil if the tree is empty.
func (t *Tree[V]) Max() *Item[V] { return t.item(t.maxNode(t.root)) }

// Closest finds, in a single descent, the largest key below target and the
// smallest key at or above target. Either result is nil when no such key
// exists.
func (t *Tree[V]) Closest(target int) (lower, higher *Item[V]) {
	lo, hi := sentinel, sentinel
	x := t.root
	for x != sentinel {
		if t.nodes[x].key < target {
			lo = x
			x = t.nodes[x].right
		} else {
			hi = x
			x = t.nodes[x].left
		}
	}
	return t.item(lo), t.item(hi)
}

// Range calls fn for every key in [lo, hi] in ascending order, visiting
// only subtrees that can overlap the interval. If fn returns false,
// iteration stops early.
func (t *Tree[V]) Range(lo, hi int, fn func(key int, value V) bool) {
	if lo > hi {
		return
	}
	t.rangeFrom(t.root, lo, hi, fn)
}

// Ascend applies fn from lowest to highest key.
// If fn returns false, iteration stops early.
func (t *Tree[V]) Ascend(fn func(key int, value V) bool) {
	for x := t.minNode(t.root); x != sentinel; x = t.next(x) {
		if !fn(t.nodes[x].key, t.nodes[x].value) {
			return
		}
	}
}

// Descend applies fn from highest to lowest key.
// If fn returns false, iteration stops early.
func (t *Tree[V]) Descend(fn func(key int, value V) bool) {
	for x := t.maxNode(t.root); x != sentinel; x = t.prev(x) {
		if !fn(t.nodes[x].key, t.nodes[x].value) {
			return
		}
	}
}

// Keys returns every key in ascending order.
func (t *Tree[V]) Keys() []int {
	keys := make([]int, 0, t.size)
	t.Ascend(func(k int, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

/*************** Arena ***************/

func (t *Tree[V]) alloc(key int, value V, parent int32) int32 {
	n := node[V]{
		key:    key,
		value:  value,
		color:  red, // new insertions start red
		left:   sentinel,
		right:  sentinel,
		parent: parent,
	}
	if k := len(t.free); k > 0 {
		idx := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[idx] = n
		return idx
	}
	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1)
}

func (t *Tree[V]) release(idx int32) {
	t.nodes[idx] = node[V]{color: black}
	t.free = append(t.free, idx)
	// deleteFixup may have parked a parent link on the sentinel.
	t.nodes[sentinel].parent = sentinel
}

/*************** Internal helpers (nodes & search) ***************/

func (t *Tree[V]) item(x int32) *Item[V] {
	if x == sentinel {
		return nil
	}
	return &Item[V]{Key: t.nodes[x].key, Value: t.nodes[x].value}
}

func (t *Tree[V]) search(key int) int32 {
	x := t.root
	for x != sentinel {
		switch {
		case key < t.nodes[x].key:
			x = t.nodes[x].left
		case key > t.nodes[x].key:
			x = t.nodes[x].right
		default:
			return x
		}
	}
	return sentinel
}

func (t *Tree[V]) minNode(x int32) int32 {
	if x == sentinel {
		return sentinel
	}
	for t.nodes[x].left != sentinel {
		x = t.nodes[x].left
	}
	return x
}

func (t *Tree[V]) maxNode(x int32) int32 {
	if x == sentinel {
		return sentinel
	}
	for t.nodes[x].right != sentinel {
		x = t.nodes[x].right
	}
	return x
}

// In-order successor
func (t *Tree[V]) next(x int32) int32 {
	if t.nodes[x].right != sentinel {
		return t.minNode(t.nodes[x].right)
	}
	p := t.nodes[x].parent
	for p != sentinel && x == t.nodes[p].right {
		x = p
		p = t.nodes[p].parent
	}
	return p
}

// In-order predecessor
func (t *Tree[V]) prev(x int32) int32 {
	if t.nodes[x].left != sentinel {
		return t.maxNode(t.nodes[x].left)
	}
	p := t.nodes[x].parent
	for p != sentinel && x == t.nodes[p].left {
		x = p
		p = t.nodes[p].parent
	}
	return p
}

func (t *Tree[V]) rangeFrom(x int32, lo, hi int, fn func(int, V) bool) bool {
	if x == sentinel {
		return true
	}
	n := &t.nodes[x]
	if n.key > lo && !t.rangeFrom(n.left, lo, hi, fn) {
		return false
	}
	if lo <= n.key && n.key <= hi && !fn(n.key, n.value) {
		return false
	}
	if n.key < hi {
		return t.rangeFrom(n.right, lo, hi, fn)
	}
	return true
}

// recolor paints x and counts a flip if its stored color actually changes.
func (t *Tree[V]) recolor(x int32, c Color) {
	if t.nodes[x].color != c {
		t.nodes[x].color = c
		t.flips++
	}
}

/*************** Verification ***************/

// Verify checks the red-black invariants: black root, no red node with a red
// child, uniform black height, strictly increasing in-order keys, plus
// parent-link consistency and the cached size.
func (t *Tree[V]) Verify() error {
	if t.nodes[sentinel].color != black {
		return fmt.Errorf("rbtree: sentinel is %s", t.nodes[sentinel].color)
	}
	if t.root == sentinel {
		if t.size != 0 {
			return fmt.Errorf("rbtree: empty tree reports size %d", t.size)
		}
		return nil
	}
	if t.nodes[t.root].color != black {
		return fmt.Errorf("rbtree: root %d is red", t.nodes[t.root].key)
	}
	if t.nodes[t.root].parent != sentinel {
		return fmt.Errorf("rbtree: root %d has a parent", t.nodes[t.root].key)
	}
	count := 0
	if _, err := t.verify(t.root, nil, nil, &count); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("rbtree: counted %d nodes, size is %d", count, t.size)
	}
	return nil
}

// verify returns the black height of the subtree rooted at x.
func (t *Tree[V]) verify(x int32, lo, hi *int, count *int) (int, error) {
	if x == sentinel {
		return 1, nil
	}
	*count++
	n := t.nodes[x]
	if (lo != nil && n.key <= *lo) || (hi != nil && n.key >= *hi) {
		return 0, fmt.Errorf("rbtree: key %d out of order", n.key)
	}
	for _, c := range [2]int32{n.left, n.right} {
		if c == sentinel {
			continue
		}
		if t.nodes[c].parent != x {
			return 0, fmt.Errorf("rbtree: child %d of %d has a stale parent link", t.nodes[c].key, n.key)
		}
		if n.color == red && t.nodes[c].color == red {
			return 0, fmt.Errorf("rbtree: red node %d has red child %d", n.key, t.nodes[c].key)
		}
	}
	lh, err := t.verify(n.left, lo, &n.key, count)
	if err != nil {
		return 0, err
	}
	rh, err := t.verify(n.right, &n.key, hi, count)
	if err != nil {
		return 0, err
	}
	if lh != rh {
		return 0, fmt.Errorf("rbtree: black height differs under %d (%d vs %d)", n.key, lh, rh)
	}
	if n.color == black {
		lh++
	}
	return lh, nil
}
