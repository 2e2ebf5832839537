// Package winnerheap implements an explicit tournament ("winner") tree
// optimised for the merge stage's pop-then-push-into-the-same-slot
// access pattern. A sift-down binary heap pays roughly 2*ceil(log2 N)
// comparisons per replace-top; because the merge stage always refills
// the exact leaf it just emptied, a winner tree pays only ceil(log2 N)
// by re-playing the single path from that leaf to the root.
package winnerheap

// Less reports whether a orders before b. The heap never interprets
// item values itself; ties may resolve either way.
type Less[T any] func(a, b T) bool

// Tree is an array-based tournament heap. Leaves occupy absolute
// indices [0, n); the backing array is padded to the next power of two
// so every internal node has exactly two children, with padding leaves
// permanently empty (and therefore always losing).
type Tree[T any] struct {
	less   Less[T]
	leaves []T
	empty  []bool
	n      int   // number of real leaf slots (== len(leaves) == len(empty))
	size   int   // padded capacity, a power of two, >= 1
	arr    []int // arr[i] = winning leaf index of the subtree rooted at array position i; leaf level occupies [size, 2*size)
	count  int   // number of non-empty leaves
	last   int   // leaf index most recently popped; -1 if no slot is pending refill
}

// Build constructs a tree over items in O(N).
func Build[T any](items []T, less Less[T]) *Tree[T] {
	n := len(items)
	size := nextPow2(n)
	t := &Tree[T]{
		less:   less,
		leaves: append([]T(nil), items...),
		empty:  make([]bool, n),
		n:      n,
		size:   size,
		arr:    make([]int, 2*size),
		count:  n,
		last:   -1,
	}
	for i := 0; i < size; i++ {
		t.arr[size+i] = i
	}
	for i := size - 1; i >= 1; i-- {
		t.arr[i] = t.better(t.arr[2*i], t.arr[2*i+1])
	}
	return t
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (t *Tree[T]) isEmptyLeaf(leaf int) bool {
	return leaf >= t.n || t.empty[leaf]
}

// better returns whichever of the two leaf indices wins: an empty leaf
// always loses, two empties stay arbitrary-but-empty, and otherwise the
// Less function decides.
func (t *Tree[T]) better(a, b int) int {
	ea, eb := t.isEmptyLeaf(a), t.isEmptyLeaf(b)
	switch {
	case ea && eb:
		return a
	case ea:
		return b
	case eb:
		return a
	default:
		if t.less(t.leaves[b], t.leaves[a]) {
			return b
		}
		return a
	}
}

// updatePath recomputes every ancestor of leaf from leaf's array
// position up to the root, in O(log N).
func (t *Tree[T]) updatePath(leaf int) {
	pos := (t.size + leaf) / 2
	for pos >= 1 {
		t.arr[pos] = t.better(t.arr[2*pos], t.arr[2*pos+1])
		pos /= 2
	}
}

// Len returns the number of non-empty leaves.
func (t *Tree[T]) Len() int { return t.count }

// Peek returns the current winner without mutating the tree.
func (t *Tree[T]) Peek() (T, bool) {
	var zero T
	if t.count == 0 {
		return zero, false
	}
	winner := t.arr[1]
	return t.leaves[winner], true
}

// Pop removes and returns the current winner, leaving its leaf slot
// empty until the next Push or PopPush.
func (t *Tree[T]) Pop() (T, bool) {
	var zero T
	if t.count == 0 {
		return zero, false
	}
	winner := t.arr[1]
	val := t.leaves[winner]
	t.empty[winner] = true
	t.count--
	t.last = winner
	t.updatePath(winner)
	return val, true
}

// Push refills the slot left empty by the most recent Pop with item and
// re-plays the path from that leaf to the root. It reports false if no
// slot is currently empty (no Pop has happened since the last Push).
func (t *Tree[T]) Push(item T) bool {
	if t.last < 0 {
		return false
	}
	idx := t.last
	t.leaves[idx] = item
	t.empty[idx] = false
	t.count++
	t.last = -1
	t.updatePath(idx)
	return true
}

// PopPush is the fused pop-then-refill-same-slot operation: it pops the
// current winner, refills its leaf with item in place, and re-plays the
// leaf-to-root path exactly once, returning the popped value. Unlike
// calling Pop followed by Push, the winning leaf is never left in the
// transient "empty" state, so only one updatePath walk runs instead of
// two.
func (t *Tree[T]) PopPush(item T) (T, bool) {
	var zero T
	if t.count == 0 {
		return zero, false
	}
	winner := t.arr[1]
	val := t.leaves[winner]
	t.leaves[winner] = item
	t.empty[winner] = false
	t.last = -1
	t.updatePath(winner)
	return val, true
}

// Update re-plays the path from leaf to the root after the caller has
// placed item directly into that (assumed non-empty, or becoming
// non-empty) leaf slot, without going through the Pop/Push protocol.
func (t *Tree[T]) Update(leaf int, item T) {
	t.leaves[leaf] = item
	if t.empty[leaf] {
		t.count++
	}
	t.empty[leaf] = false
	t.updatePath(leaf)
}
