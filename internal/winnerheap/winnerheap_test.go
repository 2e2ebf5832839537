package winnerheap

import (
	"math/rand"
	"testing"

	"gotest.tools/v3/assert"
)

func lessInt(a, b int) bool { return a < b }

func TestBuildThenPopAscending(t *testing.T) {
	items := []int{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	tr := Build(items, lessInt)

	var got []int
	for tr.Len() > 0 {
		v, ok := tr.Pop()
		assert.Assert(t, ok)
		got = append(got, v)
	}

	for i := 1; i < len(got); i++ {
		assert.Assert(t, got[i-1] <= got[i])
	}
	assert.Equal(t, len(got), len(items))
}

// TestKWayMergeSorted exercises the exact access pattern the merge stage
// uses: build a tree from the first element of several independently
// sorted sources, then repeatedly pop the winner, pull the next element
// from the same source, and push it into the just-vacated slot (or
// leave it empty if that source is drained). The emitted sequence must
// be the full non-decreasing merge of all sources.
func TestKWayMergeSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	numSources := 7
	sources := make([][]int, numSources)
	total := 0
	for i := range sources {
		n := rng.Intn(30)
		vals := make([]int, n)
		for j := range vals {
			vals[j] = rng.Intn(1000)
		}
		sortInts(vals)
		sources[i] = vals
		total += n
	}

	type item struct {
		v   int
		src int
	}
	pos := make([]int, numSources)
	var initial []item
	for i, s := range sources {
		if len(s) > 0 {
			initial = append(initial, item{v: s[0], src: i})
			pos[i] = 1
		}
	}

	tr := Build(initial, func(a, b item) bool { return a.v < b.v })
	var out []int
	for tr.Len() > 0 {
		top, ok := tr.Pop()
		assert.Assert(t, ok)
		out = append(out, top.v)

		s := sources[top.src]
		if pos[top.src] < len(s) {
			next := s[pos[top.src]]
			pos[top.src]++
			tr.Push(item{v: next, src: top.src})
		}
	}

	assert.Equal(t, len(out), total)
	for i := 1; i < len(out); i++ {
		assert.Assert(t, out[i-1] <= out[i])
	}
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func TestEmptyTree(t *testing.T) {
	tr := Build([]int{}, lessInt)
	assert.Equal(t, tr.Len(), 0)
	_, ok := tr.Peek()
	assert.Assert(t, !ok)
	_, ok = tr.Pop()
	assert.Assert(t, !ok)
}

func TestSingleItem(t *testing.T) {
	tr := Build([]int{42}, lessInt)
	assert.Equal(t, tr.Len(), 1)
	v, ok := tr.Peek()
	assert.Assert(t, ok)
	assert.Equal(t, v, 42)

	got, ok := tr.Pop()
	assert.Assert(t, ok)
	assert.Equal(t, got, 42)
	assert.Equal(t, tr.Len(), 0)
}

func TestPushWithoutPopFails(t *testing.T) {
	tr := Build([]int{1, 2}, lessInt)
	assert.Assert(t, !tr.Push(3))
}

// TestPopPush exercises the fused pop-and-refill-same-slot operation
// the merge stage's hot loop uses in place of separate Pop/Push calls.
func TestPopPush(t *testing.T) {
	tr := Build([]int{4, 7, 2}, lessInt)

	v, ok := tr.PopPush(14)
	assert.Assert(t, ok)
	assert.Equal(t, v, 2)

	v, ok = tr.PopPush(3)
	assert.Assert(t, ok)
	assert.Equal(t, v, 4)

	v, ok = tr.PopPush(4)
	assert.Assert(t, ok)
	assert.Equal(t, v, 3)

	assert.Equal(t, tr.Len(), 3)
	v, ok = tr.Peek()
	assert.Assert(t, ok)
	assert.Equal(t, v, 4)
}

func TestPopPushOnEmptyTree(t *testing.T) {
	tr := Build([]int{}, lessInt)
	_, ok := tr.PopPush(1)
	assert.Assert(t, !ok)
}

// TestPopPushMatchesPopThenPush checks that PopPush's single-replay path
// leaves the tree in the same observable state a separate Pop followed
// by Push would, for a seven-leaf tree whose winner sits mid-array.
func TestPopPushMatchesPopThenPush(t *testing.T) {
	base := []int{9, 2, 6, 4, 1, 8, 3}

	fused := Build(append([]int(nil), base...), lessInt)
	fv, fok := fused.PopPush(100)

	split := Build(append([]int(nil), base...), lessInt)
	sv, sok := split.Pop()
	split.Push(100)

	assert.Equal(t, fok, sok)
	assert.Equal(t, fv, sv)

	for fused.Len() > 0 {
		a, _ := fused.Pop()
		b, _ := split.Pop()
		assert.Equal(t, a, b)
	}
}

// TestUpdate exercises the direct leaf-mutation API, grounded on the
// same winner-tree access pattern PopPush uses internally: one
// updatePath replay per call, no Pop/Push protocol involved.
func TestUpdate(t *testing.T) {
	tr := Build([]int{5, 3, 8}, lessInt)

	v, ok := tr.Peek()
	assert.Assert(t, ok)
	assert.Equal(t, v, 3)

	tr.Update(1, 100)
	assert.Equal(t, tr.Len(), 3)
	v, ok = tr.Peek()
	assert.Assert(t, ok)
	assert.Equal(t, v, 5)

	popped, ok := tr.Pop()
	assert.Assert(t, ok)
	assert.Equal(t, popped, 5)
	assert.Equal(t, tr.Len(), 2)

	// Update can refill a leaf just emptied by Pop, as an alternative to
	// Push, since it does not depend on the pending-refill bookkeeping.
	tr.Update(0, 1)
	assert.Equal(t, tr.Len(), 3)
	v, ok = tr.Peek()
	assert.Assert(t, ok)
	assert.Equal(t, v, 1)
}
