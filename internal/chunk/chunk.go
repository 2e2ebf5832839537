// Package chunk implements an owned buffer plus the ordered line views
// into it, sortable in place. It is the unit of work handed from the
// chunked reader to a sort-stage worker: a chunk owns its buffer
// exclusively, and its line views never outlive it.
package chunk

import (
	"io"
	"sort"

	"github.com/go-linesort/linesort/internal/line"
)

// Chunk owns one byte buffer and an ordered sequence of line views into
// it: a slice of records plus a less-func, operating on zero-copy
// line.View references rather than copies of the underlying bytes.
type Chunk struct {
	buf   []byte
	Lines []line.View
}

// New wraps buf and lines into a Chunk. buf is retained, not copied: it
// must not be mutated again by the caller once ownership transfers here.
func New(buf []byte, lines []line.View) *Chunk {
	return &Chunk{buf: buf, Lines: lines}
}

// Len returns the number of lines in the chunk.
func (c *Chunk) Len() int { return len(c.Lines) }

// SortUnstable reorders the chunk's line views in place by the line-view
// comparator. Ties resolve arbitrarily; sort.Sort is not required to be
// stable, and stability is not a goal here.
func (c *Chunk) SortUnstable() {
	sort.Sort((*byKey)(c))
}

// Write emits every line view in the chunk's current order, each
// followed by a single '\n', to sink.
func (c *Chunk) Write(sink io.Writer) error {
	for _, v := range c.Lines {
		if err := v.Write(sink); err != nil {
			return err
		}
	}
	return nil
}

// byKey adapts Chunk to sort.Interface without exposing a second public
// type; it is defined over *Chunk so SortUnstable needs no allocation.
type byKey Chunk

func (c *byKey) Len() int      { return len(c.Lines) }
func (c *byKey) Swap(i, j int) { c.Lines[i], c.Lines[j] = c.Lines[j], c.Lines[i] }
func (c *byKey) Less(i, j int) bool {
	return line.Less(c.Lines[i], c.Lines[j])
}
