// Package util implements small, shared helpers: vector chunking and
// delimiter scanning.
package util

import "golang.org/x/exp/constraints"

// IntoChunks partitions items into contiguous sub-slices of length up to
// n (the last may be shorter). The order of the original slice need not
// be preserved: grouping only ever applies to independently-ordered run
// files, so this implementation pops groups off the tail of items
// because group order carries no semantics at the merge-stage level.
func IntoChunks[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	out := make([][]T, 0, (len(items)+n-1)/n)
	for len(items) > 0 {
		take := n
		if take > len(items) {
			take = len(items)
		}
		tail := len(items) - take
		out = append(out, items[tail:])
		items = items[:tail]
	}
	return out
}

// Clamp restricts v to the closed interval [lo, hi]. If lo > hi, hi wins
// (the range collapses to the single value hi) so callers computing a
// fan-in upper bound that has dropped below the floor of 2 still get a
// usable answer rather than a panic.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo = hi
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DivCeil returns ceil(a / b) for positive integers.
func DivCeil[T constraints.Integer](a, b T) T {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// ScanNthDelimiter returns the half-open byte range [start, end) of the
// n-th (0-indexed) delimiter-bounded field within line. A field is the
// bytes strictly between two delimiters (or the start/end of line for
// the first/last field). If line has fewer than n+1 fields, ok is false
// and callers must fall back to an empty key.
func ScanNthDelimiter(line []byte, d byte, n int) (start, end int, ok bool) {
	if n < 0 {
		return 0, 0, false
	}
	fieldStart := 0
	field := 0
	for i := 0; i < len(line); i++ {
		if line[i] != d {
			continue
		}
		if field == n {
			return fieldStart, i, true
		}
		field++
		fieldStart = i + 1
	}
	if field == n {
		return fieldStart, len(line), true
	}
	return 0, 0, false
}
