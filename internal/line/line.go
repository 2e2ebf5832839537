// Package line implements a cheap, comparable reference to a byte range
// inside a shared buffer, optionally with a sub-range used as the
// ordering key.
package line

import "io"

// View is a reference into a shared, immutable-after-fill byte buffer.
// Start and End (inclusive) bound the line's bytes, excluding the
// newline. FieldStart/FieldEnd (exclusive end) bound the comparison key
// and default to the whole line. A View is cheap to copy: it holds a
// pointer to the shared buffer and four offsets, never a copy of the
// bytes themselves, so it can be handed to a worker goroutine without
// copying the underlying data.
//
// Invariant: Start <= FieldStart <= FieldEnd <= End+1 <= len(*Buf), and
// buf[Start:End+1] contains no newline byte.
type View struct {
	Buf        *[]byte
	Start      int
	End        int
	FieldStart int
	FieldEnd   int
}

// New builds a whole-line view: the key range is the entire line.
func New(buf *[]byte, start, end int) View {
	return View{Buf: buf, Start: start, End: end, FieldStart: start, FieldEnd: end + 1}
}

// NewWithField builds a view whose ordering key is the sub-range
// [fieldStart, fieldEnd) rather than the whole line.
func NewWithField(buf *[]byte, start, end, fieldStart, fieldEnd int) View {
	return View{Buf: buf, Start: start, End: end, FieldStart: fieldStart, FieldEnd: fieldEnd}
}

// Bytes returns the line's full bytes, excluding the newline.
func (v View) Bytes() []byte {
	if v.Start > v.End {
		return nil
	}
	return (*v.Buf)[v.Start : v.End+1]
}

// KeyBytes returns the bytes used for ordering: the configured field
// range, or the whole line if no field was configured.
func (v View) KeyBytes() []byte {
	if v.FieldStart >= v.FieldEnd {
		return nil
	}
	return (*v.Buf)[v.FieldStart:v.FieldEnd]
}

// Less orders two views by the lexicographic comparison of their key
// bytes, matching Go's byte-slice comparison semantics (shorter prefix
// sorts first on a tie).
func Less(a, b View) bool {
	ak, bk := a.KeyBytes(), b.KeyBytes()
	n := len(ak)
	if len(bk) < n {
		n = len(bk)
	}
	for i := 0; i < n; i++ {
		if ak[i] != bk[i] {
			return ak[i] < bk[i]
		}
	}
	return len(ak) < len(bk)
}

// Equal reports byte-equality of the two views' key ranges.
func Equal(a, b View) bool {
	ak, bk := a.KeyBytes(), b.KeyBytes()
	if len(ak) != len(bk) {
		return false
	}
	for i := range ak {
		if ak[i] != bk[i] {
			return false
		}
	}
	return true
}

// Write emits the line's bytes followed by a single '\n' to sink.
func (v View) Write(sink io.Writer) error {
	if _, err := sink.Write(v.Bytes()); err != nil {
		return err
	}
	_, err := sink.Write(newline)
	return err
}

var newline = []byte{'\n'}
