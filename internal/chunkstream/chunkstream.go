// Package chunkstream implements a lazy sequence of chunks drawn from a
// byte source that preserves partial trailing lines across reads, and a
// line stream that flattens a chunk stream into a lazy sequence of line
// views while keeping each chunk alive for as long as its lines are
// outstanding.
//
// The carry-over-bytes technique retains a "remaining" tail between Read
// calls rather than scanning the source byte-by-byte.
package chunkstream

import (
	"bytes"
	"io"

	"github.com/go-linesort/linesort/internal/chunk"
	"github.com/go-linesort/linesort/internal/config"
	"github.com/go-linesort/linesort/internal/line"
	"github.com/go-linesort/linesort/internal/util"
	"github.com/go-linesort/linesort/internal/xerrors"
)

// Stream draws chunks of at most bufSize bytes from src, carrying any
// trailing partial line forward into the next chunk.
type Stream struct {
	src      io.Reader
	bufSize  int
	cfg      *config.Config
	carry    []byte
	consumed int64
	eofSeen  bool
}

// New returns a Stream reading from src in bufSize-byte chunks, using
// cfg for the delimiter/field key selection of every line it produces.
func New(src io.Reader, bufSize int, cfg *config.Config) *Stream {
	if bufSize < 1 {
		bufSize = 1
	}
	return &Stream{src: src, bufSize: bufSize, cfg: cfg}
}

// Next returns the next chunk, or io.EOF when the source is exhausted,
// including the line-too-large edge case and the implicit-newline-on-
// final-line normalization.
func (s *Stream) Next() (*chunk.Chunk, error) {
	buf := make([]byte, s.bufSize)
	n := copy(buf, s.carry)

	for !s.eofSeen && n < len(buf) {
		m, err := s.src.Read(buf[n:])
		n += m
		if err != nil {
			if err == io.EOF {
				s.eofSeen = true
				break
			}
			return nil, xerrors.New(xerrors.KindInputRead, "chunkstream.Next", err)
		}
		if m == 0 {
			// A conforming io.Reader must eventually make progress or
			// report an error; treat a lone zero-byte, nil-error read as
			// end of data to avoid spinning.
			s.eofSeen = true
			break
		}
	}

	if n == 0 {
		return nil, io.EOF
	}

	var usableLen int
	if s.eofSeen {
		// The underlying source is exhausted: everything read is usable,
		// including a final line with no trailing newline.
		usableLen = n
		s.carry = nil
	} else {
		lastNL := bytes.LastIndexByte(buf[:n], '\n')
		if lastNL == -1 {
			return nil, xerrors.LineTooLarge("chunkstream.Next", s.bufSize, s.consumed)
		}
		usableLen = lastNL + 1
		tail := n - usableLen
		carry := make([]byte, tail)
		copy(carry, buf[usableLen:n])
		s.carry = carry
	}

	bufSlice := buf[:usableLen]
	lines := s.scanLines(bufSlice)
	s.consumed += int64(usableLen)
	return chunk.New(bufSlice, lines), nil
}

// scanLines splits data (the usable prefix of a read) into line views,
// applying the configured field selector to each.
func (s *Stream) scanLines(data []byte) []line.View {
	buf := data
	var lines []line.View
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, s.makeView(&buf, start, i-1))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, s.makeView(&buf, start, len(data)-1))
	}
	return lines
}

// makeView builds one line view over buf[start:end+1] (end may be
// start-1 for an empty line), resolving the key range from cfg.
func (s *Stream) makeView(buf *[]byte, start, end int) line.View {
	if s.cfg == nil || s.cfg.Field == 0 {
		return line.New(buf, start, end)
	}

	var lineBytes []byte
	if start <= end {
		lineBytes = (*buf)[start : end+1]
	}

	fs, fe, ok := util.ScanNthDelimiter(lineBytes, s.cfg.Delimiter, s.cfg.Field)
	if !ok {
		// Fewer than F+1 fields: the empty suffix is the key.
		return line.NewWithField(buf, start, end, end+1, end+1)
	}
	return line.NewWithField(buf, start, end, start+fs, start+fe)
}

// LineStream flattens a chunk Stream into one line.View at a time,
// keeping the chunk it is currently drawing from alive in cur so that
// views into its buffer remain valid.
type LineStream struct {
	src *Stream
	cur *chunk.Chunk
	idx int
}

// NewLineStream wraps src.
func NewLineStream(src *Stream) *LineStream {
	return &LineStream{src: src}
}

// Next returns the next line view, or ok=false once src is exhausted.
func (ls *LineStream) Next() (line.View, bool, error) {
	for ls.cur == nil || ls.idx >= ls.cur.Len() {
		c, err := ls.src.Next()
		if err == io.EOF {
			return line.View{}, false, nil
		}
		if err != nil {
			return line.View{}, false, err
		}
		ls.cur = c
		ls.idx = 0
	}
	v := ls.cur.Lines[ls.idx]
	ls.idx++
	return v, true, nil
}
