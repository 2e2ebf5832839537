// Package mergestage groups closed temp files into fan-in batches and
// dispatches one k-way merge per batch to the worker pool, repeating
// until the run set fits a single final merge.
//
// The per-batch k-way merge itself (Merge1) preloads one record per
// source, drives a winner tree by repeated pop/refill, writes the
// winner, and repeats: sources are chunkstream.LineStreams reading plain
// run files. Pass dispatches one such merge per fan-in group through the
// same admit/complete/replace loop sortstage.Run uses.
package mergestage

import (
	"context"
	"io"
	"math"

	"github.com/go-linesort/linesort/internal/chunkstream"
	"github.com/go-linesort/linesort/internal/config"
	"github.com/go-linesort/linesort/internal/line"
	"github.com/go-linesort/linesort/internal/tempfile"
	"github.com/go-linesort/linesort/internal/util"
	"github.com/go-linesort/linesort/internal/winnerheap"
	"github.com/go-linesort/linesort/internal/workerpool"
	"github.com/go-linesort/linesort/internal/xerrors"
)

const maxSourceBuffer = 40 << 20 // 40 MiB per reopened source stream

type completion struct {
	handle *tempfile.Closed
	err    error
}

// FanIn computes the effective merge fan-in for a pass over n runs:
// clamp(config.FanIn, 2, ceil(n/W)), which shrinks below the configured
// fan-in only when n is small, to keep at least W groups busy during the
// final passes.
func FanIn(n int, cfg *config.Config) int {
	upper := util.DivCeil(n, cfg.Workers)
	if upper < 2 {
		upper = 2
	}
	return util.Clamp(cfg.FanIn, 2, upper)
}

// Pass partitions runs into groups of up to FanIn(len(runs), cfg) and
// merges each group into a fresh run file in dir, returning the smaller
// run set. Errors propagate the same way as sortstage.Run: the first
// error observed stops admission, outstanding tasks are drained, and
// the error is returned. Merge1 removes every run it reopened, even when
// it fails; runs no task reached and merged runs already produced are
// left for the caller's temp directory teardown to reclaim.
func Pass(ctx context.Context, pool *workerpool.Pool, runs []*tempfile.Closed, dir *tempfile.Dir, cfg *config.Config) ([]*tempfile.Closed, error) {
	k := FanIn(len(runs), cfg)
	groups := util.IntoChunks(runs, k)

	done := make(chan completion, 1)
	var out []*tempfile.Closed
	var firstErr error
	outstanding := 0
	next := 0

	submitOne := func() {
		if next >= len(groups) {
			return
		}
		group := groups[next]
		next++

		w, err := dir.CreateNewFile()
		if err != nil {
			firstErr = err
			return
		}
		outstanding++
		pool.Submit(func() {
			if merr := Merge1(group, w, cfg, xerrors.KindTempIO); merr != nil {
				done <- completion{err: merr}
				return
			}
			closed, cerr := w.Close()
			if cerr != nil {
				done <- completion{err: cerr}
				return
			}
			done <- completion{handle: closed}
		})
	}

	for outstanding < cfg.Workers && next < len(groups) && ctx.Err() == nil && firstErr == nil {
		submitOne()
	}
	if ctx.Err() != nil && firstErr == nil {
		firstErr = ctx.Err()
	}

	for outstanding > 0 {
		r := <-done
		outstanding--

		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if firstErr != nil {
			continue
		}
		out = append(out, r.handle)
		submitOne()
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// source is one reopened run feeding the merge: the next not-yet-emitted
// line, and the stream it came from.
type source struct {
	v   line.View
	idx int
}

// Merge1 reopens every run in group, pulls one line from each, drives a
// winner tree until every source is drained, and writes the merged,
// non-decreasing sequence to sink.
// writeErrKind classifies a write failure against sink as either a temp
// file I/O failure (intermediate merge) or an output write failure (the
// final merge into the user's sink).
func Merge1(group []*tempfile.Closed, sink io.Writer, cfg *config.Config, writeErrKind xerrors.Kind) error {
	bufSize := maxSourceBuffer
	if len(group) > 0 {
		per := int(math.Min(float64(maxSourceBuffer), float64(cfg.Budget)/float64(len(group))))
		if per < 1 {
			per = 1
		}
		bufSize = per
	}

	readers := make([]*tempfile.Reader, 0, len(group))
	defer func() {
		for _, r := range readers {
			_ = r.CloseAndRemove()
		}
	}()

	streams := make([]*chunkstream.LineStream, len(group))
	for i, g := range group {
		r, err := g.Reopen(bufSize)
		if err != nil {
			return err
		}
		readers = append(readers, r)
		streams[i] = chunkstream.NewLineStream(chunkstream.New(r.Bufio(), bufSize, cfg))
	}

	var items []source
	for i, s := range streams {
		v, ok, err := s.Next()
		if err != nil {
			return err
		}
		if ok {
			items = append(items, source{v: v, idx: i})
		}
	}

	tree := winnerheap.Build(items, func(a, b source) bool { return line.Less(a.v, b.v) })

	for tree.Len() > 0 {
		winner, _ := tree.Peek()
		nv, ok, err := streams[winner.idx].Next()
		if err != nil {
			return err
		}

		var top source
		if ok {
			// The common case: the winning source isn't exhausted yet, so
			// pop and refill its leaf in a single fused tree update rather
			// than two separate root-to-leaf replays.
			top, _ = tree.PopPush(source{v: nv, idx: winner.idx})
		} else {
			top, _ = tree.Pop()
		}
		if err := top.v.Write(sink); err != nil {
			return xerrors.New(writeErrKind, "mergestage.Merge1", err)
		}
	}

	return nil
}
