// Package sortstage drains the input chunk stream, dispatching one
// sort-and-spill task per chunk to the worker pool, with back-pressure
// bounding outstanding chunks to at most W+1 via a capacity-1 completion
// channel.
//
// Each task both sorts and spills its chunk in one worker, rather than
// handing off between separate sort and save goroutines. The
// capacity-1 completion channel and first-error-wins bookkeeping are
// what keep admission itself bounded, not just fanned out and awaited.
package sortstage

import (
	"context"
	"io"

	"github.com/go-linesort/linesort/internal/chunkstream"
	"github.com/go-linesort/linesort/internal/config"
	"github.com/go-linesort/linesort/internal/tempfile"
	"github.com/go-linesort/linesort/internal/workerpool"
	"github.com/go-linesort/linesort/internal/xerrors"
)

type completion struct {
	handle *tempfile.Closed
	err    error
}

// Run drains stream, producing one closed run file per chunk via pool,
// and returns the set of closed runs once the stream is exhausted and
// every outstanding task has completed. On the first error observed
// (from reading the stream, creating a temp file, or a worker), Run
// stops admitting new tasks, drains the outstanding ones, and returns
// that error.
func Run(ctx context.Context, pool *workerpool.Pool, stream *chunkstream.Stream, dir *tempfile.Dir, cfg *config.Config) ([]*tempfile.Closed, error) {
	done := make(chan completion, 1)

	var runs []*tempfile.Closed
	var firstErr error
	exhausted := false
	outstanding := 0

	submitOne := func() {
		c, err := stream.Next()
		if err == io.EOF {
			exhausted = true
			return
		}
		if err != nil {
			firstErr = err
			exhausted = true
			return
		}
		w, err := dir.CreateNewFile()
		if err != nil {
			firstErr = err
			exhausted = true
			return
		}
		outstanding++
		pool.Submit(func() {
			c.SortUnstable()
			if werr := c.Write(w); werr != nil {
				done <- completion{err: xerrors.New(xerrors.KindTempIO, "sortstage.spill", werr)}
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

	for !exhausted && outstanding < cfg.Workers && ctx.Err() == nil {
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

		runs = append(runs, r.handle)
		if !exhausted {
			submitOne()
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return runs, nil
}
