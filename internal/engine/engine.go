// Package engine implements the top-level driver that orchestrates the
// sort stage, the cascaded merge stages, and the final merge into the
// output sink. Each step fully drains its inputs before the next begins;
// there is no overlap between sort and merge.
package engine

import (
	"context"
	"io"

	"github.com/go-linesort/linesort/internal/chunkstream"
	"github.com/go-linesort/linesort/internal/config"
	"github.com/go-linesort/linesort/internal/mergestage"
	"github.com/go-linesort/linesort/internal/sortstage"
	"github.com/go-linesort/linesort/internal/tempfile"
	"github.com/go-linesort/linesort/internal/workerpool"
	"github.com/go-linesort/linesort/internal/xerrors"
	"github.com/go-linesort/linesort/internal/xlog"
)

// Stats summarizes one ExternalSort run for the --stat CLI flag.
type Stats struct {
	InitialRuns int
	MergePasses int
}

// ExternalSort drains input, sorts it under cfg's memory/worker budget,
// and writes the sorted, newline-terminated lines to output. dir is an
// already-constructed temp directory that the caller owns; ExternalSort
// never closes it, leaving teardown timing to the caller.
func ExternalSort(ctx context.Context, input io.Reader, output io.Writer, dir *tempfile.Dir, cfg *config.Config) (Stats, error) {
	var stats Stats

	if err := cfg.Validate(); err != nil {
		return stats, err
	}

	pool := workerpool.New(cfg.Workers)
	defer pool.Wait()

	stream := chunkstream.New(input, cfg.ChunkSize(), cfg)

	runs, err := sortstage.Run(ctx, pool, stream, dir, cfg)
	if err != nil {
		return stats, err
	}
	stats.InitialRuns = len(runs)
	xlog.Debugf("sort stage produced %d initial run(s)", len(runs))

	if len(runs) == 0 {
		// An empty input is not an error: nothing to merge, the output
		// stream is simply empty.
		return stats, nil
	}

	for len(runs) > cfg.FanIn {
		runs, err = mergestage.Pass(ctx, pool, runs, dir, cfg)
		if err != nil {
			return stats, err
		}
		stats.MergePasses++
		xlog.Debugf("merge pass %d reduced run set to %d", stats.MergePasses, len(runs))
	}

	if err := mergestage.Merge1(runs, output, cfg, xerrors.KindOutputWrite); err != nil {
		return stats, err
	}
	stats.MergePasses++

	return stats, nil
}
