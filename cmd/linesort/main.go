// Command linesort is the thin CLI driver around the external-sort core:
// a single urfave/cli/v2 app, SIGINT/SIGTERM-driven temp-directory
// cleanup, and a --stat summary line printed at the end.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/go-linesort/linesort/internal/config"
	"github.com/go-linesort/linesort/internal/engine"
	"github.com/go-linesort/linesort/internal/tempfile"
	"github.com/go-linesort/linesort/internal/xerrors"
	"github.com/go-linesort/linesort/internal/xlog"
)

func main() {
	app := &cli.App{
		Name:  "linesort",
		Usage: "external merge-sort for line-oriented byte streams larger than memory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "temp-dir",
				Aliases: []string{"t"},
				Usage:   "directory to create the scratch subdirectory in (default: OS temp dir)",
			},
			&cli.StringFlag{
				Name:    "buffer",
				Aliases: []string{"b"},
				Value:   "64M",
				Usage:   "memory budget, e.g. 64M, 1G, or a bare byte count",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"p"},
				Value:   1,
				Usage:   "worker count",
			},
			&cli.StringFlag{
				Name:    "delimiter",
				Aliases: []string{"d"},
				Value:   "\t",
				Usage:   "field delimiter (first byte of the argument)",
			},
			&cli.IntFlag{
				Name:    "field",
				Aliases: []string{"f"},
				Value:   0,
				Usage:   "field to sort by, counted by delimiter occurrence (0 sorts by the whole line; 1 sorts by the field after the first delimiter)",
			},
			&cli.BoolFlag{
				Name:  "stat",
				Usage: "print a summary of run/pass counts and elapsed time to stderr",
			},
		},
		ArgsUsage: "[input-file] [output-file]",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		xlog.Errorf("%v", err)
		os.Exit(exitCode(err))
	}
}

// exitCode reports 1 for a LineTooLarge failure (actionable: raise
// --buffer or lower --workers) and for an interrupted run, 2 for any other
// error.
func exitCode(err error) int {
	if xerrors.IsLineTooLarge(err) || errors.Is(err, context.Canceled) {
		return 1
	}
	return 2
}

func run(c *cli.Context) error {
	budget, err := parseSize(c.String("buffer"))
	if err != nil {
		return err
	}

	delim := byte('\t')
	if d := c.String("delimiter"); d != "" {
		delim = d[0]
	}

	cfg := &config.Config{
		Workers:   c.Int("workers"),
		Budget:    budget,
		FanIn:     8,
		Delimiter: delim,
		Field:     c.Int("field"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	input, closeInput, err := openInput(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer closeInput()

	output, closeOutput, err := openOutput(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer closeOutput()

	dir, err := tempfile.New(c.String("temp-dir"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		xlog.Infof("got signal, cleaning up")
		cancel()
		_ = dir.Close()
		os.Exit(1)
	}()

	start := time.Now()
	stats, runErr := engine.ExternalSort(ctx, input, output, dir, cfg)
	closeErr := dir.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	if c.Bool("stat") {
		xlog.Stat("# initial runs: %d, merge passes: %d, elapsed: %v",
			stats.InitialRuns, stats.MergePasses, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func openInput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, xerrors.New(xerrors.KindInputRead, "main.openInput", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, xerrors.New(xerrors.KindOutputWrite, "main.openOutput", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// parseSize parses a human-readable byte count like "64M" or "1G".
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, xerrors.ConfigInvalid("empty buffer size")
	}
	mult := int64(1)
	switch suffix := s[len(s)-1]; suffix {
	case 'k', 'K':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1 << 30
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, xerrors.ConfigInvalid(fmt.Sprintf("invalid buffer size %q", s))
	}
	return n * mult, nil
}
