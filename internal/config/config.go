// Package config holds the plain, immutable-after-construction tunables
// consumed by the linesort core.
package config

import "github.com/go-linesort/linesort/internal/xerrors"

// MinBudget is the smallest memory budget the core accepts (1 MiB).
const MinBudget = 1 << 20

// Config is the set of tunables the core is built on. Every field is set
// once at construction and never mutated afterward; workers and stages
// only ever read it.
type Config struct {
	// Workers is the worker-pool thread count W, W >= 1.
	Workers int
	// Budget is the memory budget B in bytes, B >= MinBudget.
	Budget int64
	// FanIn is the merge fan-in K, K >= 2.
	FanIn int
	// Delimiter is the field delimiter byte D, only meaningful when
	// Field > 0.
	Delimiter byte
	// Field is the sort key selector F. 0 means the whole line is the
	// key. A positive F selects the field following the F-th occurrence
	// of Delimiter (so F=1 selects the field after the first
	// delimiter, i.e. the second delimited column).
	Field int
}

// Default returns a Config with reasonable defaults: one worker per
// logical core's worth of work is left to the caller (CLI default is set
// in cmd/linesort), a 64 MiB budget, fan-in 8, whole-line sort.
func Default() *Config {
	return &Config{
		Workers:   1,
		Budget:    64 << 20,
		FanIn:     8,
		Delimiter: '\t',
		Field:     0,
	}
}

// Validate checks the configuration's invariants and returns a
// KindConfigInvalid *xerrors.Error describing the first violation found,
// or nil if c is usable. Validation happens before any I/O.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return xerrors.ConfigInvalid("worker count must be >= 1")
	}
	if c.Budget < MinBudget {
		return xerrors.ConfigInvalid("memory budget must be >= 1 MiB")
	}
	if c.FanIn < 2 {
		return xerrors.ConfigInvalid("merge fan-in must be >= 2")
	}
	if c.Field < 0 {
		return xerrors.ConfigInvalid("field index must be >= 0")
	}
	return nil
}

// ChunkSize is the size in bytes of one chunk-stream read buffer, derived
// from the memory budget split evenly across workers.
func (c *Config) ChunkSize() int {
	n := c.Budget / int64(c.Workers)
	if n < 1 {
		n = 1
	}
	return int(n)
}
