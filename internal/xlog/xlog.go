// Package xlog is the ambient logger used outside the hot per-line
// path: stage progress and --stat output. A small set of levels and a
// single mutex-serialized writer mean concurrent sort/merge workers
// never interleave partial output lines.
package xlog

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Level filters which messages reach the writer.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var (
	mu    sync.Mutex
	level = LevelInfo
	impl  = log.New(os.Stderr, "", 0)
)

// SetLevel changes the minimum level that will be printed.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func printf(l Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	impl.Printf(format, args...)
}

// Debugf prints a debug-level progress message.
func Debugf(format string, args ...interface{}) { printf(LevelDebug, format, args...) }

// Infof prints an info-level message.
func Infof(format string, args ...interface{}) { printf(LevelInfo, format, args...) }

// Errorf prints an error-level message.
func Errorf(format string, args ...interface{}) { printf(LevelError, format, args...) }

// Stat prints the --stat summary line, always, regardless of level.
func Stat(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
