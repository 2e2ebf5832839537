// Package tempfile implements a typed lifecycle over a single temp file
// (writing -> closed -> reading -> removed) and a scoped directory that
// vends fresh handles and guarantees deletion on every exit path,
// including abort. Each run gets its own real file inside one shared,
// uniquely-named subdirectory, so a run can be reopened and individually
// removed mid-merge without disturbing its siblings. Directory naming
// uses google/uuid so concurrent invocations sharing one base directory
// never collide.
package tempfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"

	"github.com/go-linesort/linesort/internal/xerrors"
)

const writeBufferSize = 1 << 16 // 64 KiB

// Writer is a temp file in the *writing* state.
type Writer struct {
	path string
	f    *os.File
	buf  *bufio.Writer
}

// Write appends p to the file's write buffer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	if err != nil {
		return n, xerrors.New(xerrors.KindTempIO, "tempfile.Write", err)
	}
	return n, nil
}

// Close flushes the write buffer, closes the OS file, and transitions
// the handle to *closed*, the only form allowed to cross a worker
// boundary.
func (w *Writer) Close() (*Closed, error) {
	if err := w.buf.Flush(); err != nil {
		return nil, xerrors.New(xerrors.KindTempIO, "tempfile.Close", err)
	}
	if err := w.f.Close(); err != nil {
		return nil, xerrors.New(xerrors.KindTempIO, "tempfile.Close", err)
	}
	return &Closed{path: w.path}, nil
}

// Closed is a temp file in the *closed* state: exclusively owns its
// path, ready to be reopened for reading or passed to another worker.
type Closed struct {
	path string
}

// Path returns the file's path on disk.
func (c *Closed) Path() string { return c.path }

// Reopen transitions to the *reading* state, returning a buffered reader
// positioned at the start of the file with the given buffer size.
func (c *Closed) Reopen(bufSize int) (*Reader, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, xerrors.New(xerrors.KindTempIO, "tempfile.Reopen", err)
	}
	if bufSize < 1 {
		bufSize = writeBufferSize
	}
	return &Reader{path: c.path, f: f, buf: bufio.NewReaderSize(f, bufSize)}, nil
}

// Reader is a temp file in the *reading* state.
type Reader struct {
	path string
	f    *os.File
	buf  *bufio.Reader
}

// Bufio exposes the underlying buffered reader for the line stream.
func (r *Reader) Bufio() io.Reader { return r.buf }

// CloseAndRemove transitions to the terminal *removed* state: closes
// the OS file and unlinks the path.
func (r *Reader) CloseAndRemove() error {
	cerr := r.f.Close()
	rerr := os.Remove(r.path)
	if cerr != nil {
		return xerrors.New(xerrors.KindTempIO, "tempfile.CloseAndRemove", cerr)
	}
	if rerr != nil {
		return xerrors.New(xerrors.KindTempIO, "tempfile.CloseAndRemove", rerr)
	}
	return nil
}

// Dir is a scoped temp directory: it vends fresh Writer handles named by
// a zero-padded monotonically increasing counter, and guarantees the
// subdirectory and its contents are removed on both normal teardown and
// process abort.
type Dir struct {
	path string

	mu      sync.Mutex
	counter int

	stopAbort func()
}

// New creates a uniquely-named subdirectory under location (the OS
// default temp dir if location is empty) and registers a best-effort
// abort handler on SIGINT/SIGTERM, scoped to tearing down only this
// directory.
func New(location string) (*Dir, error) {
	if location == "" {
		location = os.TempDir()
	}
	name := fmt.Sprintf("linesort-%s", uuid.NewString())
	path := filepath.Join(location, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, xerrors.New(xerrors.KindTempIO, "tempfile.New", err)
	}

	d := &Dir{path: path}
	d.registerAbortHandler()
	return d, nil
}

// Path returns the directory's path on disk.
func (d *Dir) Path() string { return d.path }

// CreateNewFile returns a fresh *writing* handle whose file name is the
// next zero-padded counter value.
func (d *Dir) CreateNewFile() (*Writer, error) {
	d.mu.Lock()
	n := d.counter
	d.counter++
	d.mu.Unlock()

	name := fmt.Sprintf("%010d", n)
	path := filepath.Join(d.path, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, xerrors.New(xerrors.KindTempIO, "tempfile.CreateNewFile", err)
	}
	return &Writer{path: path, f: f, buf: bufio.NewWriterSize(f, writeBufferSize)}, nil
}

// Close tears down the directory and everything left in it: the normal
// (non-abort) exit path. Any individually reported removal failures are
// aggregated with hashicorp/go-multierror rather than dropped.
func (d *Dir) Close() error {
	if d.stopAbort != nil {
		d.stopAbort()
	}
	return cleanup(d.path)
}

// registerAbortHandler installs a single SIGINT/SIGTERM handler that
// best-effort removes this directory before letting the process
// continue toward exit. The handler is deregistered in Close so that
// normal teardown does not leave a dangling goroutine.
func (d *Dir) registerAbortHandler() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	d.stopAbort = stop
	go func() {
		<-ctx.Done()
		_ = cleanup(d.path)
	}()
}

// cleanup best-effort removes every file inside dir and then dir itself,
// walking it bottom-up with karrick/godirwalk.
func cleanup(dir string) error {
	var err error
	walkErr := godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				err = xerrors.Append(err, xerrors.New(xerrors.KindTempIO, "tempfile.cleanup", rmErr))
			}
			return nil
		},
		PostChildrenCallback: func(path string, de *godirwalk.Dirent) error {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				err = xerrors.Append(err, xerrors.New(xerrors.KindTempIO, "tempfile.cleanup", rmErr))
			}
			return nil
		},
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		err = xerrors.Append(err, xerrors.New(xerrors.KindTempIO, "tempfile.cleanup", walkErr))
	}
	return err
}
