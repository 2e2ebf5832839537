// Package xerrors defines the typed error kinds that cross worker and
// stage boundaries in linesort: an Op/Original wrapper plus
// multierror-based aggregation for independent failures.
package xerrors

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind identifies one of the error kinds named in the error handling
// design: input/output failures, temp file I/O, an oversized line, or an
// invalid configuration.
type Kind int

const (
	// KindInputRead means the byte source reported an error.
	KindInputRead Kind = iota
	// KindOutputWrite means the byte sink reported an error.
	KindOutputWrite
	// KindTempIO means a temp file create/open/read/write/remove failed.
	KindTempIO
	// KindLineTooLarge means a line exceeded the per-worker buffer size.
	KindLineTooLarge
	// KindConfigInvalid means the configuration failed validation.
	KindConfigInvalid
)

func (k Kind) String() string {
	switch k {
	case KindInputRead:
		return "input read failure"
	case KindOutputWrite:
		return "output write failure"
	case KindTempIO:
		return "temp file I/O failure"
	case KindLineTooLarge:
		return "line too large"
	case KindConfigInvalid:
		return "invalid configuration"
	default:
		return "unknown error"
	}
}

// Error is the typed error carried through the sort/merge pipeline. Op
// names the operation that failed (e.g. "sortstage.spill",
// "mergestage.Merge1"); Original is the underlying cause, if any.
type Error struct {
	Kind     Kind
	Op       string
	Original error
}

func (e *Error) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Original)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Original }

// New wraps err as a typed linesort error of kind k, attributed to op.
func New(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Original: err}
}

// LineTooLarge reports a line that overran a per-worker read buffer of
// bufSize bytes while scanning for a newline starting at byte offset
// offset of the input stream.
func LineTooLarge(op string, bufSize int, offset int64) *Error {
	return &Error{
		Kind: KindLineTooLarge,
		Op:   op,
		Original: fmt.Errorf("line at offset %d exceeds buffer size %d bytes; "+
			"increase the memory budget or lower the worker count", offset, bufSize),
	}
}

// ConfigInvalid reports a configuration that failed validation.
func ConfigInvalid(reason string) *Error {
	return &Error{Kind: KindConfigInvalid, Op: "config.Validate", Original: errors.New(reason)}
}

// IsLineTooLarge reports whether err (or any error it wraps, including
// inside a multierror.Error) is a KindLineTooLarge failure.
func IsLineTooLarge(err error) bool {
	return hasKind(err, KindLineTooLarge)
}

func hasKind(err error, k Kind) bool {
	if err == nil {
		return false
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if te, ok := e.(*Error); ok && te.Kind == k {
			return true
		}
		if merr, ok := e.(*multierror.Error); ok {
			for _, sub := range merr.Errors {
				if hasKind(sub, k) {
					return true
				}
			}
			return false
		}
	}
	return false
}

// Append aggregates err into the existing multierror (which may be nil),
// collecting independent teardown failures rather than silently
// dropping them.
func Append(existing error, err error) error {
	if err == nil {
		return existing
	}
	return multierror.Append(existing, err)
}
