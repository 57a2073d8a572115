package codesize

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrOpen reports that a root or entry could not be opened.
	ErrOpen = errors.New("open error")
	// ErrIO reports a read failure during metric extraction or directory enumeration.
	ErrIO = errors.New("io error")
	// ErrSource reports that the tracked-file source failed to produce its listing.
	ErrSource = errors.New("source error")
)

// Error is a failure that aborts a scan. It records the operation and path
// that failed.
type Error struct {
	// Kind is one of ErrOpen, ErrIO or ErrSource.
	Kind error
	// Op is the failing operation, e.g. "openat" or "read".
	Op string
	// Path is the file or directory involved.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
	}

	return fmt.Sprintf("%v: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func openError(op, path string, err error) error {
	return &Error{Kind: ErrOpen, Op: op, Path: path, Err: err}
}

func ioError(op, path string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Path: path, Err: err}
}

func sourceError(op, path string, err error) error {
	return &Error{Kind: ErrSource, Op: op, Path: path, Err: err}
}

// asScanError returns err unchanged if it already is an *Error, otherwise
// wraps it with the given kind.
func asScanError(kind error, op, path string, err error) error {
	var scanErr *Error
	if errors.As(err, &scanErr) {
		return err
	}

	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
