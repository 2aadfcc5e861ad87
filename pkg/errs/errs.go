package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedStream is matched by every structural JSON failure.
	ErrMalformedStream = errors.New("malformed stream")
	// ErrIO is matched by every cache, source or sink I/O failure.
	ErrIO = errors.New("i/o failure")
	// ErrExhausted is returned by Next on an iterator with nothing buffered.
	ErrExhausted = errors.New("iterator exhausted")
)

// MalformedStreamError reports a structural violation of the
// "array of objects" contract.
type MalformedStreamError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *MalformedStreamError) Error() string {
	msg := fmt.Sprintf("malformed stream at offset %d: %s", e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedStreamError) Unwrap() error { return e.Err }

func (e *MalformedStreamError) Is(target error) bool { return target == ErrMalformedStream }

// IOError reports a failed read, write, create or open.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// Malformed builds a MalformedStreamError.
func Malformed(offset int64, reason string, err error) error {
	return &MalformedStreamError{Offset: offset, Reason: reason, Err: err}
}

// IO builds an IOError, returning nil when err is nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// IsMalformed reports whether err is a structural stream failure.
func IsMalformed(err error) bool { return errors.Is(err, ErrMalformedStream) }

// IsIO reports whether err is an I/O failure.
func IsIO(err error) bool { return errors.Is(err, ErrIO) }
