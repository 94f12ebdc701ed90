// Package gerrors defines the error kinds surfaced across the Greylock
// core: engine failures, corrupt persisted values, missing keys, malformed
// requests, and merge-operator rejections.
package gerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way the core distinguishes recoverable
// conditions (NotFound on a posting list) from fatal ones (CorruptFormat).
type Kind int

const (
	// Unknown is the zero value; never returned deliberately.
	Unknown Kind = iota
	// IoError is an engine I/O failure, propagated without recovery.
	IoError
	// CorruptFormat is a deserialization failure of a persisted value.
	CorruptFormat
	// NotFound is a missing key. Callers reading posting lists or shard
	// sets treat NotFound as empty rather than propagating it.
	NotFound
	// InvalidRequest is a malformed query: unknown attribute, empty
	// mailbox, bad cursor.
	InvalidRequest
	// MergeFailure means the merge operator rejected an operand; reads of
	// the same key should surface CorruptIndex afterwards.
	MergeFailure
	// CorruptIndex is surfaced to search callers when a posting list under
	// a key touched by MergeFailure is read back.
	CorruptIndex
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "io_error"
	case CorruptFormat:
		return "corrupt_format"
	case NotFound:
		return "not_found"
	case InvalidRequest:
		return "invalid_request"
	case MergeFailure:
		return "merge_failure"
	case CorruptIndex:
		return "corrupt_index"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every core package. Key is
// the offending key when one is known; it is empty otherwise.
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: key=%q: %v", e.Kind, e.Key, e.Err)
		}
		return fmt.Sprintf("%s: key=%q", e.Kind, e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Newf builds an Error with a formatted message and no wrapped cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap decorates err with a Kind and, optionally, the offending key.
func Wrap(kind Kind, key string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Key: key, Err: err}
}

// Is reports whether the first *Error found in err's chain has the given
// Kind. An *Error nested inside that one is not examined.
func Is(err error, kind Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}
