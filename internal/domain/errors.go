package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the stable identity of an error (spec.md §7); the
// localized message text is expected to vary, the Kind does not.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrIoOpen
	ErrIoRead
	ErrIoWrite
	ErrIoCreate
	ErrIoRename
	ErrIoDelete
	ErrZipOpen
	ErrZipEntryRead
	ErrStructureInvalid
	ErrCacheCorrupt
	ErrNsQueryFailed
	ErrCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrIoOpen:
		return "io-open"
	case ErrIoRead:
		return "io-read"
	case ErrIoWrite:
		return "io-write"
	case ErrIoCreate:
		return "io-create"
	case ErrIoRename:
		return "io-rename"
	case ErrIoDelete:
		return "io-delete"
	case ErrZipOpen:
		return "zip-open"
	case ErrZipEntryRead:
		return "zip-entry-read"
	case ErrStructureInvalid:
		return "structure-invalid"
	case ErrCacheCorrupt:
		return "cache-corrupt"
	case ErrNsQueryFailed:
		return "ns-query-failed"
	case ErrCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error carries a stable ErrorKind, an optional path/detail, and the
// underlying cause so callers can use errors.Is/errors.As while still
// printing a precise message (spec.md §7).
type Error struct {
	Kind   ErrorKind
	Path   string // primary path the error concerns, if any
	Path2  string // secondary path (e.g. rename target), if any
	Detail string // free-form detail (e.g. structure-invalid reason)
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	switch {
	case e.Path != "" && e.Path2 != "":
		msg = fmt.Sprintf("%s: %s -> %s", msg, e.Path, e.Path2)
	case e.Path != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	case e.Detail != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a sentinel for this error's Kind (an
// *Error with the same Kind and no Path or Detail), so callers can write
// errors.Is(err, &domain.Error{Kind: domain.ErrCacheCorrupt}).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.Path == "" && other.Detail == ""
}

// NewError builds an *Error of the given kind wrapping cause, with an
// optional path for context.
func NewError(kind ErrorKind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Cause: cause}
}

// NewStructureInvalid builds the StructureInvalid error for a mod
// directory that is neither folder-type nor zip-type, or a zip whose
// first-level entries are forbidden (spec.md §4.3/§7).
func NewStructureInvalid(path, detail string) *Error {
	return &Error{Kind: ErrStructureInvalid, Path: path, Detail: detail}
}

// IsCancelled reports whether err represents a cooperative cancellation.
func IsCancelled(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == ErrCancelled
	}
	return errors.Is(err, context.Canceled)
}

// Game-domain sentinels retained for CLI/service-layer lookups that are
// not part of a specific I/O path (e.g. "no such configured title").
var (
	ErrModNotFound   = errors.New("mod not found")
	ErrTitleNotFound = errors.New("title not found")
)
