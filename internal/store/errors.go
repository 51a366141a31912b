package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a store failure.
type Kind string

const (
	// KindTransport means the request never completed.
	KindTransport Kind = "transport"
	// KindHTTP means the store answered with a non-2xx status.
	KindHTTP Kind = "http"
	// KindNotFound means a single resource does not exist.
	KindNotFound Kind = "not_found"
	// KindDecode means the response body was not the expected JSON.
	KindDecode Kind = "decode"
)

// Sentinels for errors.Is.
var (
	ErrTransport = errors.New("store: transport error")
	ErrHTTP      = errors.New("store: http error")
	ErrNotFound  = errors.New("store: not found")
	ErrDecode    = errors.New("store: decode error")
)

// Error is returned by every Client operation that fails.
type Error struct {
	Kind   Kind
	Op     string // e.g. "GET /events/3"
	Status int    // HTTP status, zero for transport failures
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP, KindNotFound:
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrHTTP:
		return e.Kind == KindHTTP
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// IsNotFound reports whether err is a NotFound store failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// StatusOf returns the HTTP status carried by a store failure, or zero.
func StatusOf(err error) int {
	var se *Error
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
