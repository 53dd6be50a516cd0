// Package provider holds the failure taxonomy shared by every external
// adapter, plus the Result type the fan-out collects.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a provider failure.
type Kind int

const (
	// KindUnavailable: missing credentials or configuration. The provider is skipped.
	KindUnavailable Kind = iota
	// KindTimeout: the provider exceeded its deadline.
	KindTimeout
	// KindFailed: HTTP, auth or decode failure.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

var (
	ErrUnavailable = errors.New("provider unavailable")
	ErrTimeout     = errors.New("provider timeout")
	ErrFailed      = errors.New("provider error")
	// ErrRefused marks generated text that matched a refusal pattern.
	ErrRefused = errors.New("generation refused")
)

// Error is a classified failure from a named provider.
type Error struct {
	Provider string
	Kind     Kind
	Status   int // HTTP status when known
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrFailed:
		return e.Kind == KindFailed
	}
	return false
}

// Unavailable builds a KindUnavailable error.
func Unavailable(name, reason string) error {
	return &Error{Provider: name, Kind: KindUnavailable, Err: errors.New(reason)}
}

// Failed builds a KindFailed error with an optional HTTP status.
func Failed(name string, status int, err error) error {
	return &Error{Provider: name, Kind: KindFailed, Status: status, Err: err}
}

// Classify wraps err as a provider Error. Deadline expiry becomes KindTimeout,
// an existing *Error is returned as is.
func Classify(name string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: name, Kind: KindTimeout, Err: err}
	}
	return &Error{Provider: name, Kind: KindFailed, Err: err}
}

// Result carries a provider's value or its classified error.
type Result[T any] struct {
	Provider string
	Value    T
	Err      error
}

// OrEmpty applies the degrade-to-empty policy: on error the zero value.
func (r Result[T]) OrEmpty() T {
	if r.Err != nil {
		var zero T
		return zero
	}
	return r.Value
}
