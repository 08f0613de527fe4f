package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload is returned when textual input is not parseable JSON.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrInvalidShape is returned when a normalized payload has the wrong structural type.
	ErrInvalidShape = errors.New("invalid shape")
	// ErrEmptyInput is returned when normalization yields nothing to write.
	ErrEmptyInput = errors.New("empty or invalid input")
	// ErrSchemaViolation is the sentinel behind every *SchemaViolation.
	ErrSchemaViolation = errors.New("validation failed")
	// ErrNoActiveWorld is returned when an operation needs a current world and none is set.
	ErrNoActiveWorld = errors.New("no active world")
	// ErrNoActiveScene is returned when an operation needs a current scene and none is set.
	ErrNoActiveScene = errors.New("no active scene")
	// ErrStoreUnavailable covers connectivity failures, failed round-trips and timeouts.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEndpointMissing is returned when an edge write finds one of its endpoint nodes absent.
	ErrEndpointMissing = errors.New("edge endpoint missing")
)

type ShapeError struct {
	Kind     string
	Expected string
	Actual   string
}

func (e *ShapeError) Error() string {
	if e == nil {
		return ErrInvalidShape.Error()
	}
	return fmt.Sprintf("%s: %s: expected %s, got %s", ErrInvalidShape.Error(), e.Kind, e.Expected, e.Actual)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidShape }

// SchemaViolation reports the first constraint breach found for an entity.
// Index is the element position when a list was validated, -1 otherwise.
type SchemaViolation struct {
	Kind    string
	Index   int
	Path    string
	Message string
}

func (e *SchemaViolation) Error() string {
	if e == nil {
		return ErrSchemaViolation.Error()
	}
	if e.Index >= 0 {
		return fmt.Sprintf("%s JSON validation failed at item %d %s: %s", e.Kind, e.Index, e.Path, e.Message)
	}
	return fmt.Sprintf("%s JSON validation failed at %s: %s", e.Kind, e.Path, e.Message)
}

func (e *SchemaViolation) Unwrap() error { return ErrSchemaViolation }

// StoreError wraps a backend failure. errors.Is(err, ErrStoreUnavailable) holds,
// and the backend cause stays reachable through errors.As.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ErrStoreUnavailable.Error()
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrStoreUnavailable.Error(), e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable.Error(), e.Op, e.Cause)
}

func (e *StoreError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return []error{ErrStoreUnavailable}
	}
	return []error{ErrStoreUnavailable, e.Cause}
}

// Malformed tags a parse failure.
func Malformed(kind string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, kind, cause)
}

// Empty tags an input that normalized to nothing.
func Empty(kind string) error {
	return fmt.Errorf("%w: %s", ErrEmptyInput, kind)
}

// Store classifies a backend error. Errors that already belong to the taxonomy pass
// through untouched; everything else, deadlines included, becomes a *StoreError.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrEndpointMissing) {
		return err
	}
	return &StoreError{Op: op, Cause: err}
}

// IsTimeout reports whether err came from an expired or cancelled context.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// Code maps an error onto a stable identifier for logs and API envelopes.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrInvalidShape):
		return "invalid_shape"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	case errors.Is(err, ErrNoActiveWorld):
		return "no_active_world"
	case errors.Is(err, ErrNoActiveScene):
		return "no_active_scene"
	case errors.Is(err, ErrEndpointMissing):
		return "endpoint_missing"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
