package apierr

import (
	"fmt"
	"net/http"

	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From classifies a narrative error into a status and code. An *Error already in
// the chain wins.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if nerrors.As(err, &ae) && ae != nil {
		return ae
	}
	code := nerrors.Code(err)
	return &Error{Status: statusFor(code), Code: code, Err: err}
}

func statusFor(code string) int {
	switch code {
	case "malformed_payload", "invalid_shape", "empty_input":
		return http.StatusBadRequest
	case "schema_violation":
		return http.StatusUnprocessableEntity
	case "no_active_world", "no_active_scene":
		return http.StatusConflict
	case "endpoint_missing":
		return http.StatusNotFound
	case "store_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
