package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

func TestFromMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{nerrors.Malformed("World", errors.New("eof")), http.StatusBadRequest, "malformed_payload"},
		{&nerrors.ShapeError{Kind: "Choice", Expected: "list", Actual: "string"}, http.StatusBadRequest, "invalid_shape"},
		{nerrors.Empty("Scene"), http.StatusBadRequest, "empty_input"},
		{&nerrors.SchemaViolation{Kind: "World", Index: -1, Path: "$", Message: "missing lore"}, http.StatusUnprocessableEntity, "schema_violation"},
		{nerrors.ErrNoActiveWorld, http.StatusConflict, "no_active_world"},
		{fmt.Errorf("choices: %w", nerrors.ErrNoActiveScene), http.StatusConflict, "no_active_scene"},
		{fmt.Errorf("link: %w", nerrors.ErrEndpointMissing), http.StatusNotFound, "endpoint_missing"},
		{nerrors.Store("apply", errors.New("dial tcp")), http.StatusServiceUnavailable, "store_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		got := From(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("%v: want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, got.Status, got.Code)
		}
	}
}

func TestFromKeepsExplicitError(t *testing.T) {
	inner := New(http.StatusRequestEntityTooLarge, "payload_too_large", errors.New("too big"))
	got := From(fmt.Errorf("read body: %w", inner))
	if got != inner {
		t.Fatalf("From: want the wrapped *Error back, got=%+v", got)
	}
	if From(nil) != nil {
		t.Fatalf("From(nil): want nil")
	}
}
