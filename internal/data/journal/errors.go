package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

// ErrDuplicate reports an entry id that is already journaled.
var ErrDuplicate = errors.New("journal: duplicate entry")

// mapError classifies database failures. Connectivity, deadlines and transient
// Postgres conditions become StoreUnavailable; the rest keep their cause.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nerrors.Store(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "23505":
			return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err) // unique_violation
		case code == "40001", code == "40P01", code == "55P03":
			return nerrors.Store(op, err) // serialization/deadlock/lock_not_available
		case code == "53300", code == "57P01", code == "57P03":
			return nerrors.Store(op, err) // too_many_connections/admin_shutdown/cannot_connect_now
		case strings.HasPrefix(code, "08"):
			return nerrors.Store(op, err) // connection exceptions
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return nerrors.Store(op, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"):
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "broken pipe"):
		return nerrors.Store(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
