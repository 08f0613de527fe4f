// Package store is the narrative graph store: it normalizes generator payloads,
// validates them, assigns namespaced ids and merges the result into the graph,
// moving the session's continuity pointers as writes succeed.
package store

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/loregraph/internal/data/graph"
	"github.com/yungbote/loregraph/internal/data/journal"
	"github.com/yungbote/loregraph/internal/domain/narrative"
	"github.com/yungbote/loregraph/internal/narrative/continuity"
	"github.com/yungbote/loregraph/internal/narrative/events"
	"github.com/yungbote/loregraph/internal/narrative/identity"
	"github.com/yungbote/loregraph/internal/observability"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

const (
	DefaultWriteTimeout = 10 * time.Second

	// recordTimeout bounds the journal append and event publish after a write.
	recordTimeout = 3 * time.Second
)

// Ack acknowledges a committed write. Message always names the kind and its final id.
type Ack struct {
	Kind    narrative.Kind `json:"kind"`
	ID      string         `json:"id,omitempty"`
	IDs     []string       `json:"ids,omitempty"`
	Message string         `json:"ack"`
}

func (a Ack) String() string { return a.Message }

type Store struct {
	backend      graph.Backend
	namer        *identity.Namer
	journal      journal.Journal
	events       events.Publisher
	log          *logger.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

type Option func(*Store)

func WithNamer(n *identity.Namer) Option {
	return func(s *Store) {
		if n != nil {
			s.namer = n
		}
	}
}

func WithJournal(j journal.Journal) Option {
	return func(s *Store) {
		if j != nil {
			s.journal = j
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.events = p
		}
	}
}

// WithWriteTimeout bounds every store round-trip. Expiry surfaces as StoreUnavailable.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(backend graph.Backend, log *logger.Logger, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("store: graph backend required")
	}
	if log == nil {
		return nil, fmt.Errorf("store: logger required")
	}
	s := &Store{
		backend:      backend,
		namer:        identity.New(),
		journal:      journal.Nop{},
		events:       events.Nop{},
		log:          log.With("component", "NarrativeStore"),
		writeTimeout: DefaultWriteTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) roundTrip(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.writeTimeout)
}

func (s *Store) startSpan(ctx context.Context, op string, tr *continuity.Tracker) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return observability.StartSpan(ctx, "narrative."+op, attribute.String("session.id", sessionOf(tr)))
}

// record journals and announces an acknowledged write. Failures are logged only;
// the graph write has already committed.
func (s *Store) record(ctx context.Context, tr *continuity.Tracker, op string, evType events.Type, ack Ack) {
	if ctx == nil {
		ctx = context.Background()
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	at := s.now()
	session := sessionOf(tr)
	entry := journal.Entry{
		SessionID: session,
		Op:        op,
		Kind:      ack.Kind,
		EntityID:  ack.ID,
		Ack:       ack.Message,
		At:        at,
	}
	if len(ack.IDs) > 0 {
		if details, err := journal.DetailsJSON(map[string]any{"ids": ack.IDs}); err == nil {
			entry.Details = details
		}
	}
	if session != "" {
		if err := s.journal.Append(rctx, entry); err != nil {
			s.log.Warn("journal append failed (continuing)", "op", op, "session_id", session, "error", err)
		}
	}
	ev := events.Event{Type: evType, SessionID: session, Kind: ack.Kind, EntityID: ack.ID, At: at}
	if err := s.events.Publish(rctx, ev); err != nil {
		s.log.Warn("event publish failed (continuing)", "op", op, "session_id", session, "error", err)
	}
}

func sessionOf(tr *continuity.Tracker) string {
	if tr == nil {
		return ""
	}
	return tr.SessionID()
}
