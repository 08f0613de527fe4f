// Package journal keeps an append-only record of acknowledged narrative writes.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/loregraph/internal/domain/narrative"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Entry struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string         `gorm:"column:session_id;not null;index:idx_journal_session_at,priority:1" json:"session_id"`
	Op        string         `gorm:"column:op;not null" json:"op"`
	Kind      narrative.Kind `gorm:"column:kind;not null" json:"kind"`
	EntityID  string         `gorm:"column:entity_id;not null" json:"entity_id"`
	Ack       string         `gorm:"column:ack;not null" json:"ack"`
	Details   datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	At        time.Time      `gorm:"column:at;not null;index:idx_journal_session_at,priority:2" json:"at"`
}

func (Entry) TableName() string { return "narrative_journal" }

type Journal interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, sessionID string, limit int) ([]Entry, error)
}

// DetailsJSON encodes v for Entry.Details. A nil v yields nil.
func DetailsJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

var _ Journal = (*GormJournal)(nil)

type GormJournal struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, log *logger.Logger) (*GormJournal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: db required")
	}
	if log == nil {
		return nil, fmt.Errorf("journal: logger required")
	}
	return &GormJournal{db: db, log: log.With("repo", "NarrativeJournal")}, nil
}

func (j *GormJournal) Append(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.SessionID) == "" {
		return fmt.Errorf("journal: session id required")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := j.db.WithContext(ctx).Create(&e).Error; err != nil {
		return mapError("journal.append", err)
	}
	return nil
}

// List returns the newest entries of a session first.
func (j *GormJournal) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	var out []Entry
	err := j.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Order("at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, mapError("journal.list", err)
	}
	return out, nil
}

// Nop is used when no journal database is configured.
type Nop struct{}

func (Nop) Append(context.Context, Entry) error { return nil }

func (Nop) List(context.Context, string, int) ([]Entry, error) { return []Entry{}, nil }

var _ Journal = Nop{}
