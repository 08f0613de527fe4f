package events

import (
	"context"
	"time"

	"github.com/yungbote/loregraph/internal/domain/narrative"
)

type Type string

const (
	WorldSaved    Type = "world.saved"
	SceneSaved    Type = "scene.saved"
	ChoicesSaved  Type = "choices.saved"
	PregameLinked Type = "pregame.linked"
	ChoiceLinked  Type = "choice.linked"
)

// Event announces an acknowledged write.
type Event struct {
	Type      Type           `json:"type"`
	SessionID string         `json:"session_id"`
	Kind      narrative.Kind `json:"kind"`
	EntityID  string         `json:"entity_id"`
	At        time.Time      `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Subscriber delivers events to onEvent until ctx is done. Subscribe returns once
// the subscription is live.
type Subscriber interface {
	Subscribe(ctx context.Context, onEvent func(Event)) error
}
