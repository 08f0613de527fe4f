// Package identity derives the namespaced identifiers used as graph merge keys.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	Separator = "."

	defaultWorldAttempts = 5
)

// ExistsFunc reports whether a World with the given id is already stored.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

type Namer struct {
	newID         func() string
	worldAttempts int
}

type Option func(*Namer)

// WithGenerator replaces uuid.NewString, mainly for deterministic tests.
func WithGenerator(gen func() string) Option {
	return func(n *Namer) {
		if gen != nil {
			n.newID = gen
		}
	}
}

func WithWorldAttempts(attempts int) Option {
	return func(n *Namer) {
		if attempts > 0 {
			n.worldAttempts = attempts
		}
	}
}

func New(opts ...Option) *Namer {
	n := &Namer{newID: uuid.NewString, worldAttempts: defaultWorldAttempts}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// World always returns a fresh identifier; caller-supplied ids are never used.
// A generated id that collides with a stored World is discarded and regenerated.
func (n *Namer) World(ctx context.Context, exists ExistsFunc) (string, error) {
	for i := 0; i < n.worldAttempts; i++ {
		id := n.newID()
		if exists == nil {
			return id, nil
		}
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("identity: no free world id after %d attempts", n.worldAttempts)
}

// Scene namespaces a scene under its world: world_id.local.
func (n *Namer) Scene(worldID string, candidate any) string {
	return n.scoped(candidate, worldID)
}

// Choice namespaces a choice under its world and offering scene: world_id.scene_id.local.
func (n *Namer) Choice(worldID, sceneID string, candidate any) string {
	return n.scoped(candidate, worldID, sceneID)
}

// NPC namespaces an NPC under its world. Scene-introduced NPCs share this scope,
// so equal local ids at world and scene level address the same node.
func (n *Namer) NPC(worldID string, candidate any) string {
	return n.scoped(candidate, worldID)
}

func (n *Namer) Faction(worldID string, candidate any) string {
	return n.scoped(candidate, worldID)
}

// Local returns the caller-supplied id when it is a non-blank string, else a fresh one.
func (n *Namer) Local(candidate any) string {
	if s, ok := candidate.(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return n.newID()
}

func (n *Namer) scoped(candidate any, parents ...string) string {
	prefix := Prefix(parents...)
	local := n.Local(candidate)
	if strings.HasPrefix(local, prefix) && len(local) > len(prefix) {
		return local
	}
	return prefix + local
}

// Prefix joins parent ids into a namespace prefix ending in the separator.
func Prefix(parents ...string) string {
	var b strings.Builder
	for _, p := range parents {
		b.WriteString(p)
		b.WriteString(Separator)
	}
	return b.String()
}
