// Package continuity holds the current-world and current-scene pointers of a
// narrative session. All reads and writes of the two slots go through one mutex.
package continuity

import (
	"context"
	"strings"
	"sync"
	"time"

	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

type Snapshot struct {
	SessionID string    `json:"session_id"`
	WorldID   string    `json:"world_id,omitempty"`
	SceneID   string    `json:"scene_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Checkpointer persists snapshots so a session can be resumed by a new process.
type Checkpointer interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, sessionID string) (Snapshot, bool, error)
}

type Tracker struct {
	sessionID  string
	checkpoint Checkpointer
	log        *logger.Logger

	mu        sync.RWMutex
	worldID   string
	sceneID   string
	updatedAt time.Time
	seq       uint64

	// persistMu orders checkpoint writes; a snapshot older than the last one
	// handed to Save is dropped.
	persistMu sync.Mutex
	persisted uint64
}

// New returns a tracker with both slots unset. checkpoint and log may be nil.
func New(sessionID string, checkpoint Checkpointer, log *logger.Logger) *Tracker {
	t := &Tracker{sessionID: strings.TrimSpace(sessionID), checkpoint: checkpoint}
	if log != nil {
		t.log = log.With("component", "ContinuityTracker", "session_id", t.sessionID)
	}
	return t
}

func (t *Tracker) SessionID() string { return t.sessionID }

// World returns the current world id or ErrNoActiveWorld.
func (t *Tracker) World() (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.worldID == "" {
		return "", nerrors.ErrNoActiveWorld
	}
	return t.worldID, nil
}

// Scene returns the current scene id or ErrNoActiveScene.
func (t *Tracker) Scene() (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.sceneID == "" {
		return "", nerrors.ErrNoActiveScene
	}
	return t.sceneID, nil
}

// Position returns both pointers under one lock acquisition.
func (t *Tracker) Position() (worldID, sceneID string, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.worldID == "" {
		return "", "", nerrors.ErrNoActiveWorld
	}
	if t.sceneID == "" {
		return t.worldID, "", nerrors.ErrNoActiveScene
	}
	return t.worldID, t.sceneID, nil
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// SetWorld moves the world pointer. The scene pointer is left as is.
func (t *Tracker) SetWorld(ctx context.Context, worldID string) {
	t.mu.Lock()
	t.worldID = worldID
	t.updatedAt = time.Now().UTC()
	t.seq++
	snap, seq := t.snapshotLocked(), t.seq
	t.mu.Unlock()
	t.persist(ctx, snap, seq)
}

func (t *Tracker) SetScene(ctx context.Context, sceneID string) {
	t.mu.Lock()
	t.sceneID = sceneID
	t.updatedAt = time.Now().UTC()
	t.seq++
	snap, seq := t.snapshotLocked(), t.seq
	t.mu.Unlock()
	t.persist(ctx, snap, seq)
}

// Restore loads the last checkpoint, if any, into the tracker.
func (t *Tracker) Restore(ctx context.Context) (bool, error) {
	if t.checkpoint == nil {
		return false, nil
	}
	snap, ok, err := t.checkpoint.Load(ctx, t.sessionID)
	if err != nil || !ok {
		return false, err
	}
	t.mu.Lock()
	t.worldID = snap.WorldID
	t.sceneID = snap.SceneID
	t.updatedAt = snap.UpdatedAt
	t.mu.Unlock()
	return true, nil
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID: t.sessionID,
		WorldID:   t.worldID,
		SceneID:   t.sceneID,
		UpdatedAt: t.updatedAt,
	}
}

func (t *Tracker) persist(ctx context.Context, snap Snapshot, seq uint64) {
	if t.checkpoint == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	if seq <= t.persisted {
		return
	}
	t.persisted = seq
	if err := t.checkpoint.Save(ctx, snap); err != nil && t.log != nil {
		t.log.Warn("continuity checkpoint failed (continuing)", "error", err)
	}
}
