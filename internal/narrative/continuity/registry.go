package continuity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yungbote/loregraph/internal/platform/logger"
)

// Registry hands out one Tracker per session id.
type Registry struct {
	checkpoint Checkpointer
	log        *logger.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewRegistry(checkpoint Checkpointer, log *logger.Logger) *Registry {
	return &Registry{
		checkpoint: checkpoint,
		log:        log,
		trackers:   make(map[string]*Tracker),
	}
}

// Get returns the tracker for sessionID, creating it on first use and restoring
// its pointers from the checkpointer when one is configured.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Tracker, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("continuity: session id required")
	}

	r.mu.Lock()
	t, ok := r.trackers[sessionID]
	r.mu.Unlock()
	if ok {
		return t, nil
	}

	// Restore runs unlocked so a slow checkpoint store only delays this session.
	t = New(sessionID, r.checkpoint, r.log)
	restored, err := t.Restore(ctx)

	r.mu.Lock()
	if existing, ok := r.trackers[sessionID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.trackers[sessionID] = t
	r.mu.Unlock()

	if err != nil {
		if r.log != nil {
			r.log.Warn("continuity restore failed (starting fresh)", "session_id", sessionID, "error", err)
		}
	} else if restored && r.log != nil {
		snap := t.Snapshot()
		r.log.Info("continuity restored", "session_id", sessionID, "world_id", snap.WorldID, "scene_id", snap.SceneID)
	}
	return t, nil
}

// Drop forgets the in-process tracker. A checkpoint, if any, is kept.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, strings.TrimSpace(sessionID))
}
