package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/loregraph/internal/narrative/continuity"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

const checkpointPrefix = "loregraph:session:"

var _ continuity.Checkpointer = (*Checkpoint)(nil)

// Checkpoint stores continuity snapshots as one Redis hash per session.
type Checkpoint struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	ttl time.Duration
}

// NewCheckpoint keeps snapshots for ttl after their last write; zero keeps them forever.
func NewCheckpoint(rdb goredis.UniversalClient, ttl time.Duration, log *logger.Logger) (*Checkpoint, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	l, err := componentLogger(log, "RedisCheckpoint")
	if err != nil {
		return nil, err
	}
	return &Checkpoint{log: l, rdb: rdb, ttl: ttl}, nil
}

func CheckpointKey(sessionID string) string { return checkpointPrefix + sessionID }

func (c *Checkpoint) Save(ctx context.Context, snap continuity.Snapshot) error {
	key := CheckpointKey(snap.SessionID)
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, key,
			"world_id", snap.WorldID,
			"scene_id", snap.SceneID,
			"updated_at", updated.UTC().Format(time.RFC3339Nano),
		)
		if c.ttl > 0 {
			p.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis checkpoint save: %w", err)
	}
	return nil
}

func (c *Checkpoint) Load(ctx context.Context, sessionID string) (continuity.Snapshot, bool, error) {
	vals, err := c.rdb.HGetAll(ctx, CheckpointKey(sessionID)).Result()
	if err != nil {
		return continuity.Snapshot{}, false, fmt.Errorf("redis checkpoint load: %w", err)
	}
	if len(vals) == 0 {
		return continuity.Snapshot{}, false, nil
	}
	snap := continuity.Snapshot{
		SessionID: sessionID,
		WorldID:   vals["world_id"],
		SceneID:   vals["scene_id"],
	}
	if ts := vals["updated_at"]; ts != "" {
		if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			snap.UpdatedAt = t
		} else {
			c.log.Warn("bad checkpoint timestamp", "session_id", sessionID, "error", perr)
		}
	}
	return snap, true, nil
}

// Delete removes a session checkpoint.
func (c *Checkpoint) Delete(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, CheckpointKey(sessionID)).Err()
}
