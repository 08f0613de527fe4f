package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/loregraph/internal/narrative/events"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

const defaultChannel = "loregraph.events"

var _ events.Publisher = (*EventBus)(nil)

type EventBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewEventBus(rdb goredis.UniversalClient, channel string, log *logger.Logger) (*EventBus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	l, err := componentLogger(log, "RedisEventBus")
	if err != nil {
		return nil, err
	}
	ch := strings.TrimSpace(channel)
	if ch == "" {
		ch = defaultChannel
	}
	return &EventBus{log: l, rdb: rdb, channel: ch}, nil
}

func (b *EventBus) Channel() string { return b.channel }

func (b *EventBus) Publish(ctx context.Context, ev events.Event) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Subscribe forwards decoded events to onEvent until ctx is done.
func (b *EventBus) Subscribe(ctx context.Context, onEvent func(events.Event)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev events.Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad redis event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}
