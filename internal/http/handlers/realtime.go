package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/loregraph/internal/http/response"
	"github.com/yungbote/loregraph/internal/narrative/events"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

const (
	defaultKeepAlive = 25 * time.Second
	streamBuffer     = 32
)

// RealtimeHandler streams a session's write events as server-sent events.
type RealtimeHandler struct {
	events    events.Subscriber
	log       *logger.Logger
	keepAlive time.Duration
}

// NewRealtimeHandler accepts a nil subscriber; the stream then answers 503.
func NewRealtimeHandler(sub events.Subscriber, log *logger.Logger, keepAlive time.Duration) *RealtimeHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RealtimeHandler{events: sub, log: log.With("component", "RealtimeHandler"), keepAlive: keepAlive}
}

// GET /api/sessions/:session_id/events
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.events == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "events_disabled", errors.New("event bus not configured"))
		return
	}
	sessionID := strings.TrimSpace(c.Param("session_id"))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	ch := make(chan events.Event, streamBuffer)
	err := h.events.Subscribe(ctx, func(ev events.Event) {
		if ev.SessionID != sessionID {
			return
		}
		select {
		case ch <- ev:
		default:
			h.log.Warn("event stream full, dropping event", "session_id", sessionID, "type", ev.Type)
		}
	})
	if err != nil {
		response.RespondAPIError(c, nerrors.Store("subscribe", err))
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			c.SSEvent(string(ev.Type), ev)
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			c.Writer.Flush()
		}
	}
}
