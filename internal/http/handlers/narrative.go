package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/loregraph/internal/data/journal"
	"github.com/yungbote/loregraph/internal/domain/narrative"
	"github.com/yungbote/loregraph/internal/http/response"
	"github.com/yungbote/loregraph/internal/narrative/continuity"
	"github.com/yungbote/loregraph/internal/narrative/payload"
	"github.com/yungbote/loregraph/internal/narrative/store"
	"github.com/yungbote/loregraph/internal/platform/apierr"
	nerrors "github.com/yungbote/loregraph/internal/pkg/errors"
)

type NarrativeHandler struct {
	store    *store.Store
	sessions *continuity.Registry
	journal  journal.Journal
}

// NewNarrativeHandler serves the session-scoped story routes. j may be nil.
func NewNarrativeHandler(s *store.Store, sessions *continuity.Registry, j journal.Journal) *NarrativeHandler {
	if j == nil {
		j = journal.Nop{}
	}
	return &NarrativeHandler{store: s, sessions: sessions, journal: j}
}

type linkRequest struct {
	SceneID string `json:"scene_id"`
}

type stateResponse struct {
	SessionID string `json:"session_id"`
	WorldID   string `json:"world_id,omitempty"`
	SceneID   string `json:"scene_id,omitempty"`
}

// POST /api/sessions/:session_id/world
func (h *NarrativeHandler) SaveWorld(c *gin.Context) {
	h.write(c, narrative.KindWorld, h.store.SaveWorld)
}

// POST /api/sessions/:session_id/scene
func (h *NarrativeHandler) SaveScene(c *gin.Context) {
	h.write(c, narrative.KindScene, h.store.SaveScene)
}

// POST /api/sessions/:session_id/choices
func (h *NarrativeHandler) SaveChoices(c *gin.Context) {
	h.write(c, narrative.KindChoiceList, h.store.SaveChoices)
}

// POST /api/sessions/:session_id/pregame
func (h *NarrativeHandler) AttachPregame(c *gin.Context) {
	tr, ok := h.tracker(c)
	if !ok {
		return
	}
	ack, err := h.store.AttachPregame(c.Request.Context(), tr)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, ack)
}

// POST /api/sessions/:session_id/choices/:choice_id/leads-to
func (h *NarrativeHandler) LinkChoice(c *gin.Context) {
	tr, ok := h.tracker(c)
	if !ok {
		return
	}
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ack, err := h.store.LinkChoiceToScene(c.Request.Context(), tr, c.Param("choice_id"), req.SceneID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, ack)
}

// GET /api/sessions/:session_id/choices
func (h *NarrativeHandler) ListChoices(c *gin.Context) {
	tr, ok := h.tracker(c)
	if !ok {
		return
	}
	choices, err := h.store.ChoicesForCurrentScene(c.Request.Context(), tr)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if choices == nil {
		choices = []narrative.Choice{}
	}
	sceneID, _ := tr.Scene()
	response.RespondOK(c, gin.H{"scene_id": sceneID, "choices": choices})
}

// GET /api/sessions/:session_id/state
func (h *NarrativeHandler) GetState(c *gin.Context) {
	tr, ok := h.tracker(c)
	if !ok {
		return
	}
	snap := tr.Snapshot()
	response.RespondOK(c, stateResponse{SessionID: tr.SessionID(), WorldID: snap.WorldID, SceneID: snap.SceneID})
}

// GET /api/sessions/:session_id/journal?limit=N
func (h *NarrativeHandler) ListJournal(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a non-negative integer, got %q", raw))
			return
		}
		limit = n
	}
	entries, err := h.journal.List(c.Request.Context(), sessionID, limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": entries})
}

type writeFunc func(ctx context.Context, tr *continuity.Tracker, raw any) (store.Ack, error)

func (h *NarrativeHandler) write(c *gin.Context, kind narrative.Kind, fn writeFunc) {
	tr, ok := h.tracker(c)
	if !ok {
		return
	}
	raw, err := readPayload(c, kind)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	ack, err := fn(c.Request.Context(), tr, raw)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, ack)
}

func (h *NarrativeHandler) tracker(c *gin.Context) (*continuity.Tracker, bool) {
	tr, err := h.sessions.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session", err)
		return nil, false
	}
	return tr, true
}

// readPayload decodes the request body. text/plain bodies are treated as raw
// generator output; an empty body yields nil so the store reports empty input.
func readPayload(c *gin.Context, kind narrative.Kind) (any, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if nerrors.As(err, &tooLarge) {
			return nil, apierr.New(http.StatusRequestEntityTooLarge, "payload_too_large", err)
		}
		return nil, apierr.New(http.StatusBadRequest, "read_body_failed", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if c.ContentType() == "text/plain" {
		return payload.ExtractJSON(string(body))
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, nerrors.Malformed(kind.String(), err)
	}
	return v, nil
}
