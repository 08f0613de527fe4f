package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/loregraph/internal/data/graph"
	httpH "github.com/yungbote/loregraph/internal/http/handlers"
	"github.com/yungbote/loregraph/internal/http/response"
	"github.com/yungbote/loregraph/internal/narrative/continuity"
	"github.com/yungbote/loregraph/internal/narrative/events"
	"github.com/yungbote/loregraph/internal/narrative/store"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

const worldOutput = "Here is your world:\n```json\n" +
	`{"world_json": {"name": "Ember Reach", "theme": "volcanic frontier", "terrain_desc": "ash plains", "starting_region": "Cinderfall", "lore": "The mountain woke."}}` +
	"\n```\nEnjoy!"

const marketScene = `{"scene": {"scene_id": "market", "title": "The Ashfall Market", "description": "Stalls under a grey sky.", "narration": "Ash drifts over the awnings."}}`

const harborScene = `{"scene_id": "harbor", "title": "Obsidian Harbor", "description": "Black glass piers.", "narration": "Gulls circle the cooling lava."}`

const marketChoices = `[
  {"choice_id": "haggle", "title": "Haggle", "description": "Argue the price", "narration": "You lean in.", "consequence": "The broker smirks."},
  {"choice_id": "leave", "title": "Leave", "description": "Walk to the harbor", "narration": "You turn away.", "consequence": "The market forgets you."}
]`

type ackBody struct {
	Kind string   `json:"kind"`
	ID   string   `json:"id"`
	IDs  []string `json:"ids"`
	Ack  string   `json:"ack"`
}

func newTestRouter(t *testing.T, sub events.Subscriber) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	s, err := store.New(graph.NewMemoryBackend(), log)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	sessions := continuity.NewRegistry(nil, log)
	return NewRouter(RouterConfig{
		Log:              log,
		MaxRequestBytes:  4 << 10,
		NarrativeHandler: httpH.NewNarrativeHandler(s, sessions, nil),
		RealtimeHandler:  httpH.NewRealtimeHandler(sub, log, time.Hour),
		HealthHandler:    httpH.NewHealthHandler(nil),
	})
}

func do(r *gin.Engine, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) ackBody {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var a ackBody
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return a
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestHealthcheck(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := do(r, http.MethodGet, "/healthcheck", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: got=%d %q", rec.Code, rec.Body.String())
	}
	if rec := do(r, http.MethodGet, "/readycheck", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("readycheck: want=%d got=%d", http.StatusOK, rec.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	r := newTestRouter(t, nil)
	base := "/api/sessions/table-7"

	world := decodeAck(t, do(r, http.MethodPost, base+"/world", "text/plain; charset=utf-8", worldOutput))
	if world.Kind != "World" || world.ID == "" || !strings.Contains(world.Ack, "Ember Reach") {
		t.Fatalf("world ack: got=%+v", world)
	}

	scene := decodeAck(t, do(r, http.MethodPost, base+"/scene", "application/json", marketScene))
	if scene.ID != world.ID+".market" {
		t.Fatalf("scene id: want=%q got=%q", world.ID+".market", scene.ID)
	}
	decodeAck(t, do(r, http.MethodPost, base+"/pregame", "", ""))

	choices := decodeAck(t, do(r, http.MethodPost, base+"/choices", "application/json", marketChoices))
	if len(choices.IDs) != 2 || choices.IDs[0] != world.ID+"."+scene.ID+".haggle" {
		t.Fatalf("choice ids: got=%v", choices.IDs)
	}

	rec := do(r, http.MethodGet, base+"/choices", "", "")
	var listed struct {
		SceneID string `json:"scene_id"`
		Choices []struct {
			ChoiceID string `json:"choice_id"`
			Title    string `json:"title"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("list choices: status=%d err=%v", rec.Code, err)
	}
	if listed.SceneID != scene.ID || len(listed.Choices) != 2 {
		t.Fatalf("listed choices: got=%+v", listed)
	}

	harbor := decodeAck(t, do(r, http.MethodPost, base+"/scene", "application/json", harborScene))
	link := decodeAck(t, do(r, http.MethodPost, base+"/choices/"+choices.IDs[1]+"/leads-to", "application/json",
		`{"scene_id": "`+harbor.ID+`"}`))
	if link.Kind != "Choice" || link.ID != choices.IDs[1] {
		t.Fatalf("link ack: got=%+v", link)
	}

	rec = do(r, http.MethodGet, base+"/state", "", "")
	var state struct {
		WorldID string `json:"world_id"`
		SceneID string `json:"scene_id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &state)
	if state.WorldID != world.ID || state.SceneID != harbor.ID {
		t.Fatalf("state: want=%s/%s got=%+v", world.ID, harbor.ID, state)
	}

	rec = do(r, http.MethodGet, base+"/journal?limit=5", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"entries":[]`) {
		t.Fatalf("journal without backing store: got=%d %s", rec.Code, rec.Body.String())
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	r := newTestRouter(t, nil)
	decodeAck(t, do(r, http.MethodPost, "/api/sessions/a/world", "text/plain", worldOutput))

	rec := do(r, http.MethodPost, "/api/sessions/b/scene", "application/json", marketScene)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "no_active_world" {
		t.Fatalf("other session: want=409/no_active_world got=%d %s", rec.Code, rec.Body.String())
	}
}

func TestChoicesFromGeneratorProse(t *testing.T) {
	r := newTestRouter(t, nil)
	base := "/api/sessions/prose"
	world := decodeAck(t, do(r, http.MethodPost, base+"/world", "text/plain", worldOutput))
	scene := decodeAck(t, do(r, http.MethodPost, base+"/scene", "application/json", marketScene))

	body := "Here are the choices:\n" +
		`[{"choice_id": "haggle", "title": "Haggle", "description": "Argue the price", "narration": "You lean in.", "consequence": "The broker smirks."}]` +
		"\nGood luck."
	choices := decodeAck(t, do(r, http.MethodPost, base+"/choices", "text/plain", body))
	if len(choices.IDs) != 1 || choices.IDs[0] != world.ID+"."+scene.ID+".haggle" {
		t.Fatalf("choice ids: got=%v", choices.IDs)
	}
}

func TestErrorStatuses(t *testing.T) {
	r := newTestRouter(t, nil)
	base := "/api/sessions/errs"

	cases := []struct {
		name, method, path, contentType, body string
		status                                int
		code                                  string
	}{
		{"scene before world", http.MethodPost, "/scene", "application/json", marketScene, http.StatusConflict, "no_active_world"},
		{"choices before scene", http.MethodGet, "/choices", "", "", http.StatusConflict, "no_active_scene"},
		{"malformed json", http.MethodPost, "/world", "application/json", `{"name": `, http.StatusBadRequest, "malformed_payload"},
		{"generator text without json", http.MethodPost, "/world", "text/plain", "no json here", http.StatusBadRequest, "malformed_payload"},
		{"empty body", http.MethodPost, "/world", "application/json", "", http.StatusBadRequest, "empty_input"},
		{"wrong shape", http.MethodPost, "/world", "application/json", `["not", "an", "object"]`, http.StatusBadRequest, "invalid_shape"},
		{"schema", http.MethodPost, "/world", "application/json", `{"name": "Nameless"}`, http.StatusUnprocessableEntity, "schema_violation"},
		{"unknown choice", http.MethodPost, "/choices/missing/leads-to", "application/json", `{"scene_id": "nowhere"}`, http.StatusNotFound, "endpoint_missing"},
		{"bad limit", http.MethodGet, "/journal?limit=lots", "", "", http.StatusBadRequest, "invalid_limit"},
		{"too large", http.MethodPost, "/world", "application/json", `{"lore": "` + strings.Repeat("a", 5<<10) + `"}`, http.StatusRequestEntityTooLarge, "payload_too_large"},
	}
	for _, tc := range cases {
		rec := do(r, tc.method, base+tc.path, tc.contentType, tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: status want=%d got=%d body=%s", tc.name, tc.status, rec.Code, rec.Body.String())
		}
		if got := errorCode(t, rec); got != tc.code {
			t.Fatalf("%s: code want=%q got=%q", tc.name, tc.code, got)
		}
	}
}

type fakeSubscriber struct {
	mu     sync.Mutex
	ready  chan struct{}
	notify func(events.Event)
}

func (f *fakeSubscriber) Subscribe(_ context.Context, onEvent func(events.Event)) error {
	f.mu.Lock()
	f.notify = onEvent
	f.mu.Unlock()
	close(f.ready)
	return nil
}

func TestEventStreamFiltersBySession(t *testing.T) {
	sub := &fakeSubscriber{ready: make(chan struct{})}
	r := newTestRouter(t, sub)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/table-7/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	<-sub.ready
	sub.mu.Lock()
	notify := sub.notify
	sub.mu.Unlock()
	notify(events.Event{Type: events.SceneSaved, SessionID: "other", EntityID: "w.elsewhere"})
	notify(events.Event{Type: events.SceneSaved, SessionID: "table-7", EntityID: "w.market"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event:scene.saved") || !strings.Contains(body, "w.market") {
		t.Fatalf("stream: missing session event in %q", body)
	}
	if strings.Contains(body, "w.elsewhere") {
		t.Fatalf("stream: leaked another session's event in %q", body)
	}
}

func TestEventStreamDisabled(t *testing.T) {
	r := newTestRouter(t, nil)
	rec := do(r, http.MethodGet, "/api/sessions/table-7/events", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("events disabled: want=%d got=%d", http.StatusServiceUnavailable, rec.Code)
	}
}
