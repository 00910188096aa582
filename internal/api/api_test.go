package api

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/auth"
	"github.com/nhanzalone1/echo-app-sub000/internal/config"
	"github.com/nhanzalone1/echo-app-sub000/internal/mode"
	"github.com/nhanzalone1/echo-app-sub000/internal/session"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Set(h, m int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = time.Date(2026, 3, 14, h, m, 0, 0, time.UTC)
}

type envelope struct {
	Data  json.RawMessage    `json:"data"`
	Meta  map[string]any     `json:"meta"`
	Error *internal.AppError `json:"error"`
}

type testServer struct {
	router *gin.Engine
	store  *storage.FileStorage
	clock  *fakeClock
}

func setupRouter(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	logger := internal.NopLogger()

	store, err := storage.NewFileStorage(dir, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()
	require.NoError(t, store.SaveUser(ctx, &internal.User{ID: "u1", Token: "MOCK-TOKEN", Name: "Test User"}))
	require.NoError(t, store.SaveUser(ctx, &internal.User{ID: "u2", Token: "ALLY-TOKEN", Name: "Ally User"}))

	state, err := storage.NewFileStateStore(dir + "/state")
	require.NoError(t, err)

	clock := &fakeClock{}
	clock.Set(7, 0)
	sessions := session.NewManager(session.Options{
		Profiles:     store,
		Missions:     store,
		State:        state,
		Clock:        clock,
		Logger:       logger,
		TickInterval: time.Hour,
	})
	t.Cleanup(func() { _ = sessions.Shutdown(context.Background()) })

	cfg := &config.Config{Env: "development"}
	provider := auth.NewLocalAuthProvider(store, logger)
	r := NewRouter(NewApp(logger, store, sessions), auth.AuthMiddleware(provider, cfg))
	return &testServer{router: r, store: store, clock: clock}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthzAndAuth(t *testing.T) {
	s := setupRouter(t)

	w, _ := s.do(t, "GET", "/healthz", "", "")
	assert.Equal(t, 200, w.Code)

	w, _ = s.do(t, "GET", "/api/mode", "", "")
	assert.Equal(t, 401, w.Code)

	w, _ = s.do(t, "GET", "/api/mode", "WRONG", "")
	assert.Equal(t, 401, w.Code)

	w, _ = s.do(t, "GET", "/api/mode", "MOCK-TOKEN", "")
	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPostGoal_ValidAndInvalid(t *testing.T) {
	s := setupRouter(t)

	w, env := s.do(t, "POST", "/api/goals", "MOCK-TOKEN", `{"title":"Ship the app","color":"#ff8800"}`)
	require.Equal(t, 201, w.Code)
	goal := decode[internal.Goal](t, env.Data)
	assert.Equal(t, "u1", goal.UserID)

	w, _ = s.do(t, "POST", "/api/goals", "MOCK-TOKEN", `{"description":"no title"}`)
	assert.Equal(t, 400, w.Code)

	w, _ = s.do(t, "POST", "/api/goals", "MOCK-TOKEN", `{"title":"x","color":"orange"}`)
	assert.Equal(t, 400, w.Code)

	w, env = s.do(t, "GET", "/api/goals", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	assert.EqualValues(t, 1, env.Meta["count"])

	w, _ = s.do(t, "DELETE", "/api/goals/"+goal.ID, "MOCK-TOKEN", "")
	assert.Equal(t, 200, w.Code)
	w, _ = s.do(t, "DELETE", "/api/goals/"+goal.ID, "MOCK-TOKEN", "")
	assert.Equal(t, 404, w.Code)
}

func TestMissionLifecycleAndClearBoard(t *testing.T) {
	s := setupRouter(t)

	ids := make([]string, 0, 3)
	for _, title := range []string{"run", "write", "read"} {
		w, env := s.do(t, "POST", "/api/missions", "MOCK-TOKEN", `{"title":"`+title+`"}`)
		require.Equal(t, 201, w.Code)
		ids = append(ids, decode[internal.Mission](t, env.Data).ID)
	}

	w, _ := s.do(t, "PATCH", "/api/missions/"+ids[0]+"/crush", "MOCK-TOKEN", `{}`)
	assert.Equal(t, 400, w.Code, "crush requires a note")

	w, env := s.do(t, "PATCH", "/api/missions/"+ids[0]+"/crush", "MOCK-TOKEN", `{"note":"5k done"}`)
	require.Equal(t, 200, w.Code)
	crushed := decode[internal.Mission](t, env.Data)
	assert.True(t, crushed.Crushed)
	assert.True(t, crushed.Completed)

	w, _ = s.do(t, "PATCH", "/api/missions/"+ids[1]+"/complete", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	w, env = s.do(t, "PATCH", "/api/missions/"+ids[1]+"/uncomplete", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	assert.False(t, decode[internal.Mission](t, env.Data).Completed)

	w, _ = s.do(t, "PATCH", "/api/missions/missing/complete", "MOCK-TOKEN", "")
	assert.Equal(t, 404, w.Code)

	w, env = s.do(t, "POST", "/api/missions/clear", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	assert.EqualValues(t, 2, env.Meta["deleted"])
	assert.EqualValues(t, 1, env.Meta["deactivated"])

	w, env = s.do(t, "GET", "/api/missions", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	assert.Empty(t, decode[[]internal.Mission](t, env.Data))

	w, env = s.do(t, "GET", "/api/missions?all=true", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	history := decode[[]internal.Mission](t, env.Data)
	require.Len(t, history, 1)
	assert.Equal(t, ids[0], history[0].ID)
	assert.False(t, history[0].IsActive)
}

func TestModeEndpoints(t *testing.T) {
	s := setupRouter(t)

	w, env := s.do(t, "GET", "/api/mode", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	snap := decode[mode.Snapshot](t, env.Data)
	assert.Equal(t, mode.Night, snap.Mode)
	assert.Equal(t, "06:00", snap.MorningStartTime)

	_, env = s.do(t, "POST", "/api/mode/contract", "MOCK-TOKEN", "")
	assert.True(t, decode[mode.Snapshot](t, env.Data).ContractSigned)

	_, env = s.do(t, "POST", "/api/mode/arm", "MOCK-TOKEN", "")
	snap = decode[mode.Snapshot](t, env.Data)
	assert.Equal(t, mode.Morning, snap.Mode)
	assert.True(t, snap.ProtocolArmed)

	w, _ = s.do(t, "POST", "/api/mode/force", "MOCK-TOKEN", `{"mode":"noon"}`)
	assert.Equal(t, 400, w.Code)

	_, env = s.do(t, "POST", "/api/mode/force", "MOCK-TOKEN", `{"mode":"night"}`)
	snap = decode[mode.Snapshot](t, env.Data)
	assert.Equal(t, mode.Night, snap.Mode)
	assert.True(t, snap.DevOverride)

	_, env = s.do(t, "POST", "/api/mode/override/clear", "MOCK-TOKEN", "")
	snap = decode[mode.Snapshot](t, env.Data)
	assert.False(t, snap.DevOverride)
	assert.Equal(t, mode.Morning, snap.Mode)
}

func TestTapTriggerEndpoint(t *testing.T) {
	s := setupRouter(t)

	for i := 0; i < 4; i++ {
		_, env := s.do(t, "POST", "/api/mode/tap", "MOCK-TOKEN", "")
		assert.Equal(t, false, env.Meta["fired"])
	}
	_, env := s.do(t, "POST", "/api/mode/tap", "MOCK-TOKEN", "")
	assert.Equal(t, true, env.Meta["fired"])
	snap := decode[mode.Snapshot](t, env.Data)
	assert.Equal(t, mode.Morning, snap.Mode)
	assert.True(t, snap.DevOverride)
}

func TestScheduleEndpoints(t *testing.T) {
	s := setupRouter(t)

	w, env := s.do(t, "GET", "/api/profile/schedule", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"morning_start_time":"06:00","night_start_time":"21:00"}`, string(env.Data))

	w, _ = s.do(t, "PUT", "/api/profile/schedule", "MOCK-TOKEN", `{"morning_start_time":"22:00","night_start_time":"05:00"}`)
	assert.Equal(t, 400, w.Code)
	w, _ = s.do(t, "PUT", "/api/profile/schedule", "MOCK-TOKEN", `{"morning_start_time":"7am","night_start_time":"21:00"}`)
	assert.Equal(t, 400, w.Code)

	s.do(t, "POST", "/api/mode/arm", "MOCK-TOKEN", "")
	w, env = s.do(t, "PUT", "/api/profile/schedule", "MOCK-TOKEN", `{"morning_start_time":"07:30","night_start_time":"21:00"}`)
	require.Equal(t, 200, w.Code)
	snap := decode[mode.Snapshot](t, env.Data)
	assert.Equal(t, "07:30", snap.MorningStartTime)
	assert.Equal(t, mode.Night, snap.Mode, "07:00 is now before the morning window")

	p, err := s.store.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "07:30", p.MorningStartTime)
}

func TestAllyFlow(t *testing.T) {
	s := setupRouter(t)

	w, _ := s.do(t, "GET", "/api/ally/missions", "MOCK-TOKEN", "")
	assert.Equal(t, 404, w.Code)

	w, env := s.do(t, "POST", "/api/ally/invite", "MOCK-TOKEN", "")
	require.Equal(t, 200, w.Code)
	code := decode[map[string]string](t, env.Data)["invite_code"]
	require.Len(t, code, 8)

	w, _ = s.do(t, "POST", "/api/ally/accept", "MOCK-TOKEN", `{"code":"`+code+`"}`)
	assert.Equal(t, 409, w.Code)

	w, env = s.do(t, "POST", "/api/ally/accept", "ALLY-TOKEN", `{"code":"`+code+`"}`)
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"ally_id":"u1"}`, string(env.Data))

	s.do(t, "POST", "/api/missions", "MOCK-TOKEN", `{"title":"visible to ally"}`)
	w, env = s.do(t, "GET", "/api/ally/missions", "ALLY-TOKEN", "")
	require.Equal(t, 200, w.Code)
	missions := decode[[]internal.Mission](t, env.Data)
	require.Len(t, missions, 1)
	assert.Equal(t, "visible to ally", missions[0].Title)
}

func TestThoughtsAndLogout(t *testing.T) {
	s := setupRouter(t)

	w, _ := s.do(t, "POST", "/api/thoughts", "MOCK-TOKEN", `{"content":"a calm morning","media_url":"not a url"}`)
	assert.Equal(t, 400, w.Code)
	w, _ = s.do(t, "POST", "/api/thoughts", "MOCK-TOKEN", `{"content":"a calm morning"}`)
	assert.Equal(t, 201, w.Code)
	_, env := s.do(t, "GET", "/api/thoughts", "MOCK-TOKEN", "")
	assert.Len(t, decode[[]internal.Thought](t, env.Data), 1)

	_, env = s.do(t, "POST", "/api/session/logout", "MOCK-TOKEN", "")
	assert.Equal(t, false, env.Meta["ended"], "no session started yet")

	s.do(t, "GET", "/api/mode", "MOCK-TOKEN", "")
	_, env = s.do(t, "POST", "/api/session/logout", "MOCK-TOKEN", "")
	assert.Equal(t, true, env.Meta["ended"])
}
