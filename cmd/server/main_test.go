package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/config"
	"github.com/nhanzalone1/echo-app-sub000/internal/mode"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer MOCK-TOKEN" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Unauthorized"}}`))
			return
		}
		assert.Equal(t, "/api/mode", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"user_id":"u1","mode":"morning","protocol_armed":true,"morning_start_time":"06:00","night_start_time":"21:00"}}`))
	}))
	defer srv.Close()

	snap, err := fetchStatus(context.Background(), srv.Client(), srv.URL+"/", "MOCK-TOKEN")
	require.NoError(t, err)
	assert.Equal(t, mode.Morning, snap.Mode)
	assert.True(t, snap.ProtocolArmed)

	_, err = fetchStatus(context.Background(), srv.Client(), srv.URL, "wrong")
	assert.ErrorContains(t, err, "Unauthorized")
}

func TestRenderStatus(t *testing.T) {
	at := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
	out := renderStatus(mode.Snapshot{
		Mode:             mode.Night,
		MorningStartTime: "06:00",
		NightStartTime:   "21:00",
		DevOverride:      true,
		LastArchivedAt:   &at,
		LastArchiveError: "boom",
	})
	assert.Contains(t, out, "NIGHT")
	assert.Contains(t, out, "06:00 - 21:00")
	assert.Contains(t, out, "forced")
	assert.Contains(t, out, "boom")

	out = renderStatus(mode.Snapshot{Mode: mode.Morning, ContractSigned: true})
	assert.Contains(t, out, "MORNING")
	assert.NotContains(t, out, "override")
}

func TestOpenStoreSeedsDemoUser(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DBType: "sqlite", SQLitePath: dir + "/echo.db"}
	ctx := context.Background()

	store, err := openStore(ctx, cfg, internal.NopLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, seedDemoUser(ctx, store, "MOCK-TOKEN"))
	require.NoError(t, seedDemoUser(ctx, store, "MOCK-TOKEN"))
	u, err := store.GetUserByToken(ctx, "MOCK-TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = store.GetUserByToken(ctx, "other")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
