package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhanzalone1/echo-app-sub000/internal"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	bs := []backend{
		{"file", func(t *testing.T) Store {
			s, err := NewFileStorage(t.TempDir(), internal.NopLogger())
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "test.db"), internal.NopLogger())
			require.NoError(t, err)
			return s
		}},
	}
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		bs = append(bs, backend{"postgres", func(t *testing.T) Store {
			ctx := context.Background()
			s, err := NewPostgresStorage(ctx, dsn, internal.NopLogger())
			require.NoError(t, err)
			require.NoError(t, s.Migrate(ctx))
			_, err = s.pool.Exec(ctx, `TRUNCATE users, profiles, goals, missions, thoughts`)
			require.NoError(t, err)
			return s
		}})
	}
	return bs
}

var base = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func mission(id, user string, completed, crushed, active bool, offset int) *internal.Mission {
	return &internal.Mission{
		ID:        id,
		UserID:    user,
		Title:     "mission " + id,
		Completed: completed,
		Crushed:   crushed,
		IsActive:  active,
		CreatedAt: base.Add(time.Duration(offset) * time.Minute),
	}
}

func ids(ms []internal.Mission) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestArchivePredicates(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			defer s.Close()

			require.NoError(t, s.CreateMission(ctx, mission("A", "u1", false, false, true, 1)))
			require.NoError(t, s.CreateMission(ctx, mission("B", "u1", true, false, true, 2)))
			require.NoError(t, s.CreateMission(ctx, mission("C", "u1", true, true, true, 3)))
			require.NoError(t, s.CreateMission(ctx, mission("D", "u2", false, false, true, 4)))

			n, err := s.DeleteMissions(ctx, internal.MissionFilter{UserID: "u1", Crushed: internal.Bool(false), IsActive: internal.Bool(true)})
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = s.DeactivateMissions(ctx, internal.MissionFilter{UserID: "u1", Crushed: internal.Bool(true)})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := s.ListMissions(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "C", got[0].ID)
			assert.False(t, got[0].IsActive)
			assert.True(t, got[0].Crushed)

			other, err := s.ListMissions(ctx, "u2")
			require.NoError(t, err)
			assert.Equal(t, []string{"D"}, ids(other))

			_, err = s.DeleteMissions(ctx, internal.MissionFilter{Crushed: internal.Bool(false)})
			assert.ErrorIs(t, err, ErrUnscopedFilter)
			_, err = s.DeactivateMissions(ctx, internal.MissionFilter{Crushed: internal.Bool(true)})
			assert.ErrorIs(t, err, ErrUnscopedFilter)
			other, err = s.ListMissions(ctx, "u2")
			require.NoError(t, err)
			assert.Equal(t, []string{"D"}, ids(other))

			// Second pass is a no-op.
			n, err = s.DeleteMissions(ctx, internal.MissionFilter{UserID: "u1", Crushed: internal.Bool(false), IsActive: internal.Bool(true)})
			require.NoError(t, err)
			assert.Zero(t, n)
			n, err = s.DeactivateMissions(ctx, internal.MissionFilter{UserID: "u1", Crushed: internal.Bool(true)})
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestMissionCRUD(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			defer s.Close()

			m := mission("m1", "u1", false, false, true, 0)
			require.NoError(t, s.CreateMission(ctx, m))
			require.NoError(t, s.CreateMission(ctx, mission("m2", "u1", false, false, true, 5)))

			list, err := s.ListMissions(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, []string{"m2", "m1"}, ids(list), "newest first")

			done := base.Add(time.Hour)
			m.Completed, m.Crushed, m.CrushNote, m.CompletedAt = true, true, "ran 10k", &done
			require.NoError(t, s.UpdateMission(ctx, m))

			got, err := s.GetMission(ctx, "u1", "m1")
			require.NoError(t, err)
			if diff := cmp.Diff(m, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
				t.Errorf("mission mismatch (-want +got):\n%s", diff)
			}

			_, err = s.GetMission(ctx, "u2", "m1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.DeleteMission(ctx, "u1", "m1"))
			assert.ErrorIs(t, s.DeleteMission(ctx, "u1", "m1"), ErrNotFound)
			assert.ErrorIs(t, s.UpdateMission(ctx, m), ErrNotFound)
		})
	}
}

func TestProfilesGoalsThoughtsUsers(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			defer s.Close()

			_, err := s.GetProfile(ctx, "u1")
			assert.ErrorIs(t, err, ErrNotFound)

			p := &internal.Profile{UserID: "u1", Name: "Ada", MorningStartTime: "05:30", NightStartTime: "22:00", InviteCode: "ABC123", UpdatedAt: base}
			require.NoError(t, s.SaveProfile(ctx, p))
			p.AllyID = "u2"
			require.NoError(t, s.SaveProfile(ctx, p))

			got, err := s.GetProfile(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "05:30", got.MorningStartTime)
			assert.Equal(t, "u2", got.AllyID)

			byCode, err := s.GetProfileByInviteCode(ctx, "ABC123")
			require.NoError(t, err)
			assert.Equal(t, "u1", byCode.UserID)
			_, err = s.GetProfileByInviteCode(ctx, "")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.CreateGoal(ctx, &internal.Goal{ID: "g1", UserID: "u1", Title: "Health", CreatedAt: base}))
			require.NoError(t, s.CreateGoal(ctx, &internal.Goal{ID: "g2", UserID: "u1", Title: "Craft", CreatedAt: base.Add(time.Minute)}))
			goals, err := s.ListGoals(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, goals, 2)
			assert.Equal(t, "Health", goals[0].Title)
			require.NoError(t, s.DeleteGoal(ctx, "u1", "g1"))
			assert.ErrorIs(t, s.DeleteGoal(ctx, "u1", "g1"), ErrNotFound)

			require.NoError(t, s.CreateThought(ctx, &internal.Thought{ID: "t1", UserID: "u1", GoalID: "g2", Content: "ship it", CreatedAt: base}))
			thoughts, err := s.ListThoughts(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, thoughts, 1)
			assert.Equal(t, "ship it", thoughts[0].Content)

			require.NoError(t, s.SaveUser(ctx, &internal.User{ID: "u1", Token: "tok", Name: "Ada"}))
			u, err := s.GetUserByToken(ctx, "tok")
			require.NoError(t, err)
			assert.Equal(t, "u1", u.ID)
			_, err = s.GetUserByToken(ctx, "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileStoragePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStorage(dir, internal.NopLogger())
	require.NoError(t, err)
	require.NoError(t, s.CreateMission(ctx, mission("m1", "u1", false, false, true, 0)))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	info, err := os.Stat(filepath.Join(dir, missionsFileName))
	require.NoError(t, err)
	assert.True(t, info.Size() > 0)

	s, err = NewFileStorage(dir, internal.NopLogger())
	require.NoError(t, err)
	defer s.Close()
	list, err := s.ListMissions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(list))
}

func TestFileStateStore(t *testing.T) {
	s, err := NewFileStateStore(t.TempDir())
	require.NoError(t, err)

	st, err := s.Load("u1")
	require.NoError(t, err)
	assert.Empty(t, st)

	require.NoError(t, s.Save("u1", map[string]string{"mode": "morning", "protocolArmed": "true"}))
	st, err = s.Load("u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mode": "morning", "protocolArmed": "true"}, st)

	assert.Error(t, s.Save("../escape", map[string]string{}))
}
