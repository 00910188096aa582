package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nhanzalone1/echo-app-sub000/internal"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	token TEXT UNIQUE NOT NULL,
	name  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS profiles (
	user_id            TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	morning_start_time TEXT NOT NULL DEFAULT '06:00',
	night_start_time   TEXT NOT NULL DEFAULT '21:00',
	ally_id            TEXT NOT NULL DEFAULT '',
	invite_code        TEXT NOT NULL DEFAULT '',
	updated_at         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS goals (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS missions (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	goal_id      TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL,
	completed    INTEGER NOT NULL DEFAULT 0,
	crushed      INTEGER NOT NULL DEFAULT 0,
	crush_note   TEXT NOT NULL DEFAULT '',
	is_active    INTEGER NOT NULL DEFAULT 1,
	created_at   TEXT NOT NULL,
	completed_at TEXT
);
CREATE INDEX IF NOT EXISTS missions_user_idx ON missions (user_id, created_at);
CREATE TABLE IF NOT EXISTS thoughts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	goal_id    TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	media_url  TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);`

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStorage is the embedded single-file backend.
type SQLiteStorage struct {
	db     *sql.DB
	logger internal.Logger
}

func NewSQLiteStorage(ctx context.Context, path string, logger internal.Logger) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		logger.Errorf("failed to open sqlite: %v", err)
		return nil, err
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}
	return &SQLiteStorage{db: db, logger: logger}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// sortableTime is fixed width so TEXT ordering matches chronological order.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sortableTime)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func sqlNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func question(int) string { return "?" }

// --- UserRepository ---
func (s *SQLiteStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	var u internal.User
	err := s.db.QueryRowContext(ctx, `SELECT id, token, name FROM users WHERE token = ?`, token).Scan(&u.ID, &u.Token, &u.Name)
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &u, nil
}

func (s *SQLiteStorage) SaveUser(ctx context.Context, user *internal.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, token, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, name = excluded.name`,
		user.ID, user.Token, user.Name)
	if err != nil {
		s.logger.Errorf("failed to save user: %v", err)
	}
	return err
}

// --- ProfileRepository ---
func (s *SQLiteStorage) scanProfile(row *sql.Row) (*internal.Profile, error) {
	var p internal.Profile
	var updated string
	if err := row.Scan(&p.UserID, &p.Name, &p.MorningStartTime, &p.NightStartTime, &p.AllyID, &p.InviteCode, &updated); err != nil {
		return nil, sqlNotFound(err)
	}
	t, err := parseTime(updated)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = t
	return &p, nil
}

func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*internal.Profile, error) {
	return s.scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID))
}

func (s *SQLiteStorage) GetProfileByInviteCode(ctx context.Context, code string) (*internal.Profile, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	return s.scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE invite_code = ?`, code))
}

func (s *SQLiteStorage) SaveProfile(ctx context.Context, p *internal.Profile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET name = excluded.name,
			morning_start_time = excluded.morning_start_time, night_start_time = excluded.night_start_time,
			ally_id = excluded.ally_id, invite_code = excluded.invite_code, updated_at = excluded.updated_at`,
		p.UserID, p.Name, p.MorningStartTime, p.NightStartTime, p.AllyID, p.InviteCode, formatTime(p.UpdatedAt))
	if err != nil {
		s.logger.Errorf("failed to save profile: %v", err)
	}
	return err
}

// --- GoalRepository ---
func (s *SQLiteStorage) CreateGoal(ctx context.Context, g *internal.Goal) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO goals (id, user_id, title, description, color, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, g.Description, g.Color, formatTime(g.CreatedAt))
	if err != nil {
		s.logger.Errorf("failed to insert goal: %v", err)
	}
	return err
}

func (s *SQLiteStorage) ListGoals(ctx context.Context, userID string) ([]internal.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, title, description, color, created_at FROM goals WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []internal.Goal{}
	for rows.Next() {
		var g internal.Goal
		var created string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Color, &created); err != nil {
			return nil, err
		}
		if g.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *SQLiteStorage) DeleteGoal(ctx context.Context, userID, goalID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ? AND user_id = ?`, goalID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- MissionRepository ---
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMission(row rowScanner) (*internal.Mission, error) {
	var m internal.Mission
	var created string
	var completed sql.NullString
	if err := row.Scan(&m.ID, &m.UserID, &m.GoalID, &m.Title, &m.Completed, &m.Crushed, &m.CrushNote, &m.IsActive, &created, &completed); err != nil {
		return nil, sqlNotFound(err)
	}
	var err error
	if m.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		m.CompletedAt = &t
	}
	return &m, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func (s *SQLiteStorage) CreateMission(ctx context.Context, m *internal.Mission) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO missions (`+missionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.GoalID, m.Title, m.Completed, m.Crushed, m.CrushNote, m.IsActive, formatTime(m.CreatedAt), nullableTime(m.CompletedAt))
	if err != nil {
		s.logger.Errorf("failed to insert mission: %v", err)
	}
	return err
}

func (s *SQLiteStorage) GetMission(ctx context.Context, userID, missionID string) (*internal.Mission, error) {
	return scanSQLiteMission(s.db.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = ? AND user_id = ?`, missionID, userID))
}

func (s *SQLiteStorage) UpdateMission(ctx context.Context, m *internal.Mission) error {
	res, err := s.db.ExecContext(ctx, `UPDATE missions SET goal_id = ?, title = ?, completed = ?, crushed = ?, crush_note = ?, is_active = ?, completed_at = ?
		WHERE id = ? AND user_id = ?`,
		m.GoalID, m.Title, m.Completed, m.Crushed, m.CrushNote, m.IsActive, nullableTime(m.CompletedAt), m.ID, m.UserID)
	if err != nil {
		s.logger.Errorf("failed to update mission: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteMission(ctx context.Context, userID, missionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM missions WHERE id = ? AND user_id = ?`, missionID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) ListMissions(ctx context.Context, userID string) ([]internal.Mission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	missions := []internal.Mission{}
	for rows.Next() {
		m, err := scanSQLiteMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, *m)
	}
	return missions, rows.Err()
}

func (s *SQLiteStorage) DeleteMissions(ctx context.Context, filter internal.MissionFilter) (int, error) {
	if filter.UserID == "" {
		return 0, ErrUnscopedFilter
	}
	where, args := missionWhere(filter, question)
	res, err := s.db.ExecContext(ctx, `DELETE FROM missions`+where, args...)
	if err != nil {
		s.logger.Errorf("failed to delete missions: %v", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStorage) DeactivateMissions(ctx context.Context, filter internal.MissionFilter) (int, error) {
	if filter.UserID == "" {
		return 0, ErrUnscopedFilter
	}
	where, args := missionWhere(filter, question)
	if where == "" {
		where = " WHERE is_active = 1"
	} else {
		where += " AND is_active = 1"
	}
	res, err := s.db.ExecContext(ctx, `UPDATE missions SET is_active = 0`+where, args...)
	if err != nil {
		s.logger.Errorf("failed to deactivate missions: %v", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// --- ThoughtRepository ---
func (s *SQLiteStorage) CreateThought(ctx context.Context, t *internal.Thought) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO thoughts (id, user_id, goal_id, content, media_url, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.GoalID, t.Content, t.MediaURL, formatTime(t.CreatedAt))
	if err != nil {
		s.logger.Errorf("failed to insert thought: %v", err)
	}
	return err
}

func (s *SQLiteStorage) ListThoughts(ctx context.Context, userID string) ([]internal.Thought, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, goal_id, content, media_url, created_at FROM thoughts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	thoughts := []internal.Thought{}
	for rows.Next() {
		var t internal.Thought
		var created string
		if err := rows.Scan(&t.ID, &t.UserID, &t.GoalID, &t.Content, &t.MediaURL, &created); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		thoughts = append(thoughts, t)
	}
	return thoughts, rows.Err()
}

// --- Compile-time assertions ---
var _ Store = (*SQLiteStorage)(nil)
