package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nhanzalone1/echo-app-sub000/internal"
)

const postgresSchema = `
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
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS goals (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS missions (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	goal_id      TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL,
	completed    BOOLEAN NOT NULL DEFAULT false,
	crushed      BOOLEAN NOT NULL DEFAULT false,
	crush_note   TEXT NOT NULL DEFAULT '',
	is_active    BOOLEAN NOT NULL DEFAULT true,
	created_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS missions_user_idx ON missions (user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS thoughts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	goal_id    TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	media_url  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);`

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(ctx context.Context, dsn string, logger internal.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// Migrate creates the schema if it does not exist.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		p.logger.Errorf("failed to migrate postgres schema: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// missionWhere renders a filter into a WHERE clause with $n placeholders.
func missionWhere(f internal.MissionFilter, placeholder func(int) string) (string, []any) {
	var conds []string
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, "user_id = "+placeholder(len(args)))
	}
	if f.Crushed != nil {
		args = append(args, *f.Crushed)
		conds = append(conds, "crushed = "+placeholder(len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, "is_active = "+placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// --- UserRepository ---
func (p *PostgresStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, token, name FROM users WHERE token = $1`, token)
	var u internal.User
	if err := row.Scan(&u.ID, &u.Token, &u.Name); err != nil {
		p.logger.Debugf("user not found: %v", err)
		return nil, notFound(err)
	}
	return &u, nil
}

func (p *PostgresStorage) SaveUser(ctx context.Context, user *internal.User) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO users (id, token, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET token = EXCLUDED.token, name = EXCLUDED.name`,
		user.ID, user.Token, user.Name)
	if err != nil {
		p.logger.Errorf("failed to save user: %v", err)
	}
	return err
}

// --- ProfileRepository ---
const profileColumns = `user_id, name, morning_start_time, night_start_time, ally_id, invite_code, updated_at`

func scanProfile(row pgx.Row) (*internal.Profile, error) {
	var pr internal.Profile
	if err := row.Scan(&pr.UserID, &pr.Name, &pr.MorningStartTime, &pr.NightStartTime, &pr.AllyID, &pr.InviteCode, &pr.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &pr, nil
}

func (p *PostgresStorage) GetProfile(ctx context.Context, userID string) (*internal.Profile, error) {
	return scanProfile(p.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
}

func (p *PostgresStorage) GetProfileByInviteCode(ctx context.Context, code string) (*internal.Profile, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	return scanProfile(p.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE invite_code = $1`, code))
}

func (p *PostgresStorage) SaveProfile(ctx context.Context, pr *internal.Profile) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name,
			morning_start_time = EXCLUDED.morning_start_time, night_start_time = EXCLUDED.night_start_time,
			ally_id = EXCLUDED.ally_id, invite_code = EXCLUDED.invite_code, updated_at = EXCLUDED.updated_at`,
		pr.UserID, pr.Name, pr.MorningStartTime, pr.NightStartTime, pr.AllyID, pr.InviteCode, pr.UpdatedAt)
	if err != nil {
		p.logger.Errorf("failed to save profile: %v", err)
	}
	return err
}

// --- GoalRepository ---
func (p *PostgresStorage) CreateGoal(ctx context.Context, g *internal.Goal) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO goals (id, user_id, title, description, color, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.UserID, g.Title, g.Description, g.Color, g.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert goal: %v", err)
	}
	return err
}

func (p *PostgresStorage) ListGoals(ctx context.Context, userID string) ([]internal.Goal, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, user_id, title, description, color, created_at FROM goals WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		p.logger.Errorf("failed to query goals: %v", err)
		return nil, err
	}
	defer rows.Close()

	goals := []internal.Goal{}
	for rows.Next() {
		var g internal.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Color, &g.CreatedAt); err != nil {
			p.logger.Errorf("failed to scan goal: %v", err)
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (p *PostgresStorage) DeleteGoal(ctx context.Context, userID, goalID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		p.logger.Errorf("failed to delete goal: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- MissionRepository ---
const missionColumns = `id, user_id, goal_id, title, completed, crushed, crush_note, is_active, created_at, completed_at`

func scanMission(row pgx.Row) (*internal.Mission, error) {
	var m internal.Mission
	if err := row.Scan(&m.ID, &m.UserID, &m.GoalID, &m.Title, &m.Completed, &m.Crushed, &m.CrushNote, &m.IsActive, &m.CreatedAt, &m.CompletedAt); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (p *PostgresStorage) CreateMission(ctx context.Context, m *internal.Mission) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO missions (`+missionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.UserID, m.GoalID, m.Title, m.Completed, m.Crushed, m.CrushNote, m.IsActive, m.CreatedAt, m.CompletedAt)
	if err != nil {
		p.logger.Errorf("failed to insert mission: %v", err)
	}
	return err
}

func (p *PostgresStorage) GetMission(ctx context.Context, userID, missionID string) (*internal.Mission, error) {
	return scanMission(p.pool.QueryRow(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = $1 AND user_id = $2`, missionID, userID))
}

func (p *PostgresStorage) UpdateMission(ctx context.Context, m *internal.Mission) error {
	tag, err := p.pool.Exec(ctx, `UPDATE missions SET goal_id = $3, title = $4, completed = $5, crushed = $6, crush_note = $7, is_active = $8, completed_at = $9
		WHERE id = $1 AND user_id = $2`,
		m.ID, m.UserID, m.GoalID, m.Title, m.Completed, m.Crushed, m.CrushNote, m.IsActive, m.CompletedAt)
	if err != nil {
		p.logger.Errorf("failed to update mission: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) DeleteMission(ctx context.Context, userID, missionID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM missions WHERE id = $1 AND user_id = $2`, missionID, userID)
	if err != nil {
		p.logger.Errorf("failed to delete mission: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) ListMissions(ctx context.Context, userID string) ([]internal.Mission, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+missionColumns+` FROM missions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		p.logger.Errorf("failed to query missions: %v", err)
		return nil, err
	}
	defer rows.Close()

	missions := []internal.Mission{}
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			p.logger.Errorf("failed to scan mission: %v", err)
			return nil, err
		}
		missions = append(missions, *m)
	}
	return missions, rows.Err()
}

func (p *PostgresStorage) DeleteMissions(ctx context.Context, filter internal.MissionFilter) (int, error) {
	if filter.UserID == "" {
		return 0, ErrUnscopedFilter
	}
	where, args := missionWhere(filter, dollar)
	tag, err := p.pool.Exec(ctx, `DELETE FROM missions`+where, args...)
	if err != nil {
		p.logger.Errorf("failed to delete missions: %v", err)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStorage) DeactivateMissions(ctx context.Context, filter internal.MissionFilter) (int, error) {
	if filter.UserID == "" {
		return 0, ErrUnscopedFilter
	}
	where, args := missionWhere(filter, dollar)
	if where == "" {
		where = " WHERE is_active"
	} else {
		where += " AND is_active"
	}
	tag, err := p.pool.Exec(ctx, `UPDATE missions SET is_active = false`+where, args...)
	if err != nil {
		p.logger.Errorf("failed to deactivate missions: %v", err)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// --- ThoughtRepository ---
func (p *PostgresStorage) CreateThought(ctx context.Context, t *internal.Thought) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO thoughts (id, user_id, goal_id, content, media_url, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.GoalID, t.Content, t.MediaURL, t.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert thought: %v", err)
	}
	return err
}

func (p *PostgresStorage) ListThoughts(ctx context.Context, userID string) ([]internal.Thought, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, user_id, goal_id, content, media_url, created_at FROM thoughts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		p.logger.Errorf("failed to query thoughts: %v", err)
		return nil, err
	}
	defer rows.Close()

	thoughts := []internal.Thought{}
	for rows.Next() {
		var t internal.Thought
		if err := rows.Scan(&t.ID, &t.UserID, &t.GoalID, &t.Content, &t.MediaURL, &t.CreatedAt); err != nil {
			p.logger.Errorf("failed to scan thought: %v", err)
			return nil, err
		}
		thoughts = append(thoughts, t)
	}
	return thoughts, rows.Err()
}

// --- Compile-time assertions ---
var _ Store = (*PostgresStorage)(nil)
