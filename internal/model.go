package internal

import "time"

type User struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
}

// Profile carries the per-user schedule boundaries and the ally link.
type Profile struct {
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	MorningStartTime string    `json:"morning_start_time"` // HH:MM
	NightStartTime   string    `json:"night_start_time"`   // HH:MM
	AllyID           string    `json:"ally_id,omitempty"`
	InviteCode       string    `json:"invite_code,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Goal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Mission struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	GoalID      string     `json:"goal_id,omitempty"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	Crushed     bool       `json:"crushed"` // implies Completed
	CrushNote   string     `json:"crush_note,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Thought is a captured vision, optionally pointing at uploaded media.
type Thought struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	GoalID    string    `json:"goal_id,omitempty"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"media_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MissionFilter is an equality filter over missions. Nil fields match anything.
type MissionFilter struct {
	UserID   string
	Crushed  *bool
	IsActive *bool
}

func (f MissionFilter) Match(m *Mission) bool {
	if f.UserID != "" && m.UserID != f.UserID {
		return false
	}
	if f.Crushed != nil && m.Crushed != *f.Crushed {
		return false
	}
	if f.IsActive != nil && m.IsActive != *f.IsActive {
		return false
	}
	return true
}

func Bool(b bool) *bool { return &b }
