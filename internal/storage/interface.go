package storage

import (
	"context"
	"errors"

	"github.com/nhanzalone1/echo-app-sub000/internal"
)

var ErrNotFound = errors.New("storage: not found")

// ErrUnscopedFilter rejects bulk mission writes that name no user.
var ErrUnscopedFilter = errors.New("storage: mission filter has no user id")

type UserRepository interface {
	GetUserByToken(ctx context.Context, token string) (*internal.User, error)
	SaveUser(ctx context.Context, user *internal.User) error
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*internal.Profile, error)
	GetProfileByInviteCode(ctx context.Context, code string) (*internal.Profile, error)
	SaveProfile(ctx context.Context, profile *internal.Profile) error
}

type GoalRepository interface {
	CreateGoal(ctx context.Context, goal *internal.Goal) error
	ListGoals(ctx context.Context, userID string) ([]internal.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error
}

type MissionRepository interface {
	CreateMission(ctx context.Context, mission *internal.Mission) error
	GetMission(ctx context.Context, userID, missionID string) (*internal.Mission, error)
	UpdateMission(ctx context.Context, mission *internal.Mission) error
	DeleteMission(ctx context.Context, userID, missionID string) error
	// ListMissions returns every mission of the user, newest first.
	ListMissions(ctx context.Context, userID string) ([]internal.Mission, error)
	// DeleteMissions removes every mission matching the filter and reports how many.
	DeleteMissions(ctx context.Context, filter internal.MissionFilter) (int, error)
	// DeactivateMissions sets is_active=false on every match and reports how many.
	DeactivateMissions(ctx context.Context, filter internal.MissionFilter) (int, error)
}

type ThoughtRepository interface {
	CreateThought(ctx context.Context, thought *internal.Thought) error
	ListThoughts(ctx context.Context, userID string) ([]internal.Thought, error)
}

// Store bundles every repository a backend provides.
type Store interface {
	UserRepository
	ProfileRepository
	GoalRepository
	MissionRepository
	ThoughtRepository
	Close() error
}
