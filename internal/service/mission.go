package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

type MissionRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	GoalID string `json:"goal_id,omitempty"`
}

type CrushRequest struct {
	Note string `json:"note" validate:"required,max=1000"`
}

func CreateMission(ctx context.Context, repo storage.MissionRepository, user *internal.User, req *MissionRequest) (*internal.Mission, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	m := &internal.Mission{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		GoalID:    req.GoalID,
		Title:     req.Title,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := repo.CreateMission(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ActiveMissions returns the user's missions still on the board.
func ActiveMissions(ctx context.Context, repo storage.MissionRepository, userID string) ([]internal.Mission, error) {
	all, err := repo.ListMissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := []internal.Mission{}
	for _, m := range all {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active, nil
}

// ErrMissionArchived is returned when changing a mission that left the board.
var ErrMissionArchived = errors.New("mission is archived")

// editableMission loads a mission that is still on the board.
func editableMission(ctx context.Context, repo storage.MissionRepository, userID, id string) (*internal.Mission, error) {
	m, err := repo.GetMission(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, invalid(ErrMissionArchived)
	}
	return m, nil
}

func CompleteMission(ctx context.Context, repo storage.MissionRepository, user *internal.User, id string) (*internal.Mission, error) {
	m, err := editableMission(ctx, repo, user.ID, id)
	if err != nil {
		return nil, err
	}
	if !m.Completed {
		now := time.Now()
		m.Completed = true
		m.CompletedAt = &now
	}
	if err := repo.UpdateMission(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CrushMission records exceptional effort. Crushing always completes.
func CrushMission(ctx context.Context, repo storage.MissionRepository, user *internal.User, id string, req *CrushRequest) (*internal.Mission, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	m, err := editableMission(ctx, repo, user.ID, id)
	if err != nil {
		return nil, err
	}
	if !m.Completed {
		now := time.Now()
		m.Completed = true
		m.CompletedAt = &now
	}
	m.Crushed = true
	m.CrushNote = req.Note
	if err := repo.UpdateMission(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UncompleteMission reopens a mission; a reopened mission is no longer crushed.
func UncompleteMission(ctx context.Context, repo storage.MissionRepository, user *internal.User, id string) (*internal.Mission, error) {
	m, err := editableMission(ctx, repo, user.ID, id)
	if err != nil {
		return nil, err
	}
	m.Completed = false
	m.CompletedAt = nil
	m.Crushed = false
	m.CrushNote = ""
	if err := repo.UpdateMission(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
