package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

// RefreshFunc receives the user's full mission list after an archive.
type RefreshFunc func(userID string, missions []internal.Mission)

// Archiver finalizes the day: unfinished and merely completed missions are
// removed, crushed missions are kept as inactive history.
type Archiver struct {
	Missions storage.MissionRepository
	Logger   internal.Logger
	Refresh  RefreshFunc
}

type ArchiveResult struct {
	Deleted     int                `json:"deleted"`
	Deactivated int                `json:"deactivated"`
	Missions    []internal.Mission `json:"missions"`
}

func (a *Archiver) Archive(ctx context.Context, userID string) error {
	_, err := a.Run(ctx, userID)
	return err
}

// Run performs the archive and returns what it did. Safe to repeat.
func (a *Archiver) Run(ctx context.Context, userID string) (*ArchiveResult, error) {
	if userID == "" {
		return nil, invalid(errors.New("archive: user id is required"))
	}
	deleted, err := a.Missions.DeleteMissions(ctx, internal.MissionFilter{
		UserID:   userID,
		Crushed:  internal.Bool(false),
		IsActive: internal.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: delete unfinished missions: %w", err)
	}

	deactivated, err := a.Missions.DeactivateMissions(ctx, internal.MissionFilter{
		UserID:  userID,
		Crushed: internal.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: deactivate crushed missions: %w", err)
	}

	missions, err := a.Missions.ListMissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("archive: refresh missions: %w", err)
	}
	if a.Logger != nil {
		a.Logger.Infof("archive: user=%s deleted=%d deactivated=%d", userID, deleted, deactivated)
	}
	if a.Refresh != nil {
		a.Refresh(userID, missions)
	}
	return &ArchiveResult{Deleted: deleted, Deactivated: deactivated, Missions: missions}, nil
}
