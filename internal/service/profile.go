package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/schedule"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

type ScheduleRequest struct {
	MorningStartTime string `json:"morning_start_time" validate:"required,hhmm"`
	NightStartTime   string `json:"night_start_time" validate:"required,hhmm"`
}

// Validate rejects malformed times and overnight windows; the morning window
// must start and end on the same calendar day.
func (r *ScheduleRequest) Validate() (schedule.Schedule, error) {
	if err := validateStruct(r); err != nil {
		return schedule.Schedule{}, err
	}
	s, err := schedule.Parse(r.MorningStartTime, r.NightStartTime)
	if err != nil {
		return schedule.Schedule{}, invalid(err)
	}
	if !s.Valid() {
		return schedule.Schedule{}, invalid(fmt.Errorf("night_start_time %s must be after morning_start_time %s", r.NightStartTime, r.MorningStartTime))
	}
	return s, nil
}

// LoadProfile returns the stored profile or a fresh one with default
// boundaries. The fresh profile is not saved.
func LoadProfile(ctx context.Context, repo storage.ProfileRepository, user *internal.User) (*internal.Profile, error) {
	p, err := repo.GetProfile(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return &internal.Profile{
			UserID:           user.ID,
			Name:             user.Name,
			MorningStartTime: schedule.DefaultMorning,
			NightStartTime:   schedule.DefaultNight,
			UpdatedAt:        time.Now(),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func UpdateSchedule(ctx context.Context, repo storage.ProfileRepository, user *internal.User, req *ScheduleRequest) (*internal.Profile, schedule.Schedule, error) {
	s, err := req.Validate()
	if err != nil {
		return nil, schedule.Schedule{}, err
	}
	p, err := LoadProfile(ctx, repo, user)
	if err != nil {
		return nil, schedule.Schedule{}, err
	}
	p.MorningStartTime = s.Morning.String()
	p.NightStartTime = s.Night.String()
	p.UpdatedAt = time.Now()
	if err := repo.SaveProfile(ctx, p); err != nil {
		return nil, schedule.Schedule{}, err
	}
	return p, s, nil
}

// CreateInvite issues (or returns the existing) code an ally redeems to link.
func CreateInvite(ctx context.Context, repo storage.ProfileRepository, user *internal.User) (*internal.Profile, error) {
	p, err := LoadProfile(ctx, repo, user)
	if err != nil {
		return nil, err
	}
	if p.InviteCode != "" {
		return p, nil
	}
	p.InviteCode = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	p.UpdatedAt = time.Now()
	if err := repo.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

var (
	ErrSelfAlly      = errors.New("cannot ally with yourself")
	ErrAlreadyAllied = errors.New("already linked to an ally")
)

type AcceptInviteRequest struct {
	Code string `json:"code" validate:"required,len=8,alphanum"`
}

// AcceptInvite links the caller and the code's owner to each other. Each user
// has at most one ally; the code is consumed.
func AcceptInvite(ctx context.Context, repo storage.ProfileRepository, user *internal.User, req *AcceptInviteRequest) (*internal.Profile, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	owner, err := repo.GetProfileByInviteCode(ctx, strings.ToUpper(req.Code))
	if err != nil {
		return nil, err
	}
	if owner.UserID == user.ID {
		return nil, invalid(ErrSelfAlly)
	}
	me, err := LoadProfile(ctx, repo, user)
	if err != nil {
		return nil, err
	}
	if (me.AllyID != "" && me.AllyID != owner.UserID) || (owner.AllyID != "" && owner.AllyID != user.ID) {
		return nil, invalid(ErrAlreadyAllied)
	}

	now := time.Now()
	owner.AllyID = user.ID
	owner.InviteCode = ""
	owner.UpdatedAt = now
	me.AllyID = owner.UserID
	me.UpdatedAt = now
	if err := repo.SaveProfile(ctx, owner); err != nil {
		return nil, err
	}
	if err := repo.SaveProfile(ctx, me); err != nil {
		return nil, err
	}
	return me, nil
}

// ErrNoAlly is returned when the caller has not linked an ally yet.
var ErrNoAlly = errors.New("no ally linked")

// AllyMissions returns the ally's missions that are still on the board.
func AllyMissions(ctx context.Context, profiles storage.ProfileRepository, missions storage.MissionRepository, user *internal.User) ([]internal.Mission, error) {
	p, err := LoadProfile(ctx, profiles, user)
	if err != nil {
		return nil, err
	}
	if p.AllyID == "" {
		return nil, ErrNoAlly
	}
	return ActiveMissions(ctx, missions, p.AllyID)
}
