package api

import (
	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/session"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

type App interface {
	Logger() internal.Logger
	ProfileRepo() storage.ProfileRepository
	GoalRepo() storage.GoalRepository
	MissionRepo() storage.MissionRepository
	ThoughtRepo() storage.ThoughtRepository
	Sessions() *session.Manager
}

type app struct {
	logger   internal.Logger
	store    storage.Store
	sessions *session.Manager
}

func NewApp(logger internal.Logger, store storage.Store, sessions *session.Manager) App {
	return &app{logger: logger, store: store, sessions: sessions}
}

func (a *app) Logger() internal.Logger                { return a.logger }
func (a *app) ProfileRepo() storage.ProfileRepository { return a.store }
func (a *app) GoalRepo() storage.GoalRepository       { return a.store }
func (a *app) MissionRepo() storage.MissionRepository { return a.store }
func (a *app) ThoughtRepo() storage.ThoughtRepository { return a.store }
func (a *app) Sessions() *session.Manager             { return a.sessions }
