// Package session keeps one mode controller alive per signed-in user.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/mode"
	"github.com/nhanzalone1/echo-app-sub000/internal/service"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

type Options struct {
	Profiles       storage.ProfileRepository
	Missions       storage.MissionRepository
	State          mode.StateStore
	Clock          mode.Clock
	Logger         internal.Logger
	TickInterval   time.Duration
	ArchiveTimeout time.Duration
	TapThreshold   int
	TapWindow      time.Duration
}

type Session struct {
	UserID     string
	Controller *mode.Controller
	Trigger    *mode.TapTrigger
	Archiver   *service.Archiver

	missions *hub[[]internal.Mission]
	cancel   context.CancelFunc
	done     chan struct{}
}

// SubscribeMissions delivers the refreshed mission list after each archive.
func (s *Session) SubscribeMissions() (<-chan []internal.Mission, func()) {
	return s.missions.subscribe()
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
	logger   internal.Logger
	archives sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = internal.NopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = mode.SystemClock{}
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Get returns the user's running session, starting one if needed. The
// schedule is read once from the profile store at start.
func (m *Manager) Get(ctx context.Context, user *internal.User) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[user.ID]; ok {
		return s, nil
	}

	profile, err := service.LoadProfile(ctx, m.opts.Profiles, user)
	if err != nil {
		return nil, err
	}

	logger := m.logger.With("user_id", user.ID)
	s := &Session{
		UserID:   user.ID,
		missions: newHub[[]internal.Mission](),
		done:     make(chan struct{}),
	}
	s.Archiver = &service.Archiver{
		Missions: m.opts.Missions,
		Logger:   logger,
		Refresh: func(_ string, missions []internal.Mission) {
			s.missions.publish(missions)
		},
	}
	s.Controller = mode.New(mode.Options{
		UserID:         user.ID,
		Clock:          m.opts.Clock,
		Archiver:       s.Archiver,
		State:          m.opts.State,
		Logger:         logger,
		TickInterval:   m.opts.TickInterval,
		ArchiveTimeout: m.opts.ArchiveTimeout,
	})
	// A malformed stored schedule falls back to defaults inside LoadSchedule.
	_, _ = s.Controller.LoadSchedule(profile.MorningStartTime, profile.NightStartTime)
	s.Trigger = mode.NewTapTrigger(s.Controller, m.opts.Clock, m.opts.TapThreshold, m.opts.TapWindow)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		if err := s.Controller.Run(runCtx); err != nil {
			logger.Errorf("session: controller stopped: %v", err)
		}
	}()

	m.sessions[user.ID] = s
	logger.Infof("session: started")
	return s, nil
}

// Lookup returns a running session without starting one.
func (m *Manager) Lookup(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// End stops the user's evaluator. An archive already in flight keeps running.
func (m *Manager) End(userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.stop()
	m.archives.Add(1)
	go func() {
		defer m.archives.Done()
		s.Controller.WaitArchives()
	}()
	m.logger.Infof("session: ended for %s", userID)
	return true
}

func (s *Session) stop() {
	s.cancel()
	<-s.done
	s.Controller.Close()
	s.missions.close()
}

// Shutdown ends every session and waits for in-flight archives until ctx
// is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.End(id)
	}

	waited := make(chan struct{})
	go func() {
		m.archives.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
