package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nhanzalone1/echo-app-sub000/internal"
)

const (
	usersFileName    = "users.json"
	profilesFileName = "profiles.json"
	goalsFileName    = "goals.json"
	missionsFileName = "missions.json"
	thoughtsFileName = "thoughts.json"
)

// FileStorage keeps everything in memory and flushes each collection to its
// own JSON file from a batching worker.
type FileStorage struct {
	users    map[string]*internal.User    // token -> User
	profiles map[string]*internal.Profile // userID -> Profile
	goals    map[string]*internal.Goal    // id -> Goal
	missions map[string]*internal.Mission // id -> Mission
	thoughts map[string]*internal.Thought // id -> Thought
	mu       sync.RWMutex
	dir      string

	saveUsers    chan struct{}
	saveProfiles chan struct{}
	saveGoals    chan struct{}
	saveMissions chan struct{}
	saveThoughts chan struct{}
	shutdownChan chan struct{}
	saveDelay    time.Duration
	workers      sync.WaitGroup
	closeOnce    sync.Once
	logger       internal.Logger
}

func NewFileStorage(dir string, logger internal.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &FileStorage{
		users:        make(map[string]*internal.User),
		profiles:     make(map[string]*internal.Profile),
		goals:        make(map[string]*internal.Goal),
		missions:     make(map[string]*internal.Mission),
		thoughts:     make(map[string]*internal.Thought),
		dir:          dir,
		saveUsers:    make(chan struct{}, 1),
		saveProfiles: make(chan struct{}, 1),
		saveGoals:    make(chan struct{}, 1),
		saveMissions: make(chan struct{}, 1),
		saveThoughts: make(chan struct{}, 1),
		shutdownChan: make(chan struct{}),
		saveDelay:    500 * time.Millisecond,
		logger:       logger,
	}

	var users []*internal.User
	var profiles []*internal.Profile
	var goals []*internal.Goal
	var missions []*internal.Mission
	var thoughts []*internal.Thought
	loads := []struct {
		name string
		into interface{}
	}{
		{usersFileName, &users},
		{profilesFileName, &profiles},
		{goalsFileName, &goals},
		{missionsFileName, &missions},
		{thoughtsFileName, &thoughts},
	}
	for _, l := range loads {
		if err := loadJSON(filepath.Join(dir, l.name), l.into); err != nil {
			logger.Errorf("storage: failed to load %s: %v", l.name, err)
			return nil, err
		}
	}
	for _, u := range users {
		s.users[u.Token] = u
	}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	for _, g := range goals {
		s.goals[g.ID] = g
	}
	for _, m := range missions {
		s.missions[m.ID] = m
	}
	for _, t := range thoughts {
		s.thoughts[t.ID] = t
	}

	for _, c := range s.collections() {
		s.startWorker(c)
	}

	return s, nil
}

func loadJSON(path string, into interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(into); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// values copies the map out so it can be encoded without holding the lock.
func values[T any](m map[string]*T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	return out
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

type collection struct {
	name     string
	signal   chan struct{}
	snapshot func() interface{}
}

func (s *FileStorage) collections() []collection {
	return []collection{
		{usersFileName, s.saveUsers, func() interface{} { return values(s.users) }},
		{profilesFileName, s.saveProfiles, func() interface{} { return values(s.profiles) }},
		{goalsFileName, s.saveGoals, func() interface{} { return values(s.goals) }},
		{missionsFileName, s.saveMissions, func() interface{} { return values(s.missions) }},
		{thoughtsFileName, s.saveThoughts, func() interface{} { return values(s.thoughts) }},
	}
}

func (s *FileStorage) flush(name string, snapshot func() interface{}) error {
	s.mu.RLock()
	data := snapshot()
	s.mu.RUnlock()
	return atomicWriteFileJSON(filepath.Join(s.dir, name), data)
}

// startWorker batches saves for one collection to avoid frequent disk writes.
func (s *FileStorage) startWorker(c collection) {
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		timer := time.NewTimer(s.saveDelay)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-c.signal:
				timer.Reset(s.saveDelay)
			case <-timer.C:
				if err := s.flush(c.name, c.snapshot); err != nil {
					s.logger.Errorf("storage: error saving %s: %v", c.name, err)
				}
			case <-s.shutdownChan:
				return
			}
		}
	}()
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close stops the workers and writes every collection synchronously.
func (s *FileStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdownChan)
		s.workers.Wait()

		for _, c := range s.collections() {
			if ferr := s.flush(c.name, c.snapshot); ferr != nil && err == nil {
				err = ferr
			}
		}
	})
	return err
}

// --- UserRepository ---
func (s *FileStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *FileStorage) SaveUser(ctx context.Context, user *internal.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.Token] = &cp
	notify(s.saveUsers)
	return nil
}

// --- ProfileRepository ---
func (s *FileStorage) GetProfile(ctx context.Context, userID string) (*internal.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *FileStorage) GetProfileByInviteCode(ctx context.Context, code string) (*internal.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if code != "" && p.InviteCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStorage) SaveProfile(ctx context.Context, profile *internal.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.profiles[profile.UserID] = &cp
	notify(s.saveProfiles)
	return nil
}

// --- GoalRepository ---
func (s *FileStorage) CreateGoal(ctx context.Context, goal *internal.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *goal
	s.goals[goal.ID] = &cp
	notify(s.saveGoals)
	return nil
}

func (s *FileStorage) ListGoals(ctx context.Context, userID string) ([]internal.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	goals := []internal.Goal{}
	for _, g := range s.goals {
		if g.UserID == userID {
			goals = append(goals, *g)
		}
	}
	sort.Slice(goals, func(i, j int) bool {
		return goals[i].CreatedAt.Before(goals[j].CreatedAt)
	})
	return goals, nil
}

func (s *FileStorage) DeleteGoal(ctx context.Context, userID, goalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok || g.UserID != userID {
		return ErrNotFound
	}
	delete(s.goals, goalID)
	notify(s.saveGoals)
	return nil
}

// --- MissionRepository ---
func (s *FileStorage) CreateMission(ctx context.Context, mission *internal.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *mission
	s.missions[mission.ID] = &cp
	notify(s.saveMissions)
	return nil
}

func (s *FileStorage) GetMission(ctx context.Context, userID, missionID string) (*internal.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.missions[missionID]
	if !ok || m.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *FileStorage) UpdateMission(ctx context.Context, mission *internal.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.missions[mission.ID]
	if !ok || existing.UserID != mission.UserID {
		return ErrNotFound
	}
	cp := *mission
	s.missions[mission.ID] = &cp
	notify(s.saveMissions)
	return nil
}

func (s *FileStorage) DeleteMission(ctx context.Context, userID, missionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[missionID]
	if !ok || m.UserID != userID {
		return ErrNotFound
	}
	delete(s.missions, missionID)
	notify(s.saveMissions)
	return nil
}

func (s *FileStorage) ListMissions(ctx context.Context, userID string) ([]internal.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	missions := []internal.Mission{}
	for _, m := range s.missions {
		if m.UserID == userID {
			missions = append(missions, *m)
		}
	}
	sort.Slice(missions, func(i, j int) bool {
		return missions[i].CreatedAt.After(missions[j].CreatedAt)
	})
	return missions, nil
}

func (s *FileStorage) DeleteMissions(ctx context.Context, filter internal.MissionFilter) (int, error) {
	if filter.UserID == "" {
		return 0, ErrUnscopedFilter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, m := range s.missions {
		if filter.Match(m) {
			delete(s.missions, id)
			n++
		}
	}
	if n > 0 {
		notify(s.saveMissions)
	}
	return n, nil
}

func (s *FileStorage) DeactivateMissions(ctx context.Context, filter internal.MissionFilter) (int, error) {
	if filter.UserID == "" {
		return 0, ErrUnscopedFilter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.missions {
		if filter.Match(m) && m.IsActive {
			m.IsActive = false
			n++
		}
	}
	if n > 0 {
		notify(s.saveMissions)
	}
	return n, nil
}

// --- ThoughtRepository ---
func (s *FileStorage) CreateThought(ctx context.Context, thought *internal.Thought) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *thought
	s.thoughts[thought.ID] = &cp
	notify(s.saveThoughts)
	return nil
}

func (s *FileStorage) ListThoughts(ctx context.Context, userID string) ([]internal.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thoughts := []internal.Thought{}
	for _, t := range s.thoughts {
		if t.UserID == userID {
			thoughts = append(thoughts, *t)
		}
	}
	sort.Slice(thoughts, func(i, j int) bool {
		return thoughts[i].CreatedAt.After(thoughts[j].CreatedAt)
	})
	return thoughts, nil
}

// --- Compile-time assertions ---
var _ Store = (*FileStorage)(nil)
