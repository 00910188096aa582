// Package mode owns the night/morning state machine for one user session.
//
// The Controller is the single authority over the current Mode and the two
// user gates (contract signed, protocol armed). Callers read it through
// Snapshot/Subscribe and change it only through its mutation methods.
package mode

import (
	"context"
	"sync"
	"time"

	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/schedule"
)

type Mode string

const (
	Night   Mode = "night"
	Morning Mode = "morning"
)

func (m Mode) Valid() bool { return m == Night || m == Morning }

func (m Mode) Opposite() Mode {
	if m == Morning {
		return Night
	}
	return Morning
}

// Keys of the locally persisted state.
const (
	KeyMode          = "mode"
	KeyProtocolArmed = "protocolArmed"
	KeySavedAt       = "savedAt"
)

const (
	DefaultTickInterval   = time.Minute
	DefaultArchiveTimeout = 30 * time.Second
)

// transition is the last window the evaluator observed.
type transition int

const (
	transitionUnknown transition = iota
	transitionNight
	transitionMorning
)

type Clock interface {
	Now() time.Time
}

// SystemClock reads wall-clock time, optionally in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// Archiver finalizes a user's missions at the end of the day.
type Archiver interface {
	Archive(ctx context.Context, userID string) error
}

type ArchiveFunc func(ctx context.Context, userID string) error

func (f ArchiveFunc) Archive(ctx context.Context, userID string) error { return f(ctx, userID) }

// StateStore persists the small key/value hint that lets a reloaded
// session paint the right mode before its first evaluation.
type StateStore interface {
	Load(userID string) (map[string]string, error)
	Save(userID string, state map[string]string) error
}

type Snapshot struct {
	UserID           string     `json:"user_id"`
	Mode             Mode       `json:"mode"`
	ContractSigned   bool       `json:"contract_signed"`
	ProtocolArmed    bool       `json:"protocol_armed"`
	DevOverride      bool       `json:"dev_override"`
	MorningStartTime string     `json:"morning_start_time"`
	NightStartTime   string     `json:"night_start_time"`
	LastArchiveError string     `json:"last_archive_error,omitempty"`
	LastArchivedAt   *time.Time `json:"last_archived_at,omitempty"`
}

type Options struct {
	UserID         string
	Schedule       schedule.Schedule
	Clock          Clock
	Archiver       Archiver
	State          StateStore
	Logger         internal.Logger
	TickInterval   time.Duration
	ArchiveTimeout time.Duration
}

type Controller struct {
	mu sync.Mutex

	userID         string
	clock          Clock
	archiver       Archiver
	state          StateStore
	logger         internal.Logger
	tickInterval   time.Duration
	archiveTimeout time.Duration

	schedule       schedule.Schedule
	mode           Mode
	contractSigned bool
	protocolArmed  bool
	devOverride    bool
	last           transition
	// hintSavedAt is when the restored hint was written; zero once checked.
	hintSavedAt    time.Time

	lastArchiveErr error
	lastArchivedAt time.Time

	subs    map[int]chan Snapshot
	nextSub int

	archives sync.WaitGroup
}

// New builds a controller and restores the persisted hint. It does not
// evaluate; call Evaluate or Run for that.
func New(opts Options) *Controller {
	c := &Controller{
		userID:         opts.UserID,
		clock:          opts.Clock,
		archiver:       opts.Archiver,
		state:          opts.State,
		logger:         opts.Logger,
		tickInterval:   opts.TickInterval,
		archiveTimeout: opts.ArchiveTimeout,
		schedule:       opts.Schedule,
		mode:           Night,
		subs:           make(map[int]chan Snapshot),
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.logger == nil {
		c.logger = internal.NopLogger()
	}
	if c.tickInterval <= 0 {
		c.tickInterval = DefaultTickInterval
	}
	if c.archiveTimeout <= 0 {
		c.archiveTimeout = DefaultArchiveTimeout
	}
	if c.schedule == (schedule.Schedule{}) {
		c.schedule = schedule.Default()
	}
	c.restore()
	return c
}

func (c *Controller) restore() {
	if c.state == nil {
		return
	}
	saved, err := c.state.Load(c.userID)
	if err != nil {
		c.logger.Warnf("mode: failed to load local state for %s: %v", c.userID, err)
		return
	}
	if m := Mode(saved[KeyMode]); m.Valid() {
		c.mode = m
		// The hint also seeds the rollover guard so a session that was in
		// morning mode when it went away archives once it sees night.
		if m == Morning {
			c.last = transitionMorning
		} else {
			c.last = transitionNight
		}
	}
	c.protocolArmed = saved[KeyProtocolArmed] == "true"
	if ts, err := time.Parse(time.RFC3339, saved[KeySavedAt]); err == nil {
		c.hintSavedAt = ts
	}
}

// expireHintLocked handles a restored hint that predates a night boundary
// nobody was around to evaluate. That rollover is applied now: an active
// morning is archived, and the protocol must be armed again. It runs once,
// on the first evaluation, so the loaded schedule is the one that counts.
func (c *Controller) expireHintLocked(now time.Time) (archive, changed bool) {
	saved := c.hintSavedAt
	c.hintSavedAt = time.Time{}
	if c.schedule.NextNight(saved).After(now) {
		return false, false
	}
	c.logger.Infof("mode: %s missed the night boundary since %s", c.userID, saved.Format(time.RFC3339))
	archive = c.last == transitionMorning && c.mode == Morning
	c.last = transitionNight
	if c.protocolArmed {
		c.protocolArmed = false
		changed = true
	}
	if c.mode != Night {
		c.mode = Night
		changed = true
	}
	return archive, changed
}

func (c *Controller) persistLocked() {
	if c.state == nil {
		return
	}
	st := map[string]string{
		KeyMode:    string(c.mode),
		KeySavedAt: c.clock.Now().Format(time.RFC3339),
	}
	if c.protocolArmed {
		st[KeyProtocolArmed] = "true"
	}
	if err := c.state.Save(c.userID, st); err != nil {
		c.logger.Warnf("mode: failed to persist local state for %s: %v", c.userID, err)
	}
}

// Evaluate runs one tick of the state machine against the current time.
func (c *Controller) Evaluate() {
	c.mu.Lock()
	archive := c.evaluateLocked(c.clock.Now())
	c.mu.Unlock()
	if archive {
		c.startArchive()
	}
}

// evaluateLocked applies the ranked rules and reports whether the caller
// must start an archive. The rollover guard (c.last) is always flipped here,
// under the lock, before any archive work begins.
func (c *Controller) evaluateLocked(now time.Time) bool {
	archive, changed := false, false
	if !c.hintSavedAt.IsZero() {
		archive, changed = c.expireHintLocked(now)
	}
	if c.devOverride {
		return false
	}

	if !c.schedule.InMorning(now) {
		if c.last == transitionMorning && c.mode == Morning {
			archive = true
			if c.protocolArmed {
				c.protocolArmed = false
				changed = true
			}
		}
		c.last = transitionNight
		if c.mode != Night {
			c.mode = Night
			changed = true
		}
	} else {
		if c.last == transitionNight && c.contractSigned {
			c.contractSigned = false
			changed = true
		}
		c.last = transitionMorning
		if c.protocolArmed && c.mode != Morning {
			c.mode = Morning
			changed = true
		} else if !c.protocolArmed && c.mode != Night {
			c.mode = Night
			changed = true
		}
	}

	if changed {
		c.logger.Debugf("mode: %s now %s (armed=%t contract=%t)", c.userID, c.mode, c.protocolArmed, c.contractSigned)
		c.persistLocked()
		c.publishLocked()
	}
	return archive
}

func (c *Controller) startArchive() {
	if c.archiver == nil {
		return
	}
	c.archives.Add(1)
	go func() {
		defer c.archives.Done()
		// Detached from the session so logout does not cut it short.
		ctx, cancel := context.WithTimeout(context.Background(), c.archiveTimeout)
		defer cancel()

		c.logger.Infof("mode: archiving missions for %s", c.userID)
		err := c.archiver.Archive(ctx, c.userID)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.lastArchiveErr = err
		if err != nil {
			c.logger.Errorf("mode: archive failed for %s: %v", c.userID, err)
		} else {
			c.lastArchivedAt = c.clock.Now()
		}
		c.publishLocked()
	}()
}

// WaitArchives blocks until every archive started so far has returned.
func (c *Controller) WaitArchives() {
	c.archives.Wait()
}

// Run evaluates immediately and then on every tick until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.Evaluate()
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Evaluate()
		}
	}
}

func (c *Controller) SignContract() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.contractSigned {
		c.contractSigned = true
		c.publishLocked()
	}
	return c.snapshotLocked()
}

// ArmProtocol marks the plan final and re-evaluates at once, so arming inside
// the morning window switches to Morning without waiting for a tick.
func (c *Controller) ArmProtocol() Snapshot {
	c.mu.Lock()
	c.protocolArmed = true
	c.persistLocked()
	c.publishLocked()
	archive := c.evaluateLocked(c.clock.Now())
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if archive {
		c.startArchive()
	}
	return snap
}

// ForceMode is the manual escape hatch. It sets the mode and both gates and
// suspends automatic evaluation until ClearOverride.
func (c *Controller) ForceMode(m Mode) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	c.hintSavedAt = time.Time{}
	c.contractSigned = true
	c.protocolArmed = true
	c.devOverride = true
	c.logger.Warnf("mode: %s forced to %s", c.userID, m)
	c.persistLocked()
	c.publishLocked()
	return c.snapshotLocked()
}

// ClearOverride re-enables automatic evaluation and evaluates immediately.
func (c *Controller) ClearOverride() Snapshot {
	c.mu.Lock()
	c.devOverride = false
	c.publishLocked()
	archive := c.evaluateLocked(c.clock.Now())
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if archive {
		c.startArchive()
	}
	return snap
}

// UpdateSchedule replaces the schedule and re-evaluates.
func (c *Controller) UpdateSchedule(s schedule.Schedule) Snapshot {
	c.mu.Lock()
	c.schedule = s
	c.publishLocked()
	archive := c.evaluateLocked(c.clock.Now())
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if archive {
		c.startArchive()
	}
	return snap
}

// LoadSchedule parses stored boundaries and applies them. Malformed values
// fall back to defaults; the returned error is informational only.
func (c *Controller) LoadSchedule(morning, night string) (Snapshot, error) {
	s, err := schedule.Parse(morning, night)
	if err != nil {
		c.logger.Warnf("mode: %s: %v", c.userID, err)
	}
	return c.UpdateSchedule(s), err
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		UserID:           c.userID,
		Mode:             c.mode,
		ContractSigned:   c.contractSigned,
		ProtocolArmed:    c.protocolArmed,
		DevOverride:      c.devOverride,
		MorningStartTime: c.schedule.Morning.String(),
		NightStartTime:   c.schedule.Night.String(),
	}
	if c.lastArchiveErr != nil {
		s.LastArchiveError = c.lastArchiveErr.Error()
	}
	if !c.lastArchivedAt.IsZero() {
		t := c.lastArchivedAt
		s.LastArchivedAt = &t
	}
	return s
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Slow readers only ever see the newest value.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 1)
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Close drops every subscriber.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
