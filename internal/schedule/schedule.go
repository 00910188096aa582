// Package schedule parses the per-user morning/night boundaries and answers
// which window a wall-clock instant falls into.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMorning = "06:00"
	DefaultNight   = "21:00"
)

// TimeOfDay is a local wall-clock time expressed as minutes since midnight.
type TimeOfDay int

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("schedule: %q is not HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("schedule: bad hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("schedule: bad minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func MustParse(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func Of(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

type Schedule struct {
	Morning TimeOfDay
	Night   TimeOfDay
}

func Default() Schedule {
	return Schedule{Morning: MustParse(DefaultMorning), Night: MustParse(DefaultNight)}
}

// ConfigurationError reports a malformed schedule. It is recovered by
// substituting defaults and is never fatal.
type ConfigurationError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("schedule: invalid %s %q, using default: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Parse builds a Schedule from the stored strings. Each malformed boundary
// falls back to its default; the returned schedule is always usable and the
// error, when non-nil, is a *ConfigurationError for the first bad field.
func Parse(morning, night string) (Schedule, error) {
	s := Default()
	var cfgErr error

	if m, err := ParseTimeOfDay(morning); err != nil {
		cfgErr = &ConfigurationError{Field: "morning_start_time", Value: morning, Err: err}
	} else {
		s.Morning = m
	}
	if n, err := ParseTimeOfDay(night); err != nil {
		if cfgErr == nil {
			cfgErr = &ConfigurationError{Field: "night_start_time", Value: night, Err: err}
		}
	} else {
		s.Night = n
	}
	return s, cfgErr
}

// Valid reports whether the morning window is non-empty.
func (s Schedule) Valid() bool {
	return s.Morning < s.Night
}

// InMorning reports whether t falls in [Morning, Night). When Night does not
// come after Morning the window is empty and every instant is night.
func (s Schedule) InMorning(t time.Time) bool {
	if !s.Valid() {
		return false
	}
	now := Of(t)
	return s.Morning <= now && now < s.Night
}

// NextNight returns the first instant strictly after t at which the clock
// reaches the night boundary.
func (s Schedule) NextNight(t time.Time) time.Time {
	at := time.Date(t.Year(), t.Month(), t.Day(), 0, int(s.Night), 0, 0, t.Location())
	if !at.After(t) {
		at = time.Date(t.Year(), t.Month(), t.Day()+1, 0, int(s.Night), 0, 0, t.Location())
	}
	return at
}
