package mode

import (
	"sync"
	"time"
)

const (
	DefaultTapThreshold = 5
	DefaultTapWindow    = 2 * time.Second
)

// TapTrigger is the hidden switch: Threshold taps inside Window force the
// controller into the opposite mode.
type TapTrigger struct {
	mu        sync.Mutex
	ctrl      *Controller
	clock     Clock
	threshold int
	window    time.Duration
	taps      []time.Time
}

func NewTapTrigger(ctrl *Controller, clock Clock, threshold int, window time.Duration) *TapTrigger {
	if clock == nil {
		clock = SystemClock{}
	}
	if threshold <= 0 {
		threshold = DefaultTapThreshold
	}
	if window <= 0 {
		window = DefaultTapWindow
	}
	return &TapTrigger{ctrl: ctrl, clock: clock, threshold: threshold, window: window}
}

// Tap records one activation. It reports whether this tap fired the switch.
func (t *TapTrigger) Tap() (Snapshot, bool) {
	t.mu.Lock()
	now := t.clock.Now()
	kept := t.taps[:0]
	for _, ts := range t.taps {
		if now.Sub(ts) < t.window {
			kept = append(kept, ts)
		}
	}
	t.taps = append(kept, now)
	fired := len(t.taps) >= t.threshold
	if fired {
		t.taps = t.taps[:0]
	}
	t.mu.Unlock()

	if !fired {
		return t.ctrl.Snapshot(), false
	}
	return t.ctrl.ForceMode(t.ctrl.Mode().Opposite()), true
}
