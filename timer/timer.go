// Package timer implements a single-shot countdown with an optional
// per-second tick callback, pause/resume, and idempotent cancellation.
package timer

import (
	"math"
	"sync"
	"time"
)

// Timer is a single-shot countdown of some duration. Start begins the
// countdown; OnTick (if set) is invoked at one-second granularity with the
// integer ceiling of remaining time, including an immediate initial tick.
// OnComplete fires at most once, when the duration elapses without Pause or
// Clear.
//
// Implementation note: ticks are driven by wall-clock sampling against a
// deadline rather than an accumulating counter, so pause/resume cannot drift
// relative to GetRemaining.
type Timer struct {
	mu sync.Mutex

	duration  time.Duration
	deadline  time.Time
	remaining time.Duration // valid while paused or before start
	running   bool
	paused    bool
	cancel    chan struct{}

	onTick     func(secondsRemaining int)
	onComplete func()
}

// New creates a Timer for the given duration. onTick and onComplete may be
// nil.
func New(d time.Duration, onTick func(int), onComplete func()) *Timer {
	return &Timer{
		duration:   d,
		remaining:  d,
		onTick:     onTick,
		onComplete: onComplete,
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 0 {
		secs = 0
	}
	return secs
}

// Start begins the countdown from the timer's configured duration. An
// initial tick carrying the ceiling of the full duration fires immediately,
// synchronously, before Start returns. No-op if already running.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.remaining = t.duration
	t.running = true
	t.paused = false
	t.deadline = time.Now().Add(t.remaining)
	cancel := make(chan struct{})
	t.cancel = cancel
	tick := t.onTick
	t.mu.Unlock()

	if tick != nil {
		tick(ceilSeconds(t.duration))
	}
	go t.run(cancel)
}

func (t *Timer) run(cancel chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.cancel != cancel {
				t.mu.Unlock()
				return
			}
			left := time.Until(t.deadline)
			tick := t.onTick
			if left <= 0 {
				t.running = false
				t.cancel = nil
				t.remaining = 0
				complete := t.onComplete
				t.mu.Unlock()
				if tick != nil {
					tick(0)
				}
				if complete != nil {
					complete()
				}
				return
			}
			t.mu.Unlock()
			if tick != nil {
				tick(ceilSeconds(left))
			}
		}
	}
}

// Pause stops future ticks and the completion callback, freezing Remaining
// at the integer ceiling of time left. No-op if not running.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || t.paused {
		return
	}
	left := time.Until(t.deadline)
	if left < 0 {
		left = 0
	}
	t.remaining = time.Duration(ceilSeconds(left)) * time.Second
	t.paused = true
	t.running = false
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
}

// Resume starts a fresh countdown of the remaining duration captured at
// Pause. No-op if not paused.
func (t *Timer) Resume() {
	t.mu.Lock()
	if !t.paused {
		t.mu.Unlock()
		return
	}
	t.paused = false
	t.running = true
	remaining := t.remaining
	t.deadline = time.Now().Add(remaining)
	cancel := make(chan struct{})
	t.cancel = cancel
	tick := t.onTick
	t.mu.Unlock()

	if tick != nil {
		tick(ceilSeconds(remaining))
	}
	go t.run(cancel)
}

// Clear cancels all future callbacks idempotently. No tick or completion
// callback fires after Clear returns.
func (t *Timer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
	t.running = false
	t.paused = false
	t.remaining = 0
}

// GetRemaining returns the integer ceiling of time left, whether paused or
// running; 0 after natural completion or Clear.
func (t *Timer) GetRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused || !t.running {
		return ceilSeconds(t.remaining)
	}
	return ceilSeconds(time.Until(t.deadline))
}

// IsRunning reports whether the timer is currently counting down
// (started and not paused/cleared/completed).
func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
