package session

import (
	"sync"
	"time"
)

// Timer is a one-shot countdown clock for a single exam session. It emits
// each new remaining value on Ticks once per interval and closes Expired
// exactly once when the remaining value reaches zero. Stop halts the
// countdown without firing expiry; a Timer cannot be restarted.
type Timer struct {
	interval time.Duration
	ticks    chan int
	expired  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// TimerOption customizes a Timer.
type TimerOption func(*Timer)

// WithInterval overrides the tick interval. The default is one second;
// tests shorten it.
func WithInterval(d time.Duration) TimerOption {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// NewTimer starts a countdown from durationSeconds. If durationSeconds is
// zero or negative, expiry fires immediately without any tick. Remaining
// values are never negative.
func NewTimer(durationSeconds int, opts ...TimerOption) *Timer {
	t := &Timer{
		interval: time.Second,
		ticks:    make(chan int),
		expired:  make(chan struct{}),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.run(durationSeconds)
	return t
}

// Ticks delivers the remaining seconds after each elapsed interval. The
// channel is closed once the timer stops or expires.
func (t *Timer) Ticks() <-chan int { return t.ticks }

// Expired is closed exactly once when the countdown reaches zero. It is
// never closed if Stop was called first.
func (t *Timer) Expired() <-chan struct{} { return t.expired }

// Stop halts the countdown without emitting expiry. Safe to call multiple
// times and after expiry.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Timer) run(remaining int) {
	defer close(t.ticks)

	if remaining <= 0 {
		close(t.expired)
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining--
			select {
			case t.ticks <- remaining:
			case <-t.stop:
				return
			}
			if remaining == 0 {
				close(t.expired)
				return
			}
		}
	}
}
