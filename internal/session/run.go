package session

// Events receives countdown updates from a session's timer. Implementations
// must not block for long; Tick is called once per timer interval.
type Events interface {
	// Tick reports the new remaining value after a timer tick.
	Tick(remaining int)
	// Expired reports that the countdown reached zero. Fired at most once;
	// the receiver is expected to force a submit.
	Expired()
}

// Run pumps a timer into a session until the timer stops or expires. Each
// tick is recorded on the session before it is forwarded, so a snapshot
// taken from the Events callback always reflects the value just delivered.
// Run returns when the timer's tick channel closes; the caller owns the
// timer handle and must Stop it on every exit path (manual submit, expiry,
// teardown).
func Run(s *Session, t *Timer, ev Events) {
	for remaining := range t.Ticks() {
		s.Tick(remaining)
		if ev != nil {
			ev.Tick(remaining)
		}
	}

	select {
	case <-t.Expired():
		s.Tick(0)
		if ev != nil {
			ev.Expired()
		}
	default:
	}
}
