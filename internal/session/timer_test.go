package session

import (
	"testing"
	"time"
)

const testInterval = 2 * time.Millisecond

func TestTimerEmitsEveryRemainingValueThenExpires(t *testing.T) {
	tm := NewTimer(3, WithInterval(testInterval))

	var got []int
	for v := range tm.Ticks() {
		got = append(got, v)
	}

	want := []int{2, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("ticks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ticks = %v, want %v", got, want)
		}
	}

	select {
	case <-tm.Expired():
	case <-time.After(time.Second):
		t.Fatal("expiry never fired")
	}
}

func TestTimerZeroDurationExpiresImmediately(t *testing.T) {
	tm := NewTimer(0, WithInterval(testInterval))

	select {
	case <-tm.Expired():
	case <-time.After(time.Second):
		t.Fatal("expiry never fired")
	}

	if v, ok := <-tm.Ticks(); ok {
		t.Fatalf("got tick %d, want none", v)
	}
}

func TestTimerNegativeDurationExpiresImmediately(t *testing.T) {
	tm := NewTimer(-5, WithInterval(testInterval))

	select {
	case <-tm.Expired():
	case <-time.After(time.Second):
		t.Fatal("expiry never fired")
	}
}

func TestTimerStopSuppressesExpiry(t *testing.T) {
	tm := NewTimer(1000, WithInterval(testInterval))
	tm.Stop()
	tm.Stop() // repeated Stop is safe

	// Drain: the tick channel closes without delivering an expiry.
	for range tm.Ticks() {
	}

	select {
	case <-tm.Expired():
		t.Fatal("stopped timer fired expiry")
	case <-time.After(20 * testInterval):
	}
}

func TestTimerStopAfterExpiryIsSafe(t *testing.T) {
	tm := NewTimer(1, WithInterval(testInterval))
	for range tm.Ticks() {
	}
	<-tm.Expired()
	tm.Stop()
}
