package clock

import (
	"testing"
	"time"
)

func TestMilliseconds_Monotonic(t *testing.T) {
	prev := Milliseconds()
	for i := 0; i < 1000; i++ {
		now := Milliseconds()
		if now < prev {
			t.Fatalf("timer went backwards: %d after %d", now, prev)
		}
		prev = now
	}
}

func TestMilliseconds_Advances(t *testing.T) {
	before := Milliseconds()
	time.Sleep(20 * time.Millisecond)
	elapsed := Since(before)

	if elapsed < 20 {
		t.Errorf("expected at least 20ms elapsed, got %d", elapsed)
	}
	if elapsed > 2000 {
		t.Errorf("elapsed time %dms is implausibly large", elapsed)
	}
}

func TestSince_Wraps(t *testing.T) {
	// A timestamp just before the wrap point still yields a small interval.
	now := Milliseconds()
	stamp := now - 10
	if now < 10 {
		stamp = ^uint32(0) - (9 - now)
	}

	if got := Since(stamp); got < 10 || got > 1000 {
		t.Errorf("expected about 10ms across wrap, got %d", got)
	}
}

func TestDuration(t *testing.T) {
	if Duration(1500) != 1500*time.Millisecond {
		t.Errorf("unexpected duration %v", Duration(1500))
	}
}
