package clock

import (
	"context"
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	c := NewFake(start)
	if got := c.Advance(90 * time.Second); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("unexpected time %v", got)
	}
	if !c.Now().Equal(start.Add(90 * time.Second)) {
		t.Fatalf("Now did not reflect advance")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time, 8)
	done := make(chan struct{})
	go func() {
		Run(ctx, 5*time.Millisecond, Real{}, func(now time.Time) {
			select {
			case ticks <- now:
			default:
			}
		})
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected at least one tick")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
