package latency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNilSimulatorDoesNotWait(t *testing.T) {
	var s *Simulator
	start := time.Now()
	if err := s.Wait(context.Background(), Upload); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("nil simulator should not wait")
	}
}

func TestWaitUsesKind(t *testing.T) {
	s := New(Durations{Default: time.Hour, Short: 5 * time.Millisecond})
	start := time.Now()
	if err := s.Wait(context.Background(), Short); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("Wait(Short) returned after %v, want at least 5ms", elapsed)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	s := New(Durations{Default: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Wait(ctx, Default)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestDemoDurations(t *testing.T) {
	d := Demo()
	if d.Default != 500*time.Millisecond || d.Short != 200*time.Millisecond ||
		d.Check != 300*time.Millisecond || d.Upload != time.Second {
		t.Errorf("Demo() = %+v", d)
	}
}
