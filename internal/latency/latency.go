// Package latency simulates network round trips in mock mode, so the
// application behaves against in-memory stores the way it will against a
// real backend: loading states show up, and concurrent requests interleave.
package latency

import (
	"context"
	"time"
)

// Kind picks which configured delay an operation pays.
type Kind int

const (
	// Default applies to ordinary reads and writes.
	Default Kind = iota
	// Short applies to cheap session bookkeeping (sign-out, session lookup).
	Short
	// Check applies to availability checks such as username lookups.
	Check
	// Upload applies to file uploads.
	Upload
)

// Durations configures each Kind. Zero durations mean no delay.
type Durations struct {
	Default time.Duration
	Short   time.Duration
	Check   time.Duration
	Upload  time.Duration
}

// Simulator waits for the configured delay. A nil *Simulator never waits,
// which is what tests use.
type Simulator struct {
	d Durations
}

func New(d Durations) *Simulator {
	return &Simulator{d: d}
}

// Demo returns the delays the demo build ships with.
func Demo() Durations {
	return Durations{
		Default: 500 * time.Millisecond,
		Short:   200 * time.Millisecond,
		Check:   300 * time.Millisecond,
		Upload:  time.Second,
	}
}

func (s *Simulator) duration(k Kind) time.Duration {
	switch k {
	case Short:
		return s.d.Short
	case Check:
		return s.d.Check
	case Upload:
		return s.d.Upload
	default:
		return s.d.Default
	}
}

// Wait blocks for the delay of kind k or until ctx is done, returning
// ctx.Err() in the latter case.
func (s *Simulator) Wait(ctx context.Context, k Kind) error {
	if s == nil {
		return ctx.Err()
	}
	d := s.duration(k)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
