// Package monitor polls the persistence service for the user's training load.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/moorebrett0/climbcoach/internal/backend"
	"github.com/moorebrett0/climbcoach/internal/load"
)

// Source returns the current training load.
type Source interface {
	TrainingLoad(ctx context.Context) (*backend.TrainingLoad, error)
}

// Reading is one poll result. Available is false when the service had no
// data yet or the poll failed; Err holds the failure, if any.
type Reading struct {
	Summary   load.Summary
	Zone      load.Zone
	Available bool
	Err       error
	At        time.Time
}

// Monitor polls the training load periodically and stores the latest
// reading atomically.
type Monitor struct {
	source   Source
	reading  atomic.Pointer[Reading]
	interval time.Duration
	onUpdate func(Reading) // called after every poll
	now      func() time.Time
}

// New creates a Monitor. onUpdate may be nil.
func New(source Source, interval time.Duration, onUpdate func(Reading)) *Monitor {
	m := &Monitor{
		source:   source,
		interval: interval,
		onUpdate: onUpdate,
		now:      time.Now,
	}
	m.reading.Store(&Reading{Zone: load.ZoneUnknown})
	return m
}

// Latest returns the most recent reading without blocking.
func (m *Monitor) Latest() Reading {
	return *m.reading.Load()
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	// Immediate first read
	m.refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Monitor) refresh(ctx context.Context) {
	r := &Reading{Zone: load.ZoneUnknown, At: m.now()}

	tl, err := m.source.TrainingLoad(ctx)
	switch {
	case errors.Is(err, backend.ErrNoTrainingData):
		slog.Debug("monitor: no training data yet")
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		slog.Warn("monitor: training load poll failed", "err", err)
		r.Err = err
	default:
		r.Summary = load.Summarize(tl)
		r.Zone = r.Summary.Interpretation
		r.Available = true
		slog.Debug("monitor: training load", "acwr", r.Summary.ACWR, "zone", r.Zone)
	}

	m.reading.Store(r)
	if m.onUpdate != nil {
		m.onUpdate(*r)
	}
}
