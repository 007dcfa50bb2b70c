package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Session owns the navigation state of one viewer: the locator and snapshot
// caches, the browser pool and the playback histogram. Apart from StartWarm,
// its methods must be called from a single goroutine.
type Session struct {
	config    Configuration
	meta      Metadata
	store     DatasetReader
	locator   *EventLocator
	snapshots *SnapshotBuilder
	pool      *BrowserPool
	histogram *EnergyHistogram
	selection Selection
	snapshot  *EventSnapshot
	ready     atomic.Bool
	warming   atomic.Bool
	warmWait  sync.WaitGroup
}

func NewSession(config Configuration, meta Metadata, store DatasetReader, builder BrowserBuilder) *Session {
	return &Session{
		config:    config,
		meta:      meta,
		store:     store,
		locator:   NewEventLocator(config.TierPaths(), meta, store, config.BaselineChannel),
		snapshots: NewSnapshotBuilder(meta, store, config.EnergyParameter),
		pool:      NewBrowserPool(builder),
		histogram: DefaultEnergyHistogram(),
		selection: Selection{Period: Wildcard, Run: Wildcard, Cycle: Wildcard},
	}
}

func (s *Session) Config() Configuration {
	return s.config
}

func (s *Session) Locator() *EventLocator {
	return s.locator
}

func (s *Session) Selection() Selection {
	return s.selection
}

// Snapshot returns the current event, nil before the first selection.
func (s *Session) Snapshot() *EventSnapshot {
	return s.snapshot
}

func (s *Session) Histogram() *EnergyHistogram {
	return s.histogram
}

// Select resolves and reads an event. The session only changes when both
// steps succeed.
func (s *Session) Select(ctx context.Context, sel Selection) (*EventSnapshot, error) {
	loc, err := s.locator.Locate(ctx, sel)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.Build(ctx, sel, loc)
	if err != nil {
		return nil, err
	}
	s.selection = sel
	s.snapshot = snap
	return snap, nil
}

func (s *Session) Jump(ctx context.Context, index int) (*EventSnapshot, error) {
	return s.Select(ctx, s.selection.WithIndex(index))
}

func (s *Session) Next(ctx context.Context) (*EventSnapshot, error) {
	return s.Jump(ctx, s.selection.Index+1)
}

func (s *Session) Previous(ctx context.Context) (*EventSnapshot, error) {
	return s.Jump(ctx, s.selection.Index-1)
}

// Step advances one event and adds its energies to the histogram.
func (s *Session) Step(ctx context.Context) (*EventSnapshot, error) {
	snap, err := s.Next(ctx)
	if err != nil {
		return nil, err
	}
	s.histogram.FillSnapshot(snap)
	return snap, nil
}

// Play steps through events until ctx is cancelled or a step fails. The
// cancellation is checked once per step.
func (s *Session) Play(ctx context.Context, interval time.Duration, onStep func(*EventSnapshot) error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		snap, err := s.Step(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if onStep != nil {
			if err := onStep(snap); err != nil {
				return err
			}
		}
		if interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

// StartWarm builds the browser handles for sel in the background. It uses its
// own locator and snapshot builder so the session caches stay owned by the
// caller's goroutine; the pool is only touched here until Ready reports true.
// The returned channel receives the result once.
func (s *Session) StartWarm(ctx context.Context, sel Selection) <-chan error {
	done := make(chan error, 1)
	if s.ready.Load() {
		done <- nil
		return done
	}
	if !s.warming.CompareAndSwap(false, true) {
		done <- errors.New("browser warm-up already running")
		return done
	}
	s.warmWait.Add(1)
	go func() {
		defer s.warmWait.Done()
		defer s.warming.Store(false)
		start := time.Now()
		err := s.warm(ctx, sel)
		if err == nil {
			s.ready.Store(true)
			if s.config.Verbosity > 0 {
				message := fmt.Sprintf("Browsers ready in %d ms", time.Since(start).Milliseconds())
				logger.Info(message, "session")
			}
		} else {
			errMessage := fmt.Errorf("error building browsers: %w", err)
			logger.Error(errMessage.Error())
		}
		done <- err
	}()
	return done
}

func (s *Session) warm(ctx context.Context, sel Selection) error {
	locator := NewEventLocator(s.config.TierPaths(), s.meta, s.store, s.config.BaselineChannel)
	builder := NewSnapshotBuilder(s.meta, s.store, s.config.EnergyParameter)
	loc, err := locator.Locate(ctx, sel)
	if err != nil {
		return err
	}
	snap, err := builder.Build(ctx, sel, loc)
	if err != nil {
		return err
	}
	configs, err := s.meta.ProcessingConfigAt(ctx, snap.Timestamp())
	if err != nil {
		return err
	}
	_, err = s.pool.Refresh(ctx, snap, configs)
	return err
}

// WaitWarm blocks until a running warm-up has returned. Cancel its context
// first to make it return early.
func (s *Session) WaitWarm() {
	s.warmWait.Wait()
}

// Ready reports whether the background warm-up has completed.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

// Browsers refreshes the pool for the current event and returns the active
// handles positioned on it.
func (s *Session) Browsers(ctx context.Context) (map[string]BrowserHandle, error) {
	if !s.ready.Load() {
		return nil, ErrBrowsersNotReady
	}
	if s.snapshot == nil {
		return nil, errors.New("no event selected")
	}
	configs, err := s.meta.ProcessingConfigAt(ctx, s.snapshot.Timestamp())
	if err != nil {
		return nil, err
	}
	return s.pool.Refresh(ctx, s.snapshot, configs)
}

// PoolStats reports the pool counters once the warm-up has completed.
func (s *Session) PoolStats() (PoolStats, bool) {
	if !s.ready.Load() {
		return PoolStats{}, false
	}
	return s.pool.Stats(), true
}
