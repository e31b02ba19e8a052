package pingpong

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler drives the tick state machine over a Device.
//
// At most one tick is in flight: Tick refuses to start while another tick
// has not finished its readback, and Run executes ticks sequentially on
// a single goroutine. A failed tick returns the machine to Idle without
// swapping buffers; the next tick recomputes from the same state.
type Scheduler struct {
	dev     Device
	sink    Sink
	period  time.Duration
	metrics *Metrics

	inflight sync.Mutex
	stage    atomic.Int32
	ticks    atomic.Uint64
	failures atomic.Uint64
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSink sets the frame sink. The default discards frames.
func WithSink(s Sink) SchedulerOption {
	return func(sc *Scheduler) {
		if s != nil {
			sc.sink = s
		}
	}
}

// WithMetrics records tick results into m.
func WithMetrics(m *Metrics) SchedulerOption {
	return func(sc *Scheduler) {
		sc.metrics = m
	}
}

// WithSchedulePeriod overrides the period used by Run.
func WithSchedulePeriod(d time.Duration) SchedulerOption {
	return func(sc *Scheduler) {
		if d > 0 {
			sc.period = d
		}
	}
}

// NewScheduler returns a scheduler for an opened device. It refuses
// devices whose passes failed to build.
func NewScheduler(dev Device, opts ...SchedulerOption) (*Scheduler, error) {
	if dev == nil || !dev.Ready() {
		return nil, ErrDeviceNotReady
	}
	s := &Scheduler{
		dev:    dev,
		sink:   discardSink{},
		period: DefaultPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Stage returns the current state of the tick state machine.
func (s *Scheduler) Stage() Stage { return Stage(s.stage.Load()) }

// Ticks returns the number of committed ticks.
func (s *Scheduler) Ticks() uint64 { return s.ticks.Load() }

// Failures returns the number of abandoned ticks.
func (s *Scheduler) Failures() uint64 { return s.failures.Load() }

func (s *Scheduler) setStage(st Stage) {
	s.stage.Store(int32(st))
	s.metrics.observeStage(st)
}

// Tick runs one full tick: compute, capture, sync, present, readback and
// the commit swap. The frame is reported to the sink before Tick returns.
func (s *Scheduler) Tick(ctx context.Context) (Frame, error) {
	if !s.inflight.TryLock() {
		return Frame{}, ErrTickInFlight
	}
	defer s.inflight.Unlock()

	if !s.dev.Ready() {
		return Frame{}, ErrDeviceNotReady
	}

	start := time.Now()
	frame, failed, err := s.runStages(ctx)
	if err != nil {
		s.failures.Add(1)
		s.metrics.observeFailure(failed)
		s.setStage(StageIdle)
		Logger().Warn("pingpong: tick aborted",
			"device", s.dev.Name(),
			"stage", failed.String(),
			"err", err)
		return Frame{}, fmt.Errorf("pingpong: tick aborted entering %s: %w", failed, err)
	}

	s.dev.Swap()
	frame.Tick = s.ticks.Add(1)
	s.setStage(StageIdle)

	elapsed := time.Since(start)
	s.metrics.observeTick(frame, elapsed)
	Logger().Debug("pingpong: tick committed",
		"tick", frame.Tick,
		"elapsed", elapsed)
	s.sink.Report(frame)
	return frame, nil
}

// runStages walks the state machine from Idle to ReadBack. On failure it
// returns the stage that could not be entered.
func (s *Scheduler) runStages(ctx context.Context) (Frame, Stage, error) {
	steps := [...]struct {
		stage Stage
		run   func(context.Context) error
	}{
		{StageComputeIssued, s.dev.IssueCompute},
		{StageFeedbackCaptured, s.dev.AwaitCapture},
		{StageTextureSynced, s.dev.SyncTexture},
		{StageRendered, s.dev.Present},
	}
	for _, st := range steps {
		if err := st.run(ctx); err != nil {
			return Frame{}, st.stage, err
		}
		s.setStage(st.stage)
	}

	frame, err := s.dev.Readback(ctx)
	if err != nil {
		return Frame{}, StageReadBack, err
	}
	s.setStage(StageReadBack)
	return frame, StageReadBack, nil
}

// Run ticks once per period until ctx is cancelled. Tick errors are logged
// and do not stop the loop; a slow tick delays the following ones and
// ticks missed meanwhile are dropped, never queued.
//
// Run returns ctx.Err() when cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	Logger().Info("pingpong: scheduler started",
		"device", s.dev.Name(),
		"period", s.period)

	for {
		select {
		case <-ctx.Done():
			Logger().Info("pingpong: scheduler stopped",
				"ticks", s.Ticks(),
				"failures", s.Failures())
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil && errors.Is(err, ErrDeviceNotReady) {
				return err
			}
		}
	}
}
