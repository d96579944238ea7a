package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"StockPulse/internal/calendar"
	"StockPulse/internal/recorder"
)

// DefaultCooldown is the pause after each cycle before the next alignment.
const DefaultCooldown = 5 * time.Second

// Clock is the scheduler's view of time.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Observer receives cycle metrics.
type Observer interface {
	ObserveCycle(status string, elapsed time.Duration)
	ObserveNextWake(t time.Time)
}

type noopObserver struct{}

func (noopObserver) ObserveCycle(string, time.Duration) {}
func (noopObserver) ObserveNextWake(time.Time)          {}

// Scheduler runs the update loop: sleep until the next aligned slot, run one
// cycle, cool down, repeat. At most one loop instance runs at a time.
type Scheduler struct {
	parent   context.Context
	config   ConfigLoader
	updater  Runner
	clock    Clock
	cooldown time.Duration
	recorder recorder.Recorder
	observer Observer
	tracer   trace.Tracer
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// nextWake is kept outside mu so callers can read it while Start waits.
	nextWake atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithCooldown(d time.Duration) Option { return func(s *Scheduler) { s.cooldown = d } }

func WithRecorder(r recorder.Recorder) Option { return func(s *Scheduler) { s.recorder = r } }

func WithObserver(o Observer) Option { return func(s *Scheduler) { s.observer = o } }

func WithTracer(t trace.Tracer) Option { return func(s *Scheduler) { s.tracer = t } }

func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.logger = l } }

// NewScheduler creates a stopped Scheduler. Loops started later derive from ctx.
func NewScheduler(ctx context.Context, cfg ConfigLoader, updater Runner, clock Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		parent:   ctx,
		config:   cfg,
		updater:  updater,
		clock:    clock,
		cooldown: DefaultCooldown,
		recorder: recorder.NewNoopRecorder(),
		observer: noopObserver{},
		tracer:   noop.NewTracerProvider().Tracer("scheduler"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the loop. A running loop is cancelled and waited for first,
// so calling Start again is how a changed interval takes effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go s.loop(ctx, done)
	s.logger.Info("scheduler started")
}

// Stop cancels the loop and waits for it to exit. An in-flight send completes first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopLocked() {
		s.logger.Info("scheduler stopped")
	}
	s.nextWake.Store(0)
}

func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	return true
}

// Running reports whether a loop instance is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// NextWake returns the time the loop is sleeping towards, or the zero time.
func (s *Scheduler) NextWake() time.Time {
	ns := s.nextWake.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).In(calendar.Eastern)
}

// RunOnce executes one cycle immediately, outside the loop.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.runCycle(ctx, s.config.Load().IntervalMinutes)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		cfg := s.config.Load()
		now := s.clock.Now()
		next := AlignedSchedule{IntervalMinutes: cfg.IntervalMinutes}.Next(now)
		s.nextWake.Store(next.UnixNano())
		s.observer.ObserveNextWake(next)
		s.logger.Info("next update scheduled",
			"next", next.Format("2006-01-02 03:04 PM MST"),
			"interval", cfg.IntervalMinutes,
			"wait", next.Sub(now).Round(time.Second).String())

		if err := s.clock.Sleep(ctx, next.Sub(now)); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		s.runCycle(ctx, cfg.IntervalMinutes)

		if err := s.clock.Sleep(ctx, s.cooldown); err != nil {
			return
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context, interval int) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, "scheduler.cycle",
		trace.WithAttributes(attribute.Int("interval_minutes", interval)))
	defer span.End()

	out, err := s.safeRun(ctx)
	elapsed := s.clock.Now().Sub(start)

	evt := &recorder.CycleEvent{
		At:              start,
		Outcome:         string(out.Status),
		IntervalMinutes: interval,
		Requested:       out.Requested,
		Posted:          out.Fetched,
		Duration:        elapsed,
	}
	switch {
	case err != nil:
		evt.Outcome = string(StatusFailed)
		evt.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "update cycle failed", "error", err)
	case out.Status == StatusPosted:
		s.logger.InfoContext(ctx, "update posted", "requested", out.Requested, "fetched", out.Fetched)
	default:
		s.logger.DebugContext(ctx, "update cycle skipped", "status", string(out.Status))
	}
	span.SetAttributes(
		attribute.String("outcome", evt.Outcome),
		attribute.Int("requested", out.Requested),
		attribute.Int("fetched", out.Fetched),
	)

	s.observer.ObserveCycle(evt.Outcome, elapsed)
	if rerr := s.recorder.RecordCycle(evt); rerr != nil {
		s.logger.WarnContext(ctx, "record cycle", "error", rerr)
	}
}

// safeRun turns a panicking cycle into an error so the loop survives it.
func (s *Scheduler) safeRun(ctx context.Context) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = Outcome{Status: StatusFailed}, fmt.Errorf("update panicked: %v", r)
		}
	}()
	return s.updater.Run(ctx)
}
