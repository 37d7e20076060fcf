// Package scheduler arms a bulletin schedule and drives transmissions from a
// single polling worker.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"js8bulletin/internal/budget"
	"js8bulletin/internal/runtime/supervisor"
	"js8bulletin/internal/schedule"
	logx "js8bulletin/pkg/logx"
)

// DefaultTick is the polling granularity.
const DefaultTick = time.Second

type Option func(*Scheduler)

func WithLogger(log logx.Logger) Option { return func(s *Scheduler) { s.log = log } }

func WithSupervisor(sup *supervisor.Supervisor) Option {
	return func(s *Scheduler) { s.sup = sup }
}

// WithClock replaces time.Now. Tests use it to move time without sleeping.
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

func WithHooks(h Hooks) Option { return func(s *Scheduler) { s.hooks = h } }

type Scheduler struct {
	log   logx.Logger
	sup   *supervisor.Supervisor
	now   func() time.Time
	tick  time.Duration
	hooks Hooks

	// txMu serializes transmissions between the worker and SendOnce.
	txMu sync.Mutex
	// notifyMu is held across a schedule change and its OnSchedule call so
	// observers see updates in the order they were made. Taken before mu.
	notifyMu sync.Mutex

	mu       sync.Mutex
	active   bool
	spec     schedule.Spec
	next     time.Time
	transmit TransmitFunc
	run      *run
	last     *EmissionRecord

	workers sync.WaitGroup
}

// run is one Start..Stop cycle. A worker only touches scheduler state while
// its run is still current.
type run struct {
	stop chan struct{}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{now: time.Now, tick: DefaultTick}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "scheduler"))
	if s.sup == nil {
		s.sup = supervisor.New(context.Background(), supervisor.WithLogger(s.log))
	}
	return s
}

// Start arms spec and starts the polling worker. Message and connection
// preconditions are the caller's job.
func (s *Scheduler) Start(spec schedule.Spec, transmit TransmitFunc) error {
	if transmit == nil {
		return fmt.Errorf("scheduler: transmit callback required")
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	r := &run{stop: make(chan struct{})}
	s.active = true
	s.spec = spec
	s.transmit = transmit
	s.run = r
	s.next = schedule.ComputeNext(spec, s.now())
	next := s.next
	s.mu.Unlock()

	s.workers.Add(1)
	s.sup.Go0("scheduler.poll", func(ctx context.Context) {
		defer s.workers.Done()
		s.loop(ctx, r)
	})

	s.log.Info("schedule started", logx.String("schedule", spec.Label()), logx.Time("next", next))
	s.notifySchedule(&next)
	return nil
}

// Stop disarms the schedule. It is idempotent and does not wait for an
// in-flight transmit.
func (s *Scheduler) Stop() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.next = time.Time{}
	close(s.run.stop)
	s.run = nil
	s.mu.Unlock()

	s.log.Info("schedule stopped")
	s.notifySchedule(nil)
}

// Close stops the schedule and waits for the worker to exit.
func (s *Scheduler) Close(ctx context.Context) error {
	s.Stop()
	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scheduler) Runtime() Runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt := Runtime{Active: s.active, Spec: s.spec}
	if s.active {
		next := s.next
		rt.Next = &next
	}
	if s.last != nil {
		last := *s.last
		rt.Last = &last
	}
	return rt
}

// Preview returns the next n trigger times of the armed schedule, or of spec
// when idle.
func (s *Scheduler) Preview(spec schedule.Spec, n int) []time.Time {
	s.mu.Lock()
	if s.active {
		spec = s.spec
	}
	s.mu.Unlock()
	return schedule.Preview(spec, s.now(), n)
}

// SendOnce transmits immediately, outside the schedule.
func (s *Scheduler) SendOnce(transmit TransmitFunc) EmissionRecord {
	return s.emit(transmit, true)
}

func (s *Scheduler) loop(ctx context.Context, r *run) {
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-t.C:
			s.poll(r)
		}
	}
}

func (s *Scheduler) poll(r *run) {
	s.mu.Lock()
	if s.run != r || s.now().Before(s.next) {
		s.mu.Unlock()
		return
	}
	spec, transmit := s.spec, s.transmit
	s.mu.Unlock()

	s.emit(transmit, false)

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	if s.run != r {
		s.mu.Unlock()
		return
	}
	s.next = schedule.ComputeNext(spec, s.now())
	next := s.next
	s.mu.Unlock()

	s.log.Debug("next emission", logx.Time("at", next))
	s.notifySchedule(&next)
}

// emit runs one transmit and turns its outcome into a record. Errors and
// panics end up in the record and the log, never in the caller.
func (s *Scheduler) emit(transmit TransmitFunc, manual bool) EmissionRecord {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	rec := EmissionRecord{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
		Manual:    manual,
	}
	tr, err := s.safeTransmit(transmit)
	rec.Text = tr.Text
	rec.CharCount = budget.Count(tr.Text)
	rec.FrequencyHz = tr.FrequencyHz

	switch {
	case err != nil:
		rec.Outcome = OutcomeFailed
		rec.Error = err.Error()
		s.log.Error("emission failed", logx.String("id", rec.ID), logx.Bool("manual", manual), logx.Err(err))
	case tr.Simulated:
		rec.Outcome = OutcomeSimulated
		s.log.Warn("[SIMULATION] emission", logx.Int("chars", rec.CharCount), logx.Bool("manual", manual))
	default:
		rec.Outcome = OutcomeSent
		s.log.Info("emission sent", logx.Int("chars", rec.CharCount), logx.Int64("freq_hz", rec.FrequencyHz), logx.Bool("manual", manual))
	}

	s.mu.Lock()
	last := rec
	s.last = &last
	s.mu.Unlock()

	if s.hooks.OnEmission != nil {
		s.hooks.OnEmission(rec)
	}
	return rec
}

func (s *Scheduler) safeTransmit(transmit TransmitFunc) (tr Transmission, err error) {
	if transmit == nil {
		return Transmission{}, fmt.Errorf("no transmit callback")
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("transmit panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("transmit panicked: %v", r)
		}
	}()
	return transmit(context.Background())
}

func (s *Scheduler) notifySchedule(next *time.Time) {
	if s.hooks.OnSchedule != nil {
		s.hooks.OnSchedule(next)
	}
}
