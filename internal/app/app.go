// Package app holds the bulletin application state and the command
// interface the CLI and other front ends drive. Each exported method is one
// operator action.
package app

import (
	"context"
	"sync"
	"time"

	"js8bulletin/internal/budget"
	"js8bulletin/internal/config"
	"js8bulletin/internal/eventbus"
	"js8bulletin/internal/js8call"
	"js8bulletin/internal/metrics"
	"js8bulletin/internal/runtime/supervisor"
	"js8bulletin/internal/schedule"
	"js8bulletin/internal/scheduler"
	"js8bulletin/internal/storage"
	logx "js8bulletin/pkg/logx"
)

// EmissionNotifier receives every emission record, e.g. the Telegram sink.
type EmissionNotifier interface {
	NotifyEmission(ctx context.Context, rec scheduler.EmissionRecord) error
}

type Option func(*App)

func WithLogger(log logx.Logger) Option { return func(a *App) { a.log = log } }

func WithObserver(o Observer) Option { return func(a *App) { a.observer = o } }

// WithPoster routes observer callbacks through p. The owner runs p.Run on
// the foreground goroutine.
func WithPoster(p *eventbus.Poster) Option { return func(a *App) { a.poster = p } }

func WithBus(b eventbus.Bus) Option { return func(a *App) { a.bus = b } }

func WithStore(s config.Store) Option { return func(a *App) { a.store = s } }

func WithHistory(h storage.Store) Option { return func(a *App) { a.history = h } }

func WithMetrics(m *metrics.Metrics) Option { return func(a *App) { a.metrics = m } }

func WithEmissionNotifier(n EmissionNotifier) Option { return func(a *App) { a.notifier = n } }

func WithSupervisor(sup *supervisor.Supervisor) Option { return func(a *App) { a.sup = sup } }

// WithClock replaces time.Now for the app and its scheduler.
func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

// WithTick sets the scheduler polling granularity.
func WithTick(d time.Duration) Option { return func(a *App) { a.tick = d } }

// App is the single owner of the bulletin state.
//
// mu guards the fields below it. connMu serializes client replacement so a
// slow dial never blocks status reads.
type App struct {
	log      logx.Logger
	observer Observer
	poster   *eventbus.Poster
	bus      eventbus.Bus
	store    config.Store
	history  storage.Store
	metrics  *metrics.Metrics
	notifier EmissionNotifier
	sup      *supervisor.Supervisor
	now      func() time.Time
	tick     time.Duration

	sched *scheduler.Scheduler

	connMu sync.Mutex

	mu          sync.Mutex
	budget      *budget.Budget
	spec        schedule.Spec
	conn        config.Connection
	autostart   bool
	currentFile string
	client      *js8call.Client
	closed      bool

	// persisted is the snapshot last loaded from or written to the store.
	persisted    config.Snapshot
	hasPersisted bool
}

// State is a copy of the operator-visible settings.
type State struct {
	Message          string            `json:"message"`
	LimitChars       int               `json:"limit_chars"`
	Schedule         schedule.Spec     `json:"-"`
	Connection       config.Connection `json:"connection"`
	AutostartEnabled bool              `json:"autostart_enabled"`
	CurrentFile      string            `json:"current_file,omitempty"`
}

// New builds the app from the saved snapshot (or defaults). It does not
// connect; call Reconnect or Autostart.
func New(opts ...Option) *App {
	a := &App{now: time.Now}
	for _, o := range opts {
		o(a)
	}
	if a.log.IsZero() {
		a.log = logx.Nop()
	}
	a.log = a.log.With(logx.String("comp", "app"))
	if a.observer == nil {
		a.observer = nopObserver{}
	}
	if a.sup == nil {
		a.sup = supervisor.New(context.Background(), supervisor.WithLogger(a.log))
	}

	snap := config.DefaultSnapshot()
	loaded := false
	if a.store != nil {
		if s, ok := a.store.Load(); ok {
			snap, loaded = s, true
			a.log.Info("last configuration loaded",
				logx.String("schedule", s.Schedule.Label()),
				logx.Int("limit", s.LimitChars),
				logx.Int("chars", budget.Count(s.Message)),
			)
		}
	}
	a.applySnapshotLocked(snap)
	if loaded {
		a.markPersistedLocked()
	}

	sopts := []scheduler.Option{
		scheduler.WithLogger(a.log),
		scheduler.WithSupervisor(a.sup),
		scheduler.WithClock(a.now),
		scheduler.WithHooks(scheduler.Hooks{
			OnSchedule: a.onSchedule,
			OnEmission: a.onEmission,
		}),
	}
	if a.tick > 0 {
		sopts = append(sopts, scheduler.WithTick(a.tick))
	}
	a.sched = scheduler.New(sopts...)
	return a
}

// applySnapshotLocked installs snap. Callers hold mu or own a exclusively.
func (a *App) applySnapshotLocked(snap config.Snapshot) {
	limit := snap.LimitChars
	b, err := budget.New(limit)
	if err != nil {
		b, _ = budget.New(budget.DefaultLimit)
	}
	b.Commit(snap.Message)
	a.budget = b
	a.spec = snap.Schedule
	if a.spec.Validate() != nil {
		a.spec = schedule.Default()
	}
	a.conn = snap.Connection
	a.autostart = snap.AutostartEnabled
}

// State returns a copy of the current settings.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *App) stateLocked() State {
	return State{
		Message:          a.budget.Committed(),
		LimitChars:       a.budget.Limit(),
		Schedule:         a.spec,
		Connection:       a.conn,
		AutostartEnabled: a.autostart,
		CurrentFile:      a.currentFile,
	}
}

func (a *App) snapshotLocked() config.Snapshot {
	return config.Snapshot{
		Message:          a.budget.Committed(),
		Schedule:         a.spec,
		LimitChars:       a.budget.Limit(),
		Connection:       a.conn,
		AutostartEnabled: a.autostart,
	}
}

func (a *App) markPersistedLocked() {
	a.persisted = a.snapshotLocked()
	a.hasPersisted = true
}

// save persists the current snapshot. Best effort; the store logs failures.
func (a *App) save() {
	if a.store == nil {
		return
	}
	a.mu.Lock()
	snap := a.snapshotLocked()
	a.persisted, a.hasPersisted = snap, true
	a.mu.Unlock()
	a.store.Save(snap)
}

// saveIfChanged writes the snapshot only when it differs from what the store
// already holds, so read-only sessions leave the file and its saved_at alone.
func (a *App) saveIfChanged() {
	if a.store == nil {
		return
	}
	a.mu.Lock()
	same := a.hasPersisted && a.snapshotLocked() == a.persisted
	a.mu.Unlock()
	if same {
		return
	}
	a.save()
}

// Close stops emissions, saves the settings if they changed, disconnects and
// closes the history store.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	if a.sched.Active() {
		a.log.Warn("emissions active at shutdown, stopping")
	}
	err := a.sched.Close(ctx)
	a.saveIfChanged()

	a.connMu.Lock()
	a.mu.Lock()
	c := a.client
	a.client = nil
	a.mu.Unlock()
	a.connMu.Unlock()
	if c != nil {
		c.Disconnect()
	}

	if a.history != nil {
		if herr := a.history.Close(); herr != nil {
			a.log.Warn("history close failed", logx.Err(herr))
		}
	}
	return err
}
