package app

import (
	"context"
	"errors"
	"strings"

	"js8bulletin/internal/config"
	"js8bulletin/internal/diag"
	"js8bulletin/internal/eventbus"
	"js8bulletin/internal/metrics"
	"js8bulletin/internal/runtime/supervisor"
	"js8bulletin/internal/storage"
	"js8bulletin/internal/transport/telegram"
	logx "js8bulletin/pkg/logx"
)

// Runtime wires an App to its ambient services: logging, history, metrics,
// diagnostics, Telegram notices and the option/settings watchers.
type Runtime struct {
	cfgm *config.Manager
	opts *config.Options

	logs *logx.Service
	log  logx.Logger

	bus      eventbus.Bus
	poster   *eventbus.Poster
	settings *config.FileStore
	history  storage.Store
	metrics  *metrics.Metrics
	diag     *diag.Service
	tg       *telegram.Sink

	app *App
	sup *supervisor.Supervisor
}

// RuntimeOptions select the files and the presentation observer.
type RuntimeOptions struct {
	// ConfigPath is the options file; empty uses the defaults.
	ConfigPath string
	// SettingsPath overrides the options file's settings_path.
	SettingsPath string
	Observer     Observer
	// Quiet lowers the console level to warnings (one-shot CLI commands).
	Quiet bool
}

func NewRuntime(ro RuntimeOptions) (*Runtime, error) {
	cfgm := config.NewManager(ro.ConfigPath)
	opts, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if p := strings.TrimSpace(ro.SettingsPath); p != "" {
		cp := *opts
		cp.SettingsPath = p
		opts = &cp
	}

	logCfg := opts.LogConfig()
	if ro.Quiet && levelBelowWarn(logCfg.Level) {
		logCfg.Level = "warn"
	}
	logSvc, root := logx.New(logCfg)
	log := root.With(logx.String("comp", "runtime"))
	cfgm.SetLogger(root.With(logx.String("comp", "config")))

	r := &Runtime{
		cfgm:    cfgm,
		opts:    opts,
		logs:    logSvc,
		log:     log,
		bus:     eventbus.New(),
		poster:  eventbus.NewPoster(),
		metrics: metrics.New(),
	}
	r.sup = supervisor.New(context.Background(), supervisor.WithLogger(root.With(logx.String("comp", "supervisor"))))

	// History (optional)
	if sc, enabled, err := mapStorageConfig(opts); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		r.history = st
		log.Info("history enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	// Telegram notices (optional). The notifier must be set before Apply
	// starts the remote worker.
	if tc, ok := telegram.ConfigFrom(opts.Telegram); ok {
		sink, err := telegram.New(tc, root.With(logx.String("comp", "telegram")))
		if err != nil {
			log.Warn("telegram disabled", logx.Err(err))
		} else {
			r.tg = sink
			logSvc.SetNotifier(sink)
		}
	}

	r.settings = config.NewFileStore(opts.ResolvedSettingsPath(), root.With(logx.String("comp", "settings")))

	appOpts := []Option{
		WithLogger(root),
		WithObserver(ro.Observer),
		WithPoster(r.poster),
		WithBus(r.bus),
		WithStore(r.settings),
		WithMetrics(r.metrics),
		WithSupervisor(r.sup),
		WithTick(opts.PollEvery()),
	}
	if r.history != nil {
		appOpts = append(appOpts, WithHistory(r.history))
	}
	if r.tg != nil {
		appOpts = append(appOpts, WithEmissionNotifier(r.tg))
	}
	r.app = New(appOpts...)

	logSvc.SetObserver(r.app.LogSink)
	logSvc.Apply(logCfg)

	r.diag = diag.New(diag.ConfigFrom(opts.Diag), root,
		diag.WithStatus(func() any { return r.status() }),
		diag.WithMetrics(r.metrics),
		diag.WithBus(r.bus),
	)
	return r, nil
}

func levelBelowWarn(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warn", "warning", "error", "fatal", "panic", "disabled":
		return false
	}
	return true
}

func (r *Runtime) App() *App                { return r.app }
func (r *Runtime) Logger() logx.Logger      { return r.log }
func (r *Runtime) Options() *config.Options { return r.opts }

// Poster is drained by the foreground goroutine (see Run).
func (r *Runtime) Poster() *eventbus.Poster { return r.poster }

type runtimeStatus struct {
	Status
	Supervisor supervisor.Snapshot `json:"supervisor"`
}

func (r *Runtime) status() any {
	return runtimeStatus{Status: r.app.Status(), Supervisor: r.sup.Snapshot()}
}

// Start launches the background services and connects to JS8Call. It does
// not block; call Run on the foreground goroutine afterwards.
func (r *Runtime) Start(ctx context.Context) {
	r.diag.Start(r.sup.Context())

	if err := r.app.Reconnect(ctx); err != nil {
		r.log.Warn("JS8Call not connected at startup; emissions would be simulated", logx.Err(err))
	}

	if r.cfgm.Path() != "" {
		r.sup.GoRestart("config.watch", r.cfgm.Watch)
		r.sup.Go0("config.reload", r.reloadLoop)
	}
	if r.opts.WatchSettings {
		r.sup.GoRestart("settings.watch", func(c context.Context) error {
			return config.WatchSettings(c, r.settings, r.log.With(logx.String("comp", "settings")), func(s config.Snapshot) {
				r.app.ReloadSettings(c, s)
			})
		})
	}

	events, unsub := r.bus.Subscribe(128)
	r.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if e.Type == eventbus.TypeLog {
					continue
				}
				r.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})
}

// Run drains observer callbacks on the calling goroutine until ctx ends.
func (r *Runtime) Run(ctx context.Context) error {
	err := r.poster.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Close stops everything and saves the settings.
func (r *Runtime) Close(ctx context.Context) error {
	err := r.app.Close(ctx)
	r.diag.Stop(ctx)
	if serr := r.sup.Stop(ctx); serr != nil && err == nil && !errors.Is(serr, context.Canceled) {
		err = serr
	}
	r.poster.Close()
	r.poster.Drain()
	_ = r.logs.Close()
	return err
}

func (r *Runtime) reloadLoop(ctx context.Context) {
	sub := r.cfgm.Subscribe(8)
	defer r.cfgm.Unsubscribe(sub)
	last := r.opts
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest options.
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					drained = true
				}
			}
			r.applyOptions(last, next)
			last = next
		}
	}
}

func (r *Runtime) applyOptions(prev, next *config.Options) {
	changed, attrs := config.SummarizeOptionsChange(prev, next)
	if len(changed) == 0 {
		r.log.Debug("options reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)
	r.log.Info("options reloaded", fields...)

	for _, section := range changed {
		switch section {
		case "logging":
			r.logs.Apply(next.LogConfig())
		case "diag":
			r.diag.Reconfigure(r.sup.Context(), diag.ConfigFrom(next.Diag))
		case "poll_interval", "storage", "telegram", "settings":
			r.log.Warn("option change takes effect after restart", logx.String("section", section))
		}
	}
}
