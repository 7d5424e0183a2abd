// Package app assembles the tracking pipeline: config, logging, the run
// loop, the tracker registry, the batching dispatcher, the notification
// store, the scenario simulator, and the console presenter.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"rendertrace/internal/config"
	"rendertrace/internal/dispatch"
	"rendertrace/internal/eventbus"
	"rendertrace/internal/notices"
	"rendertrace/internal/present"
	"rendertrace/internal/runtime/supervisor"
	"rendertrace/internal/sched"
	"rendertrace/internal/simulate"
	"rendertrace/internal/track"
	logx "rendertrace/pkg/logx"
)

const defaultQueueSize = 256

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	loop  *sched.Loop
	gate  *dispatch.Gate
	store *notices.Store
	disp  *dispatch.Dispatcher
	reg   *track.Registry
	sim   *simulate.Service
	pres  *present.Service

	presEnabled bool
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		// A missing file is not fatal; the built-in defaults run a
		// usable demo. Anything else (syntax, validation) is.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
		cfgm.Commit(cfg)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	dispCfg, err := mapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	storeCfg, err := mapStoreConfig(cfg)
	if err != nil {
		return nil, err
	}
	trackCfg := track.Config{HistoryDepth: cfg.Track.HistoryDepth}

	queueSize := cfg.Track.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	loop := sched.New(queueSize, log.With(logx.String("comp", "loop")))
	store := notices.NewStore(loop, bus, storeCfg, log.With(logx.String("comp", "notices")))
	gate := dispatch.NewGate()
	disp := dispatch.New(loop, gate, store, dispCfg, log.With(logx.String("comp", "dispatch")))
	reg := track.NewRegistry(loop, disp, bus, trackCfg, log.With(logx.String("comp", "track")))

	sim := simulate.New(reg, gate, mapSimulateConfig(cfg), log.With(logx.String("comp", "simulate")))

	presCfg := mapPresenterConfig(cfg)
	pres := present.New(bus, presCfg, log.With(logx.String("comp", "present")))

	return &App{
		cfgPath:     cfgPath,
		cfgm:        cfgm,
		log:         log,
		logs:        logSvc,
		bus:         bus,
		loop:        loop,
		gate:        gate,
		store:       store,
		disp:        disp,
		reg:         reg,
		sim:         sim,
		pres:        pres,
		presEnabled: presCfg.Enabled,
	}, nil
}

// Registry exposes the tracker registry so embedding code can feed
// invocations in directly instead of going through scenarios.
func (a *App) Registry() *track.Registry { return a.reg }

func (a *App) Store() *notices.Store { return a.store }

// Done is closed when the app context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// Transactional hot reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapDispatchConfig(cfg); err != nil {
			return err
		}
		if _, err := mapStoreConfig(cfg); err != nil {
			return err
		}
		return a.sim.ValidateEntries(mapSimulateConfig(cfg).Entries)
	})

	a.loop.Start()
	a.sim.Start()
	if a.presEnabled {
		a.pres.Start(a.sup.Context())
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	a.logs.Apply(logx.Config{
		Level:   newCfg.Logging.Level,
		Console: newCfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: newCfg.Logging.File.Enabled,
			Path:    newCfg.Logging.File.Path,
		},
	})

	// The validator already vetted these; a failure here means the config
	// raced past it, so keep the previous settings.
	if dc, err := mapDispatchConfig(newCfg); err != nil {
		a.log.Warn("invalid track config; keeping previous", logx.Err(err))
	} else {
		a.disp.Apply(dc)
	}
	if sc, err := mapStoreConfig(newCfg); err != nil {
		a.log.Warn("invalid track config; keeping previous", logx.Err(err))
	} else {
		a.store.Apply(sc)
	}
	a.reg.Apply(track.Config{HistoryDepth: newCfg.Track.HistoryDepth})

	if oldCfg != nil && newCfg.Track.QueueSize != oldCfg.Track.QueueSize {
		a.log.Warn("track.queue_size changed; restart required for changes to take effect")
	}

	a.sim.Apply(mapSimulateConfig(newCfg))

	// Presenter enable/disable is a start/stop, the rest is live.
	pc := mapPresenterConfig(newCfg)
	a.pres.Apply(pc)
	if a.presEnabled && !pc.Enabled {
		a.log.Info("presenter disabled via config")
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.pres.Stop(stopCtx)
		cancel()
	} else if !a.presEnabled && pc.Enabled {
		a.log.Info("presenter enabled via config")
		a.pres.Start(ctx)
	}
	a.presEnabled = pc.Enabled

	a.log.Info("config reloaded", logx.String("changed", strings.Join(sections, ",")))
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	// Producers first, then the loop so queued work drains, then the
	// remaining background goroutines.
	a.sim.Stop(ctx)
	a.pres.Stop(ctx)
	a.loop.Stop(ctx)

	err := a.sup.Wait(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("shutdown finished with error", logx.Err(err))
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown timed out: %w", err)
	}
	return nil
}

// ---- config mapping ----

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	window, err := config.DurationOrDefault("track.batch_window", cfg.Track.BatchWindow, dispatch.DefaultWindow)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{Window: window}, nil
}

func mapStoreConfig(cfg *config.Config) (notices.Config, error) {
	ttl, err := config.OptionalDuration("track.notification_ttl", cfg.Track.NotificationTTL, notices.DefaultTTL)
	if err != nil {
		return notices.Config{}, err
	}
	return notices.Config{
		MaxDepth: cfg.Track.MaxNotifications,
		TTL:      ttl,
	}, nil
}

func mapSimulateConfig(cfg *config.Config) simulate.Config {
	entries := make([]simulate.Entry, 0, len(cfg.Scenarios))
	for _, sc := range cfg.Scenarios {
		entries = append(entries, simulate.Entry{Name: sc.Name, Schedule: sc.Schedule})
	}
	return simulate.Config{Entries: entries}
}

// mapPresenterConfig defaults to enabled: the presenter is the only
// visible output of the demo binary, so opting out is the explicit case.
func mapPresenterConfig(cfg *config.Config) present.Config {
	pc := present.Config{Enabled: true}
	if cfg.Presenter == nil {
		return pc
	}
	if cfg.Presenter.Enabled != nil {
		pc.Enabled = *cfg.Presenter.Enabled
	}
	pc.RatePerSec = cfg.Presenter.RatePerSec
	pc.ShowBadges = cfg.Presenter.ShowBadges
	return pc
}
