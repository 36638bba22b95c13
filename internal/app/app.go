// Package app wires the stores, the connectivity monitor, the sync queue
// and the task service together from a config.
//
// Startup order matters: app state is backed by the mirror before the
// monitor goes live, and the queue is attached to the monitor before the
// first probe, so a reconnect found at startup replays offline work.
package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/appstate"
	"github.com/honesthomesales/TODO/internal/config"
	"github.com/honesthomesales/TODO/internal/connectivity"
	"github.com/honesthomesales/TODO/internal/daemon"
	"github.com/honesthomesales/TODO/internal/dashboard"
	"github.com/honesthomesales/TODO/internal/notify"
	"github.com/honesthomesales/TODO/internal/store/mirror"
	"github.com/honesthomesales/TODO/internal/store/remote"
	"github.com/honesthomesales/TODO/internal/syncqueue"
	"github.com/honesthomesales/TODO/internal/tasks"
)

// App holds every long-lived component.
type App struct {
	Config   *config.Config
	Log      *log.Logger
	Mirror   *mirror.Store
	Remote   remote.Store
	State    *appstate.State
	Monitor  *connectivity.Monitor
	Queue    *syncqueue.Queue
	Prober   *connectivity.Prober
	Notifier *notify.Dispatcher
	Tasks    *tasks.Service

	closeRemote func() error
	detach      func()
}

// New opens the mirror and the remote store named by cfg and wires the
// rest. Nothing touches the network until Connect or a daemon runs.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	db, err := remote.Open(cfg.RemoteDSN(), cfg.Remote.AuthToken, logger)
	if err != nil {
		return nil, err
	}
	a, err := NewWithStore(cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.closeRemote = db.Close
	return a, nil
}

// NewWithStore wires the app around an already open remote store. The
// caller keeps ownership of store.
func NewWithStore(cfg *config.Config, logger *log.Logger, store remote.Store) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("remote store cannot be nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	m, err := mirror.Open(cfg.MirrorPath(), logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	// The mirror may be shared with a running daemon; state is loaded from
	// it on first use and reloaded whenever another process saves.
	state := appstate.New(nil, nil, nil)
	state.Share(m, logger)
	monitor := connectivity.New(false)

	queue, err := syncqueue.NewWithConfig(syncqueue.Config{
		RequeueFailed: cfg.Replay.RequeueFailed,
		MaxAttempts:   cfg.Replay.MaxAttempts,
	}, state, m, store, logger)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	detach := queue.Attach(ctx, monitor)

	prober, err := connectivity.NewProber(monitor, store, connectivity.ProberConfig{
		Interval:   cfg.Probe.Interval.Duration(),
		Timeout:    cfg.Probe.Timeout.Duration(),
		MarkerPath: cfg.MarkerPath(),
	}, logger)
	if err != nil {
		detach()
		_ = m.Close()
		return nil, err
	}

	var notifier *notify.Dispatcher
	svcConfig := tasks.Config{CurrentUser: cfg.CurrentUser}
	if cfg.Notify.Enabled {
		notifier = notify.New(notify.Config{
			Endpoint:    cfg.Notify.Endpoint,
			AccessToken: cfg.Notify.AccessToken,
			Timeout:     cfg.Notify.Timeout.Duration(),
		}, logger)
		if notifier.Enabled() {
			svcConfig.Notifier = notifier
		}
	}

	svc, err := tasks.New(svcConfig, state, m, store, monitor, queue, logger)
	if err != nil {
		detach()
		_ = m.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Log:      logger,
		Mirror:   m,
		Remote:   store,
		State:    state,
		Monitor:  monitor,
		Queue:    queue,
		Prober:   prober,
		Notifier: notifier,
		Tasks:    svc,
		detach:   detach,
	}, nil
}

// Connect probes the remote store once. A successful probe is a reconnect,
// so queued actions are replayed before Connect returns. It reports
// whether the store is reachable.
func (a *App) Connect(ctx context.Context) bool {
	return a.Prober.ProbeOnce(ctx)
}

// Daemon builds the long-running process around this app. A nil dash
// runs without the dashboard.
func (a *App) Daemon(dash *dashboard.Config) (*daemon.Daemon, error) {
	return daemon.NewWithConfig(a.Tasks, a.Queue, a.Monitor, a.Prober, &daemon.Config{
		SyncInterval: a.Config.Daemon.SyncInterval.Duration(),
		MarkerPath:   a.Config.MarkerPath(),
		Dashboard:    dash,
		Logger:       a.Log,
	})
}

// DashboardConfig is the configured dashboard address.
func (a *App) DashboardConfig() *dashboard.Config {
	return &dashboard.Config{
		Host:   a.Config.Dashboard.Host,
		Port:   a.Config.Dashboard.Port,
		Logger: a.Log,
	}
}

// Close waits for in-flight notifications and closes both stores.
func (a *App) Close() error {
	if a.detach != nil {
		a.detach()
	}
	if a.Notifier != nil {
		a.Notifier.Wait()
	}
	var errs []error
	if err := a.Mirror.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.closeRemote != nil {
		if err := a.closeRemote(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
