// Package daemon runs the long-lived sync process.
//
// The daemon:
//  1. Probes the remote store on an interval and feeds the connectivity monitor
//  2. Watches the offline marker so `todo offline on|off` takes effect at once
//  3. Periodically syncs: retries queued actions, or refreshes when the queue is empty
//  4. Optionally serves the dashboard
//  5. Shuts down gracefully when its context is cancelled
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/connectivity"
	"github.com/honesthomesales/TODO/internal/dashboard"
	"github.com/honesthomesales/TODO/internal/syncqueue"
	"github.com/honesthomesales/TODO/internal/tasks"
	"github.com/honesthomesales/TODO/internal/types"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often queued actions are retried while online.
	// Zero disables periodic sync; reconnects still replay.
	SyncInterval time.Duration

	// MarkerPath is the offline marker file. Empty disables watching.
	MarkerPath string

	// Dashboard, if non-nil, starts the dashboard with this config.
	Dashboard *dashboard.Config

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval: time.Minute,
		Logger:       log.StandardLogger(),
	}
}

// Daemon ties the prober, marker watcher, periodic sync and dashboard to
// one lifecycle.
type Daemon struct {
	svc     *tasks.Service
	queue   *syncqueue.Queue
	monitor *connectivity.Monitor
	prober  *connectivity.Prober
	config  *Config
	log     *log.Entry

	marker    *connectivity.MarkerWatcher
	dashboard *dashboard.Server
	unsub     []func()

	ready   chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped sync.Once
}

// New creates a daemon with DefaultConfig.
func New(svc *tasks.Service, queue *syncqueue.Queue, monitor *connectivity.Monitor, prober *connectivity.Prober) (*Daemon, error) {
	return NewWithConfig(svc, queue, monitor, prober, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(svc *tasks.Service, queue *syncqueue.Queue, monitor *connectivity.Monitor, prober *connectivity.Prober, config *Config) (*Daemon, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if monitor == nil {
		return nil, fmt.Errorf("monitor cannot be nil")
	}
	if prober == nil {
		return nil, fmt.Errorf("prober cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.StandardLogger()
	}
	if config.SyncInterval < 0 {
		return nil, fmt.Errorf("sync interval cannot be negative, got %v", config.SyncInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		svc:     svc,
		queue:   queue,
		monitor: monitor,
		prober:  prober,
		config:  config,
		log:     config.Logger.WithField("component", "daemon"),
		ready:   make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start runs the daemon. It blocks until ctx is cancelled or Stop is
// called.
func (d *Daemon) Start(ctx context.Context) error {
	d.log.Info("starting daemon")

	if d.config.Dashboard != nil {
		if err := d.startDashboard(); err != nil {
			d.cancel()
			return err
		}
	}

	if d.config.MarkerPath != "" {
		mw, err := connectivity.NewMarkerWatcher(d.config.MarkerPath, d.monitor, d.config.Logger)
		if err != nil {
			_ = d.Stop()
			return err
		}
		mw.OnChange = func(present bool) {
			d.log.WithField("offline_marker", present).Info("offline marker changed")
			d.prober.Kick()
		}
		if err := mw.Start(); err != nil {
			_ = d.Stop()
			return fmt.Errorf("failed to watch offline marker: %w", err)
		}
		d.marker = mw
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.prober.Run(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.WithError(err).Error("prober stopped")
		}
	}()

	if d.config.SyncInterval > 0 {
		d.wg.Add(1)
		go d.syncLoop()
	}
	close(d.ready)

	select {
	case <-ctx.Done():
		d.log.Info("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

func (d *Daemon) startDashboard() error {
	cfg := *d.config.Dashboard
	if cfg.Logger == nil {
		cfg.Logger = d.config.Logger
	}
	srv := dashboard.NewServer(&cfg, d.svc)
	h := dashboard.NewHandler(srv, cfg.Logger)
	h.Reset(d.svc.Tasks(), d.svc.Pending(), d.monitor.Reachable())

	d.queue.AddObserver(h)
	d.svc.OnChange(h.OnTaskChange)
	d.svc.OnReload(h.OnReload)
	d.unsub = append(d.unsub, d.monitor.Subscribe(h.OnConnectivity))

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start dashboard: %w", err)
	}
	d.dashboard = srv
	return nil
}

// syncLoop retries queued actions while online. Reconnect replays are
// handled by the queue's monitor subscription; this catches actions that
// were requeued while the connection stayed up.
func (d *Daemon) syncLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.SyncOnce(d.ctx)
		}
	}
}

// SyncOnce runs one periodic sync step. It does nothing while offline.
func (d *Daemon) SyncOnce(ctx context.Context) {
	if !d.monitor.Reachable() {
		return
	}
	res, err := d.svc.Sync(ctx)
	switch {
	case errors.Is(err, types.ErrOffline), errors.Is(err, context.Canceled):
	case err != nil:
		d.log.WithError(err).Warn("periodic sync failed")
	case !res.Empty():
		d.log.WithFields(log.Fields{"applied": res.Applied, "remaining": res.Remaining}).Info("periodic sync replayed queued actions")
	}
}

// Stop gracefully shuts down the daemon. It is safe to call more than once.
func (d *Daemon) Stop() error {
	var err error
	d.stopped.Do(func() {
		d.log.Info("stopping daemon")
		d.cancel()

		for _, fn := range d.unsub {
			fn()
		}
		if d.marker != nil {
			if e := d.marker.Stop(); e != nil {
				d.log.WithError(e).Warn("error stopping marker watcher")
			}
		}
		if d.dashboard != nil {
			err = d.dashboard.Stop()
		}

		d.wg.Wait()
		d.log.Info("daemon stopped")
	})
	return err
}

// Ready is closed once Start has finished starting its components.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// DashboardAddr returns the dashboard's listening address, or "" when the
// dashboard is not running. Call it after Ready is closed.
func (d *Daemon) DashboardAddr() string {
	if d.dashboard == nil {
		return ""
	}
	return d.dashboard.Addr()
}

// IsRunning reports whether the daemon has not been stopped.
func (d *Daemon) IsRunning() bool {
	return d.ctx.Err() == nil
}
