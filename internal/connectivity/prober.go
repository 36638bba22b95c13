package connectivity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// MarkerName is the file that forces offline mode while present.
const MarkerName = "OFFLINE"

// Pinger is anything that can check the remote store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProberConfig controls probing.
type ProberConfig struct {
	// Interval between probes in Run.
	Interval time.Duration
	// Timeout applied to each ping.
	Timeout time.Duration
	// MarkerPath is the offline marker file. Empty disables the check.
	MarkerPath string
}

// DefaultProberConfig returns sensible defaults.
func DefaultProberConfig() ProberConfig {
	return ProberConfig{
		Interval: 30 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Prober pings the remote store and feeds the result into a Monitor.
type Prober struct {
	monitor *Monitor
	pinger  Pinger
	config  ProberConfig
	log     *log.Entry
	kick    chan struct{}
}

// NewProber creates a prober. If logger is nil the standard logger is used.
func NewProber(monitor *Monitor, pinger Pinger, config ProberConfig, logger *log.Logger) (*Prober, error) {
	if monitor == nil {
		return nil, errors.New("monitor cannot be nil")
	}
	if pinger == nil {
		return nil, errors.New("pinger cannot be nil")
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("probe interval must be positive, got %v", config.Interval)
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultProberConfig().Timeout
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Prober{
		monitor: monitor,
		pinger:  pinger,
		config:  config,
		log:     logger.WithField("component", "prober"),
		kick:    make(chan struct{}, 1),
	}, nil
}

// ProbeOnce pings the remote store once and updates the monitor.
// While the offline marker exists the ping is skipped and the monitor is
// set unreachable. It returns the resulting state.
func (p *Prober) ProbeOnce(ctx context.Context) bool {
	if MarkerPresent(p.config.MarkerPath) {
		p.log.Debug("offline marker present, skipping probe")
		p.monitor.Set(false)
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	err := p.pinger.Ping(pingCtx)
	if err != nil {
		p.log.WithError(err).Debug("remote store probe failed")
	}
	reachable := err == nil
	if p.monitor.Set(reachable) {
		p.log.WithField("reachable", reachable).Info("connectivity changed")
	}
	return reachable
}

// Kick asks a running prober to probe now instead of waiting for the
// next tick.
func (p *Prober) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run probes immediately and then on every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.ProbeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.ProbeOnce(ctx)
		case <-p.kick:
			p.ProbeOnce(ctx)
		}
	}
}

// MarkerPresent reports whether the offline marker file exists.
func MarkerPresent(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// SetMarker creates or removes the offline marker file.
func SetMarker(path string, offline bool) error {
	if path == "" {
		return errors.New("marker path is empty")
	}
	if !offline {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove offline marker: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(path, []byte(stamp), 0644); err != nil {
		return fmt.Errorf("failed to write offline marker: %w", err)
	}
	return nil
}
