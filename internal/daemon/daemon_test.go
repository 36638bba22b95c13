package daemon

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/honesthomesales/TODO/internal/appstate"
	"github.com/honesthomesales/TODO/internal/connectivity"
	"github.com/honesthomesales/TODO/internal/dashboard"
	"github.com/honesthomesales/TODO/internal/syncqueue"
	"github.com/honesthomesales/TODO/internal/tasks"
	"github.com/honesthomesales/TODO/internal/testutil"
)

type parts struct {
	svc     *tasks.Service
	queue   *syncqueue.Queue
	monitor *connectivity.Monitor
	prober  *connectivity.Prober
	remote  *testutil.FakeRemote
	marker  string
}

func newParts(t *testing.T, online bool) *parts {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	m := testutil.OpenMirror(t, logger)
	st := appstate.New(nil, nil, nil)
	fr := testutil.NewFakeRemote()
	mon := connectivity.New(online)

	q, err := syncqueue.New(st, m, fr, logger)
	if err != nil {
		t.Fatal(err)
	}
	q.Attach(context.Background(), mon)

	svc, err := tasks.New(tasks.Config{}, st, m, fr, mon, q, logger)
	if err != nil {
		t.Fatal(err)
	}

	marker := filepath.Join(t.TempDir(), connectivity.MarkerName)
	pr, err := connectivity.NewProber(mon, fr, connectivity.ProberConfig{
		Interval:   20 * time.Millisecond,
		Timeout:    time.Second,
		MarkerPath: marker,
	}, logger)
	if err != nil {
		t.Fatal(err)
	}
	return &parts{svc: svc, queue: q, monitor: mon, prober: pr, remote: fr, marker: marker}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewValidation(t *testing.T) {
	p := newParts(t, true)
	if _, err := New(nil, p.queue, p.monitor, p.prober); err == nil {
		t.Error("expected error for nil service")
	}
	if _, err := New(p.svc, nil, p.monitor, p.prober); err == nil {
		t.Error("expected error for nil queue")
	}
	if _, err := New(p.svc, p.queue, nil, p.prober); err == nil {
		t.Error("expected error for nil monitor")
	}
	if _, err := New(p.svc, p.queue, p.monitor, nil); err == nil {
		t.Error("expected error for nil prober")
	}
	if _, err := NewWithConfig(p.svc, p.queue, p.monitor, p.prober, &Config{SyncInterval: -time.Second}); err == nil {
		t.Error("expected error for negative sync interval")
	}
}

func TestDaemonLifecycle(t *testing.T) {
	p := newParts(t, false)
	logger, _ := testutil.NewLogger(t)

	// Work done before the daemon starts is replayed once the first probe
	// succeeds.
	if _, err := p.svc.Add(context.Background(), tasks.Draft{Text: "written offline"}); err != nil {
		t.Fatal(err)
	}

	d, err := NewWithConfig(p.svc, p.queue, p.monitor, p.prober, &Config{
		MarkerPath: p.marker,
		Dashboard:  &dashboard.Config{Port: 0},
		Logger:     logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	select {
	case <-d.Ready():
	case err := <-done:
		t.Fatalf("Start() returned early: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not become ready")
	}

	eventually(t, "reconnect replay", func() bool {
		return p.monitor.Reachable() && len(p.svc.Pending()) == 0 && len(p.remote.Snapshot()) == 1
	})

	resp, err := http.Get("http://" + d.DashboardAddr() + "/health")
	if err != nil {
		t.Fatalf("dashboard health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	if err := connectivity.SetMarker(p.marker, true); err != nil {
		t.Fatal(err)
	}
	eventually(t, "offline marker to take effect", func() bool { return !p.monitor.Reachable() })

	if err := connectivity.SetMarker(p.marker, false); err != nil {
		t.Fatal(err)
	}
	eventually(t, "reconnect after marker removal", p.monitor.Reachable)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	if d.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
	if err := d.Stop(); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
}

func TestSyncOnceRetriesRequeued(t *testing.T) {
	p := newParts(t, true)
	ctx := context.Background()

	p.remote.FailOp("InsertTask", testutil.ErrInjected)
	if _, err := p.svc.Add(ctx, tasks.Draft{Text: "flaky"}); err != nil {
		t.Fatal(err)
	}
	if len(p.svc.Pending()) != 1 {
		t.Fatal("expected the failed write to be queued")
	}

	d, err := New(p.svc, p.queue, p.monitor, p.prober)
	if err != nil {
		t.Fatal(err)
	}

	d.SyncOnce(ctx)
	if len(p.svc.Pending()) != 1 {
		t.Error("action should stay queued while the remote keeps failing")
	}

	p.remote.FailOp("InsertTask", nil)
	d.SyncOnce(ctx)
	if n := len(p.svc.Pending()); n != 0 {
		t.Errorf("pending after sync = %d", n)
	}

	p.monitor.Set(false)
	p.remote.ResetCalls()
	d.SyncOnce(ctx)
	if n := len(p.remote.Calls()); n != 0 {
		t.Errorf("offline SyncOnce made %d remote calls", n)
	}
}
