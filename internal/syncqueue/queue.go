package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/honesthomesales/TODO/internal/appstate"
	"github.com/honesthomesales/TODO/internal/connectivity"
	"github.com/honesthomesales/TODO/internal/store/remote"
	"github.com/honesthomesales/TODO/internal/types"
)

const tracerName = "github.com/honesthomesales/TODO/internal/syncqueue"

// Persister is the part of the local mirror the queue writes to.
type Persister interface {
	SaveTasks(ctx context.Context, tasks []types.Task) error
	SaveQueue(ctx context.Context, actions []types.PendingAction) error
}

// Config controls replay policy.
type Config struct {
	// RequeueFailed keeps failed actions for the next pass. When false a
	// failed action is dropped after its one attempt.
	RequeueFailed bool

	// MaxAttempts drops a kept action once it has failed this many times.
	// Zero means no limit. Ignored when RequeueFailed is false.
	MaxAttempts int

	// TracerProvider for replay spans. Nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns the default replay policy: keep failed actions
// forever.
func DefaultConfig() Config {
	return Config{RequeueFailed: true}
}

// Result summarizes one replay pass.
type Result struct {
	Attempted int           `json:"attempted"`
	Applied   int           `json:"applied"`
	Requeued  int           `json:"requeued"`
	Dropped   int           `json:"dropped"`
	Remaining int           `json:"remaining"`
	Refreshed bool          `json:"refreshed"`
	Duration  time.Duration `json:"duration"`
}

// Empty reports whether the pass had nothing to do.
func (r Result) Empty() bool {
	return r.Attempted == 0 && r.Requeued == 0 && r.Dropped == 0
}

// Queue is the pending action queue.
type Queue struct {
	config Config
	state  *appstate.State
	mirror Persister
	remote remote.TaskStore
	log    *log.Entry
	tracer trace.Tracer

	obsMu     sync.RWMutex
	observers []Observer
}

// New creates a queue with DefaultConfig.
func New(state *appstate.State, mirror Persister, store remote.TaskStore, logger *log.Logger) (*Queue, error) {
	return NewWithConfig(DefaultConfig(), state, mirror, store, logger)
}

// NewWithConfig creates a queue with a custom policy.
// If logger is nil the standard logger is used.
func NewWithConfig(config Config, state *appstate.State, mirror Persister, store remote.TaskStore, logger *log.Logger) (*Queue, error) {
	if state == nil {
		return nil, errors.New("state cannot be nil")
	}
	if mirror == nil {
		return nil, errors.New("mirror cannot be nil")
	}
	if store == nil {
		return nil, errors.New("remote store cannot be nil")
	}
	if config.MaxAttempts < 0 {
		return nil, fmt.Errorf("max attempts cannot be negative, got %d", config.MaxAttempts)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Queue{
		config: config,
		state:  state,
		mirror: mirror,
		remote: store,
		log:    logger.WithField("component", "syncqueue"),
		tracer: tp.Tracer(tracerName),
	}, nil
}

// Config returns the queue's policy.
func (q *Queue) Config() Config {
	return q.config
}

// Enqueue appends a to the queue and persists the queue. It must be called
// from inside state.Do with the callback's tx. A persistence failure is
// logged; the action stays queued in memory.
func (q *Queue) Enqueue(ctx context.Context, tx *appstate.Tx, a types.PendingAction) {
	if a.QueuedAt.IsZero() {
		a.QueuedAt = time.Now().UTC()
	}
	pending := append(tx.Pending(), a)
	tx.SetPending(pending)

	q.log.WithFields(log.Fields{"action": a.String(), "queue_length": len(pending)}).Debug("queued action")
	_ = q.mirror.SaveQueue(ctx, pending)

	q.notifyActionState(a, StateQueued, nil)
	q.notifyQueueChanged(pending)
}

// Pending returns a copy of the queue in enqueue order.
func (q *Queue) Pending() []types.PendingAction {
	var out []types.PendingAction
	q.state.Do(func(tx *appstate.Tx) { out = tx.Pending() })
	return out
}

// Len returns the queue length.
func (q *Queue) Len() int {
	var n int
	q.state.Do(func(tx *appstate.Tx) { n = tx.PendingLen() })
	return n
}

// Clear empties the queue without replaying it and returns how many
// actions were discarded.
func (q *Queue) Clear(ctx context.Context) int {
	var n int
	q.state.Do(func(tx *appstate.Tx) {
		n = tx.PendingLen()
		if n == 0 {
			return
		}
		tx.SetPending(nil)
		_ = q.mirror.SaveQueue(ctx, nil)
		q.notifyQueueChanged(nil)
	})
	if n > 0 {
		q.log.WithField("discarded", n).Warn("cleared pending actions without replaying them")
	}
	return n
}

// Replay runs one pass over the queue. See the package documentation for
// the policy. The returned error is non-nil only when the context was
// cancelled mid-pass or the final refresh failed; individual action
// failures are handled by the policy and reported in Result.
func (q *Queue) Replay(ctx context.Context) (Result, error) {
	var (
		res Result
		err error
	)
	q.state.Do(func(tx *appstate.Tx) {
		res, err = q.replayLocked(ctx, tx)
	})
	q.notifyReplayComplete(res, err)
	return res, err
}

func (q *Queue) replayLocked(ctx context.Context, tx *appstate.Tx) (Result, error) {
	start := time.Now()
	pending := tx.Pending()
	if len(pending) == 0 {
		return Result{}, nil
	}

	ctx, span := q.tracer.Start(ctx, "syncqueue.replay",
		trace.WithAttributes(attribute.Int("queue.length", len(pending))))
	defer span.End()

	logger := q.log.WithField("queue_length", len(pending))
	logger.Info("replaying pending actions")

	var (
		res       Result
		remaining []types.PendingAction
		held      = make(map[string]bool)
		cancelled error
	)

	for i, a := range pending {
		if err := ctx.Err(); err != nil {
			remaining = append(remaining, pending[i:]...)
			cancelled = err
			break
		}

		if held[a.TaskID] {
			remaining = append(remaining, a)
			res.Requeued++
			q.notifyActionState(a, StateRequeued, nil)
			continue
		}

		res.Attempted++
		q.notifyActionState(a, StateReplaying, nil)
		err := q.Send(ctx, a)
		if err == nil {
			res.Applied++
			q.notifyActionState(a, StateApplied, nil)
			continue
		}

		a.Attempts++
		a.LastError = err.Error()
		entry := logger.WithError(err).WithFields(log.Fields{"action": a.String(), "attempts": a.Attempts})

		if q.shouldDrop(a) {
			entry.Error("dropping pending action")
			res.Dropped++
			q.notifyActionState(a, StateDropped, err)
			continue
		}

		entry.Warn("replay failed, keeping action for the next pass")
		remaining = append(remaining, a)
		held[a.TaskID] = true
		res.Requeued++
		q.notifyActionState(a, StateRequeued, err)
	}

	tx.SetPending(remaining)
	_ = q.mirror.SaveQueue(context.WithoutCancel(ctx), remaining)
	q.notifyQueueChanged(tx.Pending())

	res.Remaining = len(remaining)
	span.SetAttributes(
		attribute.Int("replay.applied", res.Applied),
		attribute.Int("replay.requeued", res.Requeued),
		attribute.Int("replay.dropped", res.Dropped),
	)

	if cancelled != nil {
		res.Duration = time.Since(start)
		span.SetStatus(codes.Error, "cancelled")
		return res, fmt.Errorf("replay interrupted: %w", cancelled)
	}

	if err := q.refreshLocked(ctx, tx); err != nil {
		res.Duration = time.Since(start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return res, err
	}
	res.Refreshed = true
	res.Duration = time.Since(start)

	logger.WithFields(log.Fields{
		"applied":   res.Applied,
		"requeued":  res.Requeued,
		"dropped":   res.Dropped,
		"remaining": res.Remaining,
		"duration":  res.Duration,
	}).Info("replay complete")

	return res, nil
}

func (q *Queue) shouldDrop(a types.PendingAction) bool {
	if !q.config.RequeueFailed {
		return true
	}
	return q.config.MaxAttempts > 0 && a.Attempts >= q.config.MaxAttempts
}

// Send issues the remote call for a without touching the queue. The
// facade uses it for direct writes so both paths share one dispatch.
func (q *Queue) Send(ctx context.Context, a types.PendingAction) error {
	ctx, span := q.tracer.Start(ctx, "syncqueue.action", trace.WithAttributes(
		attribute.String("action.kind", string(a.Kind)),
		attribute.String("task.id", a.TaskID),
		attribute.Int("action.attempts", a.Attempts),
	))
	defer span.End()

	err := q.dispatch(ctx, a)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (q *Queue) dispatch(ctx context.Context, a types.PendingAction) error {
	if err := a.Validate(); err != nil {
		return err
	}
	switch a.Kind {
	case types.ActionAdd:
		return q.remote.InsertTask(ctx, *a.Task)
	case types.ActionUpdate, types.ActionToggle:
		return q.remote.UpdateTask(ctx, a.TaskID, *a.Patch)
	case types.ActionDelete:
		return q.remote.DeleteTask(ctx, a.TaskID)
	}
	return fmt.Errorf("%w: unknown action kind %q", types.ErrInvalid, a.Kind)
}

// Refresh replaces the task list with the remote one, re-applying
// anything still pending. On failure state and mirror are left as is.
func (q *Queue) Refresh(ctx context.Context) error {
	var err error
	q.state.Do(func(tx *appstate.Tx) {
		err = q.refreshLocked(ctx, tx)
	})
	return err
}

// RefreshTx is Refresh for callers already inside state.Do.
func (q *Queue) RefreshTx(ctx context.Context, tx *appstate.Tx) error {
	return q.refreshLocked(ctx, tx)
}

func (q *Queue) refreshLocked(ctx context.Context, tx *appstate.Tx) error {
	fresh, err := q.remote.ListTasks(ctx)
	if err != nil {
		q.log.WithError(err).Error("failed to refresh tasks from remote store")
		return fmt.Errorf("failed to refresh tasks: %w", err)
	}

	tasks := types.ApplyAll(fresh, tx.Pending())
	tx.SetTasks(tasks)
	_ = q.mirror.SaveTasks(ctx, tasks)
	q.notifyTasksRefreshed(tasks)
	return nil
}

// Attach replays on every reconnect transition of monitor. The replay runs
// on the goroutine that reported the transition. It returns the
// unsubscribe function.
func (q *Queue) Attach(ctx context.Context, monitor *connectivity.Monitor) (unsubscribe func()) {
	return monitor.Subscribe(func(tr connectivity.Transition) {
		if !tr.Reconnected() {
			return
		}
		if _, err := q.Replay(ctx); err != nil {
			q.log.WithError(err).Warn("replay after reconnect did not complete")
		}
	})
}
