package dashboard

import (
	"slices"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/appstate"
	"github.com/honesthomesales/TODO/internal/connectivity"
	"github.com/honesthomesales/TODO/internal/syncqueue"
	"github.com/honesthomesales/TODO/internal/tasks"
	"github.com/honesthomesales/TODO/internal/types"
	"github.com/honesthomesales/TODO/internal/views"
)

// TaskUpdateData contains task change information
type TaskUpdateData struct {
	TaskID   string `json:"task_id"`
	Action   string `json:"action"` // created, updated, toggled, deleted
	Status   string `json:"status,omitempty"`
	Text     string `json:"text,omitempty"`
	Priority string `json:"priority,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Queued   bool   `json:"queued"`
}

// QueueUpdateData describes the pending queue.
type QueueUpdateData struct {
	Length  int      `json:"length"`
	Actions []string `json:"actions"`
}

// ActionStateData reports one action's replay state.
type ActionStateData struct {
	TaskID   string `json:"task_id"`
	Kind     string `json:"kind"`
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// SyncCompleteData contains replay pass information
type SyncCompleteData struct {
	syncqueue.Result
	Error string `json:"error,omitempty"`
}

// ConnectivityData reports a reachability change.
type ConnectivityData struct {
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

// StatsData contains task and sync statistics
type StatsData struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	Completed  int            `json:"completed"`
	Overdue    int            `json:"overdue"`
	DueToday   int            `json:"due_today"`
	Unassigned int            `json:"unassigned"`
	Pending    int            `json:"pending"`
	Online     bool           `json:"online"`

	ReplayPasses int        `json:"replay_passes"`
	Applied      int        `json:"applied"`
	Requeued     int        `json:"requeued"`
	Dropped      int        `json:"dropped"`
	LastSync     *time.Time `json:"last_sync,omitempty"`
}

// Handler turns facade, queue and connectivity events into dashboard
// messages. It keeps its own copy of the task list because queue
// callbacks arrive while the app-state lock is held.
type Handler struct {
	server *Server
	log    *log.Entry
	today  func() types.Date

	mu      sync.Mutex
	tasks   []types.Task
	pending int
	online  bool
	stats   StatsData
}

var _ syncqueue.Observer = (*Handler)(nil)

// NewHandler creates a handler that broadcasts through server. If logger
// is nil the standard logger is used.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	h := &Handler{
		server: server,
		log:    logger.WithField("component", "dashboard"),
		today:  types.Today,
		stats:  StatsData{ByStatus: make(map[string]int)},
	}
	server.OnConnect = h.statsMessage
	return h
}

// Reset seeds the handler with the current state.
func (h *Handler) Reset(tasks []types.Task, pending []types.PendingAction, online bool) {
	h.mu.Lock()
	h.tasks = types.CloneTasks(tasks)
	h.pending = len(pending)
	h.online = online
	h.recomputeLocked()
	h.mu.Unlock()
}

// OnTaskChange handles a facade mutation.
func (h *Handler) OnTaskChange(c tasks.Change) {
	h.mu.Lock()
	i := types.FindTask(h.tasks, c.Task.ID)
	switch {
	case c.Kind == types.ActionDelete:
		if i >= 0 {
			h.tasks = slices.Delete(h.tasks, i, i+1)
		}
	case i >= 0:
		h.tasks[i] = c.Task.Clone()
	default:
		h.tasks = append(h.tasks, c.Task.Clone())
	}
	h.recomputeLocked()
	h.mu.Unlock()

	data := TaskUpdateData{
		TaskID:   c.Task.ID,
		Action:   actionName(c.Kind),
		Status:   string(c.Task.Status),
		Text:     c.Task.Text,
		Priority: string(c.Task.Priority),
		Assignee: c.Task.AssigneeID(),
		Queued:   c.Queued,
	}
	if c.Kind == types.ActionDelete {
		data = TaskUpdateData{TaskID: c.Task.ID, Action: "deleted", Queued: c.Queued}
	}
	h.send(MessageTypeTaskUpdate, data)
	h.broadcastStats()
}

func actionName(k types.ActionKind) string {
	switch k {
	case types.ActionAdd:
		return "created"
	case types.ActionToggle:
		return "toggled"
	case types.ActionDelete:
		return "deleted"
	default:
		return "updated"
	}
}

// OnReload handles state another process saved to the shared mirror,
// such as a CLI command run while the daemon is up.
func (h *Handler) OnReload(s appstate.Snapshot) {
	h.mu.Lock()
	h.tasks = types.CloneTasks(s.Tasks)
	h.pending = len(s.Pending)
	h.recomputeLocked()
	h.mu.Unlock()

	h.send(MessageTypeTasksRefreshed, map[string]int{"count": len(s.Tasks)})
	h.broadcastStats()
}

// OnConnectivity handles a monitor transition.
func (h *Handler) OnConnectivity(tr connectivity.Transition) {
	h.mu.Lock()
	h.online = tr.To
	h.recomputeLocked()
	h.mu.Unlock()

	h.log.WithField("online", tr.To).Info("connectivity changed")
	h.send(MessageTypeConnectivity, ConnectivityData{Online: tr.To, At: tr.At})
	h.broadcastStats()
}

// OnQueueChanged implements syncqueue.Observer.
func (h *Handler) OnQueueChanged(pending []types.PendingAction) {
	h.mu.Lock()
	h.pending = len(pending)
	h.recomputeLocked()
	h.mu.Unlock()

	data := QueueUpdateData{Length: len(pending), Actions: make([]string, len(pending))}
	for i, a := range pending {
		data.Actions[i] = a.String()
	}
	h.send(MessageTypeQueueUpdate, data)
}

// OnActionState implements syncqueue.Observer.
func (h *Handler) OnActionState(a types.PendingAction, state syncqueue.ActionState, err error) {
	data := ActionStateData{
		TaskID:   a.TaskID,
		Kind:     string(a.Kind),
		State:    state.String(),
		Attempts: a.Attempts,
	}
	if err != nil {
		data.Error = err.Error()
	}
	h.send(MessageTypeActionState, data)
}

// OnTasksRefreshed implements syncqueue.Observer.
func (h *Handler) OnTasksRefreshed(tasks []types.Task) {
	h.mu.Lock()
	h.tasks = types.CloneTasks(tasks)
	h.recomputeLocked()
	h.mu.Unlock()

	h.send(MessageTypeTasksRefreshed, map[string]int{"count": len(tasks)})
}

// OnReplayComplete implements syncqueue.Observer.
func (h *Handler) OnReplayComplete(res syncqueue.Result, err error) {
	if res.Empty() && err == nil {
		return
	}
	h.mu.Lock()
	now := time.Now().UTC()
	h.stats.ReplayPasses++
	h.stats.Applied += res.Applied
	h.stats.Requeued += res.Requeued
	h.stats.Dropped += res.Dropped
	h.stats.LastSync = &now
	h.mu.Unlock()

	data := SyncCompleteData{Result: res}
	if err != nil {
		data.Error = err.Error()
	}
	h.log.WithFields(log.Fields{"applied": res.Applied, "remaining": res.Remaining}).Debug("sync complete")
	h.send(MessageTypeSyncComplete, data)
	h.broadcastStats()
}

// recomputeLocked rebuilds the task counters. Callers must hold h.mu.
func (h *Handler) recomputeLocked() {
	today := h.today()
	s := &h.stats
	s.Total = len(h.tasks)
	s.ByStatus = make(map[string]int)
	s.Completed, s.Overdue, s.DueToday, s.Unassigned = 0, 0, 0, 0
	for _, t := range h.tasks {
		s.ByStatus[string(t.Status)]++
		switch views.DueStateOf(t, today) {
		case views.DueComplete:
			s.Completed++
		case views.DueOverdue:
			s.Overdue++
		case views.DueToday:
			s.DueToday++
		}
		if t.Assignee == nil && !t.Completed {
			s.Unassigned++
		}
	}
	s.Pending = h.pending
	s.Online = h.online
}

// Stats returns the current statistics.
func (h *Handler) Stats() StatsData {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.stats
	out.ByStatus = make(map[string]int, len(h.stats.ByStatus))
	for k, v := range h.stats.ByStatus {
		out.ByStatus[k] = v
	}
	return out
}

func (h *Handler) statsMessage() Message {
	data, err := sonic.Marshal(h.Stats())
	if err != nil {
		h.log.WithError(err).Error("failed to encode stats")
		return Message{Type: MessageTypeStats}
	}
	return Message{Type: MessageTypeStats, Timestamp: time.Now().UTC(), Data: data}
}

func (h *Handler) broadcastStats() {
	h.server.Broadcast(h.statsMessage())
}

func (h *Handler) send(typ MessageType, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		h.log.WithError(err).WithField("type", typ).Error("failed to encode message data")
		return
	}
	h.server.Broadcast(Message{Type: typ, Timestamp: time.Now().UTC(), Data: data})
}
