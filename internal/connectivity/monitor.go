// Package connectivity tracks whether the remote store is reachable.
//
// A Monitor holds the current reachability flag and notifies subscribers
// on every change. A Prober feeds it by pinging the remote store, and a
// MarkerWatcher forces it offline while an OFFLINE marker file exists in
// the data directory.
package connectivity

import (
	"sync"
	"time"
)

// Transition is a change of reachability.
type Transition struct {
	From bool
	To   bool
	At   time.Time
}

// Reconnected reports whether the transition went from unreachable to
// reachable.
func (t Transition) Reconnected() bool {
	return !t.From && t.To
}

// String returns "online" or "offline" for the new state.
func (t Transition) String() string {
	if t.To {
		return "online"
	}
	return "offline"
}

// Monitor is the reachability flag plus its subscribers.
//
// Subscribers are called once per actual change, in change order, on the
// goroutine that made the change, and never while the flag's lock is
// held. A subscriber must not call Set on the same monitor.
type Monitor struct {
	emit sync.Mutex // serializes Set so emissions keep change order

	mu        sync.Mutex
	reachable bool
	subs      map[int]func(Transition)
	nextID    int
}

// New returns a monitor starting in the given state. No transition is
// emitted for the initial state.
func New(initial bool) *Monitor {
	return &Monitor{
		reachable: initial,
		subs:      make(map[int]func(Transition)),
	}
}

// Reachable returns the current state.
func (m *Monitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reachable
}

// Set records the latest reachability. It returns true if the state
// changed, in which case every subscriber has been called before Set
// returns.
func (m *Monitor) Set(reachable bool) bool {
	m.emit.Lock()
	defer m.emit.Unlock()

	m.mu.Lock()
	if m.reachable == reachable {
		m.mu.Unlock()
		return false
	}
	tr := Transition{From: m.reachable, To: reachable, At: time.Now()}
	m.reachable = reachable
	subs := make([]func(Transition), 0, len(m.subs))
	for id := 0; id < m.nextID; id++ {
		if fn, ok := m.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(tr)
	}
	return true
}

// Subscribe registers fn for future transitions. Subscribers run in
// registration order. The returned function unsubscribes.
func (m *Monitor) Subscribe(fn func(Transition)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}
