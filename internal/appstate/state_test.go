package appstate

import (
	"sync"
	"testing"

	"github.com/honesthomesales/TODO/internal/types"
)

func TestSnapshotIsCopy(t *testing.T) {
	s := New([]types.Task{{ID: "t1", Text: "one", Assignee: types.StringPtr("m1")}}, nil, nil)

	snap := s.Snapshot()
	snap.Tasks[0].Text = "changed"
	*snap.Tasks[0].Assignee = "m2"

	again := s.Snapshot()
	if again.Tasks[0].Text != "one" || *again.Tasks[0].Assignee != "m1" {
		t.Errorf("snapshot aliased state: %+v", again.Tasks[0])
	}
	if again.Pending == nil || len(again.Pending) != 0 {
		t.Errorf("Pending = %v, want empty non-nil", again.Pending)
	}
}

func TestDoSerializes(t *testing.T) {
	s := New(nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do(func(tx *Tx) {
				pending := tx.Pending()
				pending = append(pending, types.NewDeleteAction("x"))
				tx.SetPending(pending)
			})
		}()
	}
	wg.Wait()

	if got := len(s.Snapshot().Pending); got != 50 {
		t.Errorf("pending = %d, want 50", got)
	}
}

type fakeShared struct {
	locks, unlocks int
	pending        *Snapshot
}

func (f *fakeShared) Lock() (func(), error) {
	f.locks++
	return func() { f.unlocks++ }, nil
}

func (f *fakeShared) Reload() (Snapshot, bool) {
	if f.pending == nil {
		return Snapshot{}, false
	}
	snap := *f.pending
	f.pending = nil
	return snap, true
}

func TestDoReloadsSharedState(t *testing.T) {
	s := New([]types.Task{{ID: "stale", Text: "stale"}}, nil, nil)
	shared := &fakeShared{}
	s.Share(shared, nil)

	var reloaded []Snapshot
	s.OnReload(func(snap Snapshot) { reloaded = append(reloaded, snap) })

	shared.pending = &Snapshot{
		Tasks:   []types.Task{{ID: "a", Text: "from another process"}},
		Pending: []types.PendingAction{types.NewDeleteAction("b")},
	}
	var ids []string
	s.Do(func(tx *Tx) {
		for _, t := range tx.Tasks() {
			ids = append(ids, t.ID)
		}
		if tx.PendingLen() != 1 {
			t.Errorf("PendingLen() = %d, want 1", tx.PendingLen())
		}
	})
	if len(ids) != 1 || ids[0] != "a" {
		t.Errorf("tasks after reload = %v", ids)
	}
	if len(reloaded) != 1 {
		t.Errorf("OnReload calls = %d, want 1", len(reloaded))
	}

	s.Do(func(tx *Tx) {})
	if len(reloaded) != 1 {
		t.Error("OnReload ran without a new reload")
	}
	if shared.locks != 2 || shared.unlocks != 2 {
		t.Errorf("locks = %d, unlocks = %d, want 2 each", shared.locks, shared.unlocks)
	}
}
