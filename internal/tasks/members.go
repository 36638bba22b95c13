package tasks

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/appstate"
	"github.com/honesthomesales/TODO/internal/types"
)

// Members manages the team roster. Writes need the remote store; listing
// falls back to the cached roster while offline.
type Members struct {
	svc *Service
	log *log.Entry
}

// List returns the roster ordered by name. When the remote store is
// reachable the cache is refreshed first; otherwise, or if the fetch
// fails, the cached roster is returned.
func (m *Members) List(ctx context.Context) []types.TeamMember {
	if m.svc.monitor.Reachable() {
		fresh, err := m.svc.remote.ListMembers(ctx)
		if err == nil {
			m.store(ctx, fresh)
			return fresh
		}
		m.log.WithError(err).Warn("failed to list members, using cached roster")
	}
	return m.Cached()
}

// Cached returns the last known roster without touching the remote store.
func (m *Members) Cached() []types.TeamMember {
	return m.svc.state.Snapshot().Members
}

// Resolve finds a cached member by id, name or email.
func (m *Members) Resolve(ref string) (types.TeamMember, error) {
	return types.MatchMember(m.Cached(), ref)
}

// Add creates a member.
func (m *Members) Add(ctx context.Context, name, email string) (types.TeamMember, error) {
	member := types.TeamMember{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
	}
	if err := member.Validate(); err != nil {
		return types.TeamMember{}, err
	}
	if !m.svc.monitor.Reachable() {
		return types.TeamMember{}, fmt.Errorf("add member: %w", types.ErrOffline)
	}
	if err := m.svc.remote.InsertMember(ctx, member); err != nil {
		return types.TeamMember{}, fmt.Errorf("failed to add member: %w", err)
	}

	m.svc.state.Do(func(tx *appstate.Tx) {
		members := append(tx.Members(), member)
		sortMembers(members)
		tx.SetMembers(members)
		_ = m.svc.mirror.SaveMembers(ctx, members)
	})
	m.log.WithFields(log.Fields{"member_id": member.ID, "name": member.Name}).Info("added team member")
	return member, nil
}

// Remove deletes member id. The remote store unassigns their tasks in
// the same transaction; the local task set and any queued actions that
// would assign the member are updated to match.
func (m *Members) Remove(ctx context.Context, id string) error {
	if !m.svc.monitor.Reachable() {
		return fmt.Errorf("remove member: %w", types.ErrOffline)
	}
	if err := m.svc.remote.DeleteMember(ctx, id); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	var changes []Change
	m.svc.state.Do(func(tx *appstate.Tx) {
		members := slices.DeleteFunc(tx.Members(), func(mb types.TeamMember) bool { return mb.ID == id })
		tx.SetMembers(members)
		_ = m.svc.mirror.SaveMembers(ctx, members)

		tasks := tx.Tasks()
		for i := range tasks {
			if tasks[i].IsAssignedTo(id) {
				tasks[i].Assignee = nil
				changes = append(changes, Change{Kind: types.ActionUpdate, Task: tasks[i]})
			}
		}
		if len(changes) > 0 {
			tx.SetTasks(tasks)
			_ = m.svc.mirror.SaveTasks(ctx, tasks)
		}

		if pending, ok := unassignPending(tx.Pending(), id); ok {
			tx.SetPending(pending)
			_ = m.svc.mirror.SaveQueue(ctx, pending)
		}
	})
	m.svc.emit(changes)
	m.log.WithFields(log.Fields{"member_id": id, "unassigned": len(changes)}).Info("removed team member")
	return nil
}

// unassignPending rewrites queued actions that would assign member id so
// that replay does not re-assign a removed member. It reports whether any
// action changed.
func unassignPending(pending []types.PendingAction, id string) ([]types.PendingAction, bool) {
	changed := false
	for i := range pending {
		a := &pending[i]
		if a.Task != nil && a.Task.IsAssignedTo(id) {
			a.Task.Assignee = nil
			changed = true
		}
		if a.Patch != nil && a.Patch.Assignee != nil && *a.Patch.Assignee == id {
			a.Patch.Assignee = types.StringPtr("")
			changed = true
		}
	}
	return pending, changed
}

func (m *Members) store(ctx context.Context, members []types.TeamMember) {
	m.svc.state.Do(func(tx *appstate.Tx) {
		tx.SetMembers(members)
		_ = m.svc.mirror.SaveMembers(ctx, members)
	})
}

func sortMembers(members []types.TeamMember) {
	slices.SortStableFunc(members, func(a, b types.TeamMember) int {
		return strings.Compare(a.Name, b.Name)
	})
}
