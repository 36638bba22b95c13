// Package remote is the authoritative, network-reachable relational store
// shared by every device of the team.
//
// The store holds four tables: todos, team_members, comments and
// activities. It is reached through database/sql, either over the libSQL
// protocol (Turso and sqld, for production) or against a local SQLite
// file (development and tests). See Open for DSN routing.
package remote

import (
	"context"

	"github.com/honesthomesales/TODO/internal/types"
)

// TaskStore is the remote todos table.
//
// Every call is a single statement against the remote database. Callers
// decide what to do with failures; the store itself never retries.
type TaskStore interface {
	// InsertTask stores a new task.
	//
	// The insert is an upsert keyed on the task id, so replaying an add
	// that already reached the store simply rewrites the same row.
	//
	// Example:
	//   err := store.InsertTask(ctx, task)
	InsertTask(ctx context.Context, task types.Task) error

	// UpdateTask writes the patched columns of task id.
	//
	// Only non-nil patch fields are written. An empty patch and an
	// unknown id are both no-ops that return nil.
	//
	// Example:
	//   status := types.StatusComplete
	//   err := store.UpdateTask(ctx, "t1", types.TaskPatch{Status: &status})
	UpdateTask(ctx context.Context, id string, patch types.TaskPatch) error

	// DeleteTask removes task id.
	//
	// Returns nil if the task doesn't exist (idempotent).
	DeleteTask(ctx context.Context, id string) error

	// ListTasks returns every task ordered by manual order ascending.
	ListTasks(ctx context.Context) ([]types.Task, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// MemberStore is the remote team_members table.
type MemberStore interface {
	// InsertMember stores a member, replacing one with the same id.
	InsertMember(ctx context.Context, m types.TeamMember) error

	// DeleteMember removes member id and clears it from every task it
	// was assigned to, in one transaction.
	DeleteMember(ctx context.Context, id string) error

	// ListMembers returns all members ordered by name.
	ListMembers(ctx context.Context) ([]types.TeamMember, error)
}

// CommentStore holds task comments and the activity log.
// Both are append-only.
type CommentStore interface {
	AddComment(ctx context.Context, c types.Comment) error
	ListComments(ctx context.Context, taskID string) ([]types.Comment, error)
	AddActivity(ctx context.Context, a types.Activity) error
	ListActivity(ctx context.Context, taskID string) ([]types.Activity, error)
}

// Store is everything the application needs from the remote side.
type Store interface {
	TaskStore
	MemberStore
	CommentStore
}

var _ Store = (*DB)(nil)
