package remote

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/honesthomesales/TODO/internal/types"
)

const taskColumns = `id, text, completed, status, due_date, priority, manual_order, assignee, created_at, completed_at`

// InsertTask implements TaskStore.InsertTask.
func (db *DB) InsertTask(ctx context.Context, task types.Task) error {
	task.SetDefaults()
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	query := `
	INSERT INTO todos (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		text = excluded.text,
		completed = excluded.completed,
		status = excluded.status,
		due_date = excluded.due_date,
		priority = excluded.priority,
		manual_order = excluded.manual_order,
		assignee = excluded.assignee,
		created_at = COALESCE(todos.created_at, excluded.created_at),
		completed_at = excluded.completed_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		task.ID,
		task.Text,
		boolToInt(task.Completed),
		string(task.Status),
		dateToNull(task.DueDate),
		string(task.Priority),
		task.ManualOrder,
		stringPtrToNull(task.Assignee),
		timeToNull(task.CreatedAt),
		timeToNull(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}
	return nil
}

// UpdateTask implements TaskStore.UpdateTask.
func (db *DB) UpdateTask(ctx context.Context, id string, patch types.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("invalid patch for task %s: %w", id, err)
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Text != nil {
		set("text", *patch.Text)
	}
	if patch.DueDate != nil {
		set("due_date", dateToNull(*patch.DueDate))
	}
	if patch.Priority != nil {
		set("priority", string(*patch.Priority))
	}
	if patch.Assignee != nil {
		if *patch.Assignee == "" {
			set("assignee", nil)
		} else {
			set("assignee", *patch.Assignee)
		}
	}
	if patch.Completed != nil {
		set("completed", boolToInt(*patch.Completed))
		if !*patch.Completed && patch.CompletedAt == nil {
			set("completed_at", nil)
		}
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.ManualOrder != nil {
		set("manual_order", *patch.ManualOrder)
	}
	if patch.CompletedAt != nil {
		set("completed_at", timeToNull(patch.CompletedAt))
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := `UPDATE todos SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	return nil
}

// DeleteTask implements TaskStore.DeleteTask.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// ListTasks implements TaskStore.ListTasks.
func (db *DB) ListTasks(ctx context.Context) ([]types.Task, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM todos ORDER BY manual_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// GetTask returns a single task.
func (db *DB) GetTask(ctx context.Context, id string) (types.Task, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+taskColumns+` FROM todos WHERE id = ?`, id)
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return types.Task{}, err
	}
	if len(tasks) == 0 {
		return types.Task{}, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	return tasks[0], nil
}

// scanTasks is a helper to scan task rows.
func scanTasks(rows *sql.Rows) ([]types.Task, error) {
	tasks := []types.Task{}
	for rows.Next() {
		var (
			t           types.Task
			completed   int
			status      string
			dueDate     sql.NullString
			priority    sql.NullString
			assignee    sql.NullString
			createdAt   sql.NullString
			completedAt sql.NullString
		)
		if err := rows.Scan(
			&t.ID, &t.Text, &completed, &status, &dueDate, &priority,
			&t.ManualOrder, &assignee, &createdAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		t.Completed = completed != 0
		t.Status = types.Status(status)
		if p, err := types.ParsePriority(priority.String); err == nil {
			t.Priority = p
		} else {
			t.Priority = types.PriorityMedium
		}
		if dueDate.Valid {
			d, err := types.ParseDate(dueDate.String)
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", t.ID, err)
			}
			t.DueDate = d
		}
		if assignee.Valid && assignee.String != "" {
			a := assignee.String
			t.Assignee = &a
		}
		t.CreatedAt = nullToTime(createdAt)
		t.CompletedAt = nullToTime(completedAt)
		t.SetDefaults()

		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func dateToNull(d types.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func stringPtrToNull(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func timeToNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullToTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
