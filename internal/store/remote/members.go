package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/honesthomesales/TODO/internal/types"
)

// InsertMember implements MemberStore.InsertMember.
func (db *DB) InsertMember(ctx context.Context, m types.TeamMember) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid member: %w", err)
	}
	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO team_members (id, name, email, push_token) VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		push_token = excluded.push_token
	`, m.ID, m.Name, m.Email, stringPtrToNull(m.PushToken))
	if err != nil {
		return fmt.Errorf("failed to insert member %s: %w", m.ID, err)
	}
	return nil
}

// DeleteMember implements MemberStore.DeleteMember.
func (db *DB) DeleteMember(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE todos SET assignee = NULL WHERE assignee = ?`, id); err != nil {
		return fmt.Errorf("failed to unassign member %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete member %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListMembers implements MemberStore.ListMembers.
func (db *DB) ListMembers(ctx context.Context) ([]types.TeamMember, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, email, push_token FROM team_members ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []types.TeamMember{}
	for rows.Next() {
		var m types.TeamMember
		var token sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &token); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if token.Valid && token.String != "" {
			tok := token.String
			m.PushToken = &tok
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// AddComment implements CommentStore.AddComment.
func (db *DB) AddComment(ctx context.Context, c types.Comment) error {
	if c.ID == "" || c.TaskID == "" {
		return fmt.Errorf("%w: comment id and task id are required", types.ErrInvalid)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, task_id, user_id, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, c.UserID, c.Text, c.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to add comment to task %s: %w", c.TaskID, err)
	}
	return nil
}

// ListComments implements CommentStore.ListComments.
func (db *DB) ListComments(ctx context.Context, taskID string) ([]types.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, task_id, user_id, text, created_at FROM comments WHERE task_id = ? ORDER BY created_at ASC, id ASC`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []types.Comment{}
	for rows.Next() {
		var c types.Comment
		var created string
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Text, &created); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

// AddActivity implements CommentStore.AddActivity.
func (db *DB) AddActivity(ctx context.Context, a types.Activity) error {
	if a.ID == "" || a.TaskID == "" {
		return fmt.Errorf("%w: activity id and task id are required", types.ErrInvalid)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	var detail any
	if len(a.Detail) > 0 {
		raw, err := sonic.MarshalString(a.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal activity detail: %w", err)
		}
		detail = raw
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activities (id, type, task_id, user_id, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.TaskID, a.UserID, detail, a.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to add activity to task %s: %w", a.TaskID, err)
	}
	return nil
}

// ListActivity implements CommentStore.ListActivity.
func (db *DB) ListActivity(ctx context.Context, taskID string) ([]types.Activity, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, type, task_id, user_id, detail, created_at FROM activities WHERE task_id = ? ORDER BY created_at ASC, id ASC`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	out := []types.Activity{}
	for rows.Next() {
		var a types.Activity
		var typ, created string
		var detail sql.NullString
		if err := rows.Scan(&a.ID, &typ, &a.TaskID, &a.UserID, &detail, &created); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Type = types.ActivityType(typ)
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		if detail.Valid && detail.String != "" {
			if err := sonic.UnmarshalString(detail.String, &a.Detail); err != nil {
				db.log.WithError(err).WithField("activity", a.ID).Warn("ignoring unparsable activity detail")
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return out, nil
}
