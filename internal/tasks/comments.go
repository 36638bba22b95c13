package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/honesthomesales/TODO/internal/types"
)

// MaxCommentLength bounds comment text.
const MaxCommentLength = 2000

// Comment adds a note to task id. Comments are not queued; they need the
// remote store.
func (s *Service) Comment(ctx context.Context, taskID, text string) (types.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Comment{}, fmt.Errorf("%w: comment text is required", types.ErrInvalid)
	}
	if len(text) > MaxCommentLength {
		return types.Comment{}, fmt.Errorf("%w: comment must be %d characters or less", types.ErrInvalid, MaxCommentLength)
	}
	if _, err := s.Get(taskID); err != nil {
		return types.Comment{}, err
	}
	if !s.monitor.Reachable() {
		return types.Comment{}, fmt.Errorf("comment: %w", types.ErrOffline)
	}

	c := types.Comment{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    s.config.CurrentUser,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.remote.AddComment(ctx, c); err != nil {
		return types.Comment{}, fmt.Errorf("failed to add comment: %w", err)
	}

	if s.config.CurrentUser != "" {
		act := types.Activity{
			ID:        uuid.NewString(),
			Type:      types.ActivityCommented,
			TaskID:    taskID,
			UserID:    s.config.CurrentUser,
			Detail:    map[string]any{"comment_id": c.ID},
			CreatedAt: c.CreatedAt,
		}
		if err := s.remote.AddActivity(ctx, act); err != nil {
			s.log.WithError(err).WithField("task_id", taskID).Warn("failed to record activity")
		}
	}
	return c, nil
}

// Comments lists the notes on task id, oldest first.
func (s *Service) Comments(ctx context.Context, taskID string) ([]types.Comment, error) {
	if !s.monitor.Reachable() {
		return nil, fmt.Errorf("list comments: %w", types.ErrOffline)
	}
	out, err := s.remote.ListComments(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return out, nil
}

// Activity lists the audit trail of task id, oldest first.
func (s *Service) Activity(ctx context.Context, taskID string) ([]types.Activity, error) {
	if !s.monitor.Reachable() {
		return nil, fmt.Errorf("list activity: %w", types.ErrOffline)
	}
	out, err := s.remote.ListActivity(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return out, nil
}
