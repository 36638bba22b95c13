package types

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// TeamMember is a person tasks can be assigned to.
type TeamMember struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Email     string  `json:"email" yaml:"email"`
	PushToken *string `json:"push_token,omitempty" yaml:"push_token,omitempty"`
}

// Validate checks required member fields.
func (m *TeamMember) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: member id is required", ErrInvalid)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: member name is required", ErrInvalid)
	}
	if m.Email != "" {
		if _, err := mail.ParseAddress(m.Email); err != nil {
			return fmt.Errorf("%w: invalid email %q", ErrInvalid, m.Email)
		}
	}
	return nil
}

// Initials returns the upper-cased first letter of each name part.
func (m *TeamMember) Initials() string {
	var b strings.Builder
	for _, part := range strings.Fields(m.Name) {
		for _, r := range part {
			b.WriteString(strings.ToUpper(string(r)))
			break
		}
	}
	return b.String()
}

// FindMember returns the index of id in members, or -1.
func FindMember(members []TeamMember, id string) int {
	for i := range members {
		if members[i].ID == id {
			return i
		}
	}
	return -1
}

// MatchMember finds a member by exact id, by case-insensitive full name
// or email, or failing those by a unique case-insensitive name prefix
// ("ada" for "Ada Lovelace").
func MatchMember(members []TeamMember, ref string) (TeamMember, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return TeamMember{}, fmt.Errorf("%w: member reference is required", ErrInvalid)
	}
	if i := FindMember(members, ref); i >= 0 {
		return members[i], nil
	}
	var found []TeamMember
	for _, m := range members {
		if strings.EqualFold(m.Name, ref) || strings.EqualFold(m.Email, ref) {
			found = append(found, m)
		}
	}
	if len(found) == 0 {
		lower := strings.ToLower(ref)
		for _, m := range members {
			if strings.HasPrefix(strings.ToLower(m.Name), lower) {
				found = append(found, m)
			}
		}
	}
	switch len(found) {
	case 0:
		return TeamMember{}, fmt.Errorf("member %q: %w", ref, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return TeamMember{}, fmt.Errorf("%w: %d members match %q", ErrInvalid, len(found), ref)
	}
}

// Comment is a free-text note on a task.
type Comment struct {
	ID        string    `json:"id" yaml:"id"`
	TaskID    string    `json:"task_id" yaml:"task_id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ActivityType tags an audit record.
type ActivityType string

const (
	ActivityCreated       ActivityType = "created"
	ActivityUpdated       ActivityType = "updated"
	ActivityDeleted       ActivityType = "deleted"
	ActivityToggled       ActivityType = "toggled"
	ActivityStatusChanged ActivityType = "status_changed"
	ActivityAssigned      ActivityType = "assigned"
	ActivityCommented     ActivityType = "commented"
)

// Activity is an append-only audit record.
type Activity struct {
	ID        string         `json:"id" yaml:"id"`
	Type      ActivityType   `json:"type" yaml:"type"`
	TaskID    string         `json:"task_id" yaml:"task_id"`
	UserID    string         `json:"user_id" yaml:"user_id"`
	Detail    map[string]any `json:"detail,omitempty" yaml:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}
