package types

import (
	"errors"
	"strings"
	"testing"
)

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid task",
			task:    Task{ID: "t1", Text: "Buy milk", Priority: PriorityMedium, Status: StatusTodo},
			wantErr: false,
		},
		{
			name:    "missing id",
			task:    Task{Text: "Buy milk", Priority: PriorityMedium, Status: StatusTodo},
			wantErr: true,
			errMsg:  "id is required",
		},
		{
			name:    "blank text",
			task:    Task{ID: "t1", Text: "   ", Priority: PriorityMedium, Status: StatusTodo},
			wantErr: true,
			errMsg:  "text is required",
		},
		{
			name:    "text too long",
			task:    Task{ID: "t1", Text: strings.Repeat("x", MaxTextLength+1), Priority: PriorityMedium, Status: StatusTodo},
			wantErr: true,
			errMsg:  "characters or less",
		},
		{
			name:    "unknown priority",
			task:    Task{ID: "t1", Text: "x", Priority: "Urgent", Status: StatusTodo},
			wantErr: true,
			errMsg:  "unknown priority",
		},
		{
			name:    "unknown status",
			task:    Task{ID: "t1", Text: "x", Priority: PriorityLow, Status: "blocked"},
			wantErr: true,
			errMsg:  "unknown status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error %v does not wrap ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.errMsg)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"High", PriorityHigh, false},
		{"high", PriorityHigh, false},
		{" MEDIUM ", PriorityMedium, false},
		{"", PriorityMedium, false},
		{"l", PriorityLow, false},
		{"urgent", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityHigh.Rank() < PriorityMedium.Rank() && PriorityMedium.Rank() < PriorityLow.Rank()) {
		t.Fatalf("ranks out of order: high=%d medium=%d low=%d",
			PriorityHigh.Rank(), PriorityMedium.Rank(), PriorityLow.Rank())
	}
	if Priority("bogus").Rank() != PriorityMedium.Rank() {
		t.Errorf("unknown priority should rank as Medium")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"todo", StatusTodo},
		{"in-progress", StatusInProgress},
		{"inprogress", StatusInProgress},
		{"done", StatusComplete},
		{"Complete", StatusComplete},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParseStatus("archived"); !errors.Is(err, ErrInvalid) {
		t.Errorf("ParseStatus(archived) error = %v, want ErrInvalid", err)
	}
}

func TestResolveID(t *testing.T) {
	tasks := []Task{
		{ID: "abc123"},
		{ID: "abd456"},
		{ID: "xyz789"},
	}

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{name: "exact", ref: "xyz789", want: "xyz789"},
		{name: "unique prefix", ref: "abc", want: "abc123"},
		{name: "ambiguous prefix", ref: "ab", wantErr: ErrInvalid},
		{name: "unknown", ref: "nope", wantErr: ErrNotFound},
		{name: "empty", ref: "", wantErr: ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveID(tasks, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveID(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveID(%q) unexpected error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("ResolveID(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestTeamMemberInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "AL"},
		{"grace", "G"},
		{"  mary  jane watson ", "MJW"},
		{"", ""},
	}
	for _, tt := range tests {
		m := TeamMember{Name: tt.name}
		if got := m.Initials(); got != tt.want {
			t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMatchMember(t *testing.T) {
	members := []TeamMember{
		{ID: "m1", Name: "Ada Lovelace", Email: "ada@example.com"},
		{ID: "m2", Name: "Grace Hopper", Email: "grace@example.com"},
		{ID: "m3", Name: "Alan Turing", Email: "alan@example.com"},
	}

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{"id", "m2", "m2", nil},
		{"full name", "ada lovelace", "m1", nil},
		{"email", "GRACE@example.com", "m2", nil},
		{"first name", "ada", "m1", nil},
		{"name prefix", "  Gra ", "m2", nil},
		{"ambiguous prefix", "a", "", ErrInvalid},
		{"unknown", "Linus", "", ErrNotFound},
		{"blank", " ", "", ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := MatchMember(members, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("MatchMember(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil || m.ID != tt.want {
				t.Errorf("MatchMember(%q) = %+v, %v; want %s", tt.ref, m, err, tt.want)
			}
		})
	}
}
