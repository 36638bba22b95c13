package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/honesthomesales/TODO/internal/types"
)

// openTestDB returns a store backed by a temporary SQLite file.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "remote.db"), "", nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTask(id, text string, order int) types.Task {
	return types.Task{
		ID:          id,
		Text:        text,
		Status:      types.StatusTodo,
		Priority:    types.PriorityMedium,
		DueDate:     types.NewDate(2024, time.June, 1),
		ManualOrder: order,
	}
}

func TestResolveDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		dsn        string
		token      string
		wantDriver string
		wantSource string
	}{
		{
			name:       "libsql with token",
			dsn:        "libsql://team.turso.io",
			token:      "secret",
			wantDriver: DriverLibSQL,
			wantSource: "libsql://team.turso.io?authToken=secret",
		},
		{
			name:       "https keeps explicit token",
			dsn:        "https://team.turso.io?authToken=inline",
			token:      "secret",
			wantDriver: DriverLibSQL,
			wantSource: "https://team.turso.io?authToken=inline",
		},
		{
			name:       "sqld over http without token",
			dsn:        "http://127.0.0.1:8080",
			wantDriver: DriverLibSQL,
			wantSource: "http://127.0.0.1:8080",
		},
		{
			name:       "local file",
			dsn:        filepath.Join(dir, "remote.db"),
			wantDriver: DriverSQLite,
			wantSource: "file:" + filepath.Join(dir, "remote.db"),
		},
		{
			name:       "file prefix",
			dsn:        "file:" + filepath.Join(dir, "x.db"),
			wantDriver: DriverSQLite,
			wantSource: "file:" + filepath.Join(dir, "x.db"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, source, err := resolveDSN(tt.dsn, tt.token)
			if err != nil {
				t.Fatalf("resolveDSN() error: %v", err)
			}
			if driver != tt.wantDriver || source != tt.wantSource {
				t.Errorf("resolveDSN() = (%q, %q), want (%q, %q)", driver, source, tt.wantDriver, tt.wantSource)
			}
		})
	}

	if _, _, err := resolveDSN("  ", ""); err == nil {
		t.Error("resolveDSN(empty) should fail")
	}
}

func TestInsertAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created := time.Date(2024, time.May, 30, 8, 0, 0, 0, time.UTC)
	a := newTask("a", "second", 1)
	b := newTask("b", "first", 0)
	b.Priority = types.PriorityHigh
	b.Assignee = types.StringPtr("m1")
	b.CreatedAt = &created
	b.DueDate = types.Date{}

	for _, task := range []types.Task{a, b} {
		if err := db.InsertTask(ctx, task); err != nil {
			t.Fatalf("InsertTask(%s) failed: %v", task.ID, err)
		}
	}

	got, err := db.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() failed: %v", err)
	}
	want := []types.Task{b, a}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListTasks() mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertIsUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task := newTask("a", "original", 0)
	if err := db.InsertTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	task.Text = "replayed"
	if err := db.InsertTask(ctx, task); err != nil {
		t.Fatalf("second InsertTask() failed: %v", err)
	}

	got, err := db.ListTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "replayed" {
		t.Errorf("ListTasks() = %+v", got)
	}
}

func TestInsertRejectsInvalid(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertTask(context.Background(), types.Task{ID: "a", Text: ""})
	if !errors.Is(err, types.ErrInvalid) {
		t.Errorf("InsertTask(blank) error = %v, want ErrInvalid", err)
	}
}

func TestUpdateTask(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task := newTask("a", "task", 0)
	task.Assignee = types.StringPtr("m1")
	if err := db.InsertTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	done := time.Date(2024, time.June, 2, 12, 0, 0, 0, time.UTC)
	patch := types.TogglePatch(true, &done)
	patch.Assignee = types.StringPtr("")
	if err := db.UpdateTask(ctx, "a", patch); err != nil {
		t.Fatalf("UpdateTask() failed: %v", err)
	}

	got, err := db.GetTask(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	want := patch.ApplyTo(task)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("after update (-want +got):\n%s", diff)
	}

	// Reopening clears the completion timestamp.
	if err := db.UpdateTask(ctx, "a", types.TogglePatch(false, nil)); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetTask(ctx, "a")
	if got.Completed || got.CompletedAt != nil || got.Status != types.StatusTodo {
		t.Errorf("after reopen = %+v", got)
	}
}

func TestUpdateMissingIsNoop(t *testing.T) {
	db := openTestDB(t)
	text := "nobody home"
	if err := db.UpdateTask(context.Background(), "missing", types.TaskPatch{Text: &text}); err != nil {
		t.Errorf("UpdateTask(missing) error = %v, want nil", err)
	}
	if err := db.UpdateTask(context.Background(), "missing", types.TaskPatch{}); err != nil {
		t.Errorf("UpdateTask(empty patch) error = %v, want nil", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertTask(ctx, newTask("a", "task", 0)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := db.DeleteTask(ctx, "a"); err != nil {
			t.Fatalf("DeleteTask() #%d failed: %v", i+1, err)
		}
	}
	if _, err := db.GetTask(ctx, "a"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("GetTask() after delete error = %v, want ErrNotFound", err)
	}
}

func TestMembers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	members := []types.TeamMember{
		{ID: "m2", Name: "Grace Hopper", Email: "grace@example.com"},
		{ID: "m1", Name: "Ada Lovelace", Email: "ada@example.com", PushToken: types.StringPtr("ExponentPushToken[1]")},
	}
	for _, m := range members {
		if err := db.InsertMember(ctx, m); err != nil {
			t.Fatalf("InsertMember(%s) failed: %v", m.ID, err)
		}
	}

	got, err := db.ListMembers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []types.TeamMember{members[1], members[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListMembers() ordered by name mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteMemberUnassignsTasks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertMember(ctx, types.TeamMember{ID: "m1", Name: "Ada"}); err != nil {
		t.Fatal(err)
	}
	task := newTask("a", "task", 0)
	task.Assignee = types.StringPtr("m1")
	if err := db.InsertTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteMember(ctx, "m1"); err != nil {
		t.Fatalf("DeleteMember() failed: %v", err)
	}

	got, _ := db.GetTask(ctx, "a")
	if got.Assignee != nil {
		t.Errorf("assignee = %q, want nil", *got.Assignee)
	}
	members, _ := db.ListMembers(ctx)
	if len(members) != 0 {
		t.Errorf("members = %+v, want none", members)
	}
}

func TestCommentsAndActivity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t0 := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	comments := []types.Comment{
		{ID: "c2", TaskID: "a", UserID: "m1", Text: "later", CreatedAt: t0.Add(time.Minute)},
		{ID: "c1", TaskID: "a", UserID: "m2", Text: "earlier", CreatedAt: t0},
		{ID: "c3", TaskID: "b", UserID: "m1", Text: "other task", CreatedAt: t0},
	}
	for _, c := range comments {
		if err := db.AddComment(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	gotComments, err := db.ListComments(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]types.Comment{comments[1], comments[0]}, gotComments); diff != "" {
		t.Errorf("ListComments() mismatch (-want +got):\n%s", diff)
	}

	act := types.Activity{
		ID:        "x1",
		Type:      types.ActivityStatusChanged,
		TaskID:    "a",
		UserID:    "m1",
		Detail:    map[string]any{"from": "todo", "to": "complete"},
		CreatedAt: t0,
	}
	if err := db.AddActivity(ctx, act); err != nil {
		t.Fatal(err)
	}
	gotActivity, err := db.ListActivity(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]types.Activity{act}, gotActivity); diff != "" {
		t.Errorf("ListActivity() mismatch (-want +got):\n%s", diff)
	}
}

func TestPing(t *testing.T) {
	db := openTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestUseAfterClose(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if err := db.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after Close = %v, want ErrClosed", err)
	}
	if _, err := db.ListTasks(ctx); err == nil {
		t.Error("ListTasks() after Close should fail")
	}
	if err := db.InsertTask(ctx, newTask("t1", "late", 0)); err == nil {
		t.Error("InsertTask() after Close should fail")
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
