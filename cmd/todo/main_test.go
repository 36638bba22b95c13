package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/honesthomesales/TODO/internal/views"
)

// resetFlags restores every flag to its default so consecutive runs in
// one process don't leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	return &cli{t: t, dir: t.TempDir()}
}

// run executes todo with --data-dir pointing at the test directory.
func (c *cli) run(args ...string) (stdout, stderr string, code int) {
	c.t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	code = run(append([]string{"--data-dir", c.dir}, args...), &out, &errOut)
	return out.String(), errOut.String(), code
}

// ok runs todo and fails the test on a non-zero exit.
func (c *cli) ok(args ...string) string {
	c.t.Helper()
	out, errOut, code := c.run(args...)
	if code != 0 {
		c.t.Fatalf("todo %s exited %d\nstdout: %s\nstderr: %s", strings.Join(args, " "), code, out, errOut)
	}
	return out
}

func (c *cli) fails(args ...string) string {
	c.t.Helper()
	out, errOut, code := c.run(args...)
	if code == 0 {
		c.t.Fatalf("todo %s succeeded, expected failure\nstdout: %s", strings.Join(args, " "), out)
	}
	if !strings.HasPrefix(errOut, "Error: ") && !strings.Contains(errOut, "\nError: ") {
		c.t.Errorf("stderr = %q, want an Error: line", errOut)
	}
	return errOut
}

func (c *cli) listJSON(args ...string) []views.Group {
	c.t.Helper()
	out := c.ok(append([]string{"list", "--format", "json"}, args...)...)
	var groups []views.Group
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		c.t.Fatalf("decode list output: %v\n%s", err, out)
	}
	return groups
}

func (c *cli) onlyTask(args ...string) (id, text string) {
	c.t.Helper()
	groups := c.listJSON(args...)
	if len(groups) != 1 || len(groups[0].Tasks) != 1 {
		c.t.Fatalf("expected one task, got %+v", groups)
	}
	return groups[0].Tasks[0].ID, groups[0].Tasks[0].Text
}

func TestInitAndConfig(t *testing.T) {
	c := newCLI(t)
	out := c.ok("init", "--user", "m-1", "--auth-token", "s3cret")
	if !strings.Contains(out, "wrote") {
		t.Errorf("init output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(c.dir, "config.toml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	c.fails("init")

	if got := strings.TrimSpace(c.ok("config", "path")); got != filepath.Join(c.dir, "config.toml") {
		t.Errorf("config path = %q", got)
	}
	show := c.ok("config", "show")
	if !strings.Contains(show, `current_user = "m-1"`) {
		t.Errorf("config show missing user:\n%s", show)
	}
	if strings.Contains(show, "s3cret") {
		t.Error("config show printed the auth token")
	}
}

func TestTaskCommands(t *testing.T) {
	c := newCLI(t)

	out := c.ok("add", "Buy", "milk", "--due", "2024-06-01", "--priority", "high")
	if !strings.Contains(out, "added") || strings.Contains(out, "offline") {
		t.Errorf("add output = %q", out)
	}
	id, text := c.onlyTask()
	if text != "Buy milk" {
		t.Errorf("text = %q", text)
	}

	table := c.ok("list", "priority")
	if !strings.Contains(table, "High Priority") || !strings.Contains(table, "Buy milk") {
		t.Errorf("priority view:\n%s", table)
	}

	c.ok("update", id[:8], "--text", "Buy oat milk", "--status", "inprogress", "--due", "none")
	groups := c.listJSON()
	task := groups[0].Tasks[0]
	if task.Text != "Buy oat milk" || task.Status != "inprogress" || !task.DueDate.IsZero() {
		t.Errorf("after update: %+v", task)
	}
	c.fails("update", id)

	if out := c.ok("done", id); !strings.Contains(out, "completed") {
		t.Errorf("toggle output = %q", out)
	}
	if groups := c.listJSON("--open"); len(groups[0].Tasks) != 0 {
		t.Errorf("--open should hide the completed task: %+v", groups)
	}

	c.ok("add", "Second")
	c.ok("move", id, "down")
	c.fails("move", id, "sideways")

	show := c.ok("show", id)
	if !strings.Contains(show, id) || !strings.Contains(show, "Buy oat milk") {
		t.Errorf("show output:\n%s", show)
	}

	c.ok("rm", id)
	c.fails("show", id)
	if _, text := c.onlyTask(); text != "Second" {
		t.Errorf("remaining task = %q", text)
	}

	errOut := c.fails("add", "   ")
	if !strings.Contains(errOut, "text") {
		t.Errorf("blank add error = %q", errOut)
	}
	c.fails("list", "kanban")
}

func TestOfflineQueueAndReplay(t *testing.T) {
	c := newCLI(t)

	c.ok("offline", "on")
	if out := c.ok("offline"); !strings.Contains(out, "on") {
		t.Errorf("offline status = %q", out)
	}

	out := c.ok("add", "written offline")
	if !strings.Contains(out, "offline, 1 pending") {
		t.Errorf("offline add output = %q", out)
	}
	if q := c.ok("queue"); !strings.Contains(q, "add") {
		t.Errorf("queue output = %q", q)
	}
	c.fails("sync")
	if st := c.ok("status"); !strings.Contains(st, "offline") || !strings.Contains(st, "pending:  1") {
		t.Errorf("status output:\n%s", st)
	}

	c.ok("offline", "off")
	// queue doesn't probe, so the action is still waiting.
	if q := c.ok("queue"); !strings.Contains(q, "1.") {
		t.Errorf("queue before reconnect = %q", q)
	}

	// Any connecting command reconnects and replays first.
	c.ok("list")
	if q := c.ok("queue"); !strings.Contains(q, "Nothing pending") {
		t.Errorf("queue after reconnect = %q", q)
	}
	if out := c.ok("sync"); !strings.Contains(out, "up to date (1 tasks)") {
		t.Errorf("sync output = %q", out)
	}
}

func TestQueueClear(t *testing.T) {
	c := newCLI(t)
	c.ok("offline", "on")
	c.ok("add", "one")
	c.ok("add", "two")

	c.fails("queue", "clear")
	if out := c.ok("queue", "clear", "--yes"); !strings.Contains(out, "discarded 2") {
		t.Errorf("clear output = %q", out)
	}
	if groups := c.listJSON(); len(groups[0].Tasks) != 2 {
		t.Error("clearing the queue must not touch local tasks")
	}
}

func TestMembersAndComments(t *testing.T) {
	c := newCLI(t)
	c.ok("init", "--user", "m-me")

	c.ok("members", "add", "Ada Lovelace", "--email", "ada@example.com")
	list := c.ok("members", "list")
	if !strings.Contains(list, "AL") || !strings.Contains(list, "ada@example.com") {
		t.Errorf("members list:\n%s", list)
	}
	c.fails("members", "add", "Bad", "--email", "not-an-email")

	c.ok("add", "Write docs", "--assign", "ada")
	byAssignee := c.ok("list", "--view", "assignee")
	if !strings.Contains(byAssignee, "Ada Lovelace") {
		t.Errorf("assignee view:\n%s", byAssignee)
	}
	id, _ := c.onlyTask("--assignee", "ada@example.com")

	c.ok("comment", id, "first", "draft", "done")
	if out := c.ok("comments", id); !strings.Contains(out, "first draft done") {
		t.Errorf("comments output = %q", out)
	}
	if out := c.ok("activity", id); !strings.Contains(out, "created") || !strings.Contains(out, "commented") {
		t.Errorf("activity output = %q", out)
	}

	c.ok("members", "rm", "Ada Lovelace")
	groups := c.listJSON()
	if groups[0].Tasks[0].Assignee != nil {
		t.Error("removing a member should unassign their tasks")
	}

	c.ok("offline", "on")
	c.fails("comment", id, "offline note")
	c.fails("members", "add", "Grace Hopper")
	if out := c.ok("members", "list"); !strings.Contains(out, "No team members") {
		t.Errorf("cached members = %q", out)
	}
}

func TestExportImport(t *testing.T) {
	src := newCLI(t)
	src.ok("add", "alpha", "--priority", "low")
	src.ok("add", "beta", "--due", "2030-01-02")

	path := filepath.Join(t.TempDir(), "tasks.yaml")
	if out := src.ok("export", path); !strings.Contains(out, "exported 2") {
		t.Errorf("export output = %q", out)
	}
	jsonl := src.ok("export")
	if strings.Count(jsonl, "\n") != 2 {
		t.Errorf("stdout export = %q", jsonl)
	}

	dst := newCLI(t)
	if out := dst.ok("import", path, "--dry-run"); !strings.Contains(out, "2 task(s) read") {
		t.Errorf("dry run output = %q", out)
	}
	if out := dst.ok("import", path); !strings.Contains(out, "imported 2") {
		t.Errorf("import output = %q", out)
	}
	if out := dst.ok("import", path); !strings.Contains(out, "imported 0") || !strings.Contains(out, "skipped 2") {
		t.Errorf("re-import output = %q", out)
	}
	if groups := dst.listJSON(); len(groups[0].Tasks) != 2 {
		t.Errorf("imported tasks = %+v", groups)
	}
	dst.fails("import", filepath.Join(t.TempDir(), "missing.jsonl"))
}

func TestRedactDSN(t *testing.T) {
	tests := map[string]string{
		"libsql://db.turso.io?authToken=abc": "libsql://db.turso.io?authToken=redacted",
		"/home/me/.todo/remote.db":           "/home/me/.todo/remote.db",
		"https://user:pw@db.example.com":     "https://db.example.com",
	}
	for in, want := range tests {
		if got := redactDSN(in); got != want {
			t.Errorf("redactDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
