package migrate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/honesthomesales/TODO/internal/types"
)

func sampleTasks() []types.Task {
	created := time.Date(2024, time.May, 30, 12, 0, 0, 0, time.UTC)
	return []types.Task{
		{
			ID: "t1", Text: "Buy milk", Status: types.StatusTodo, Priority: types.PriorityHigh,
			DueDate: types.NewDate(2024, time.June, 1), ManualOrder: 0, CreatedAt: &created,
		},
		{
			ID: "t2", Text: "Call plumber", Status: types.StatusComplete, Completed: true,
			Priority: types.PriorityLow, ManualOrder: 1, Assignee: types.StringPtr("m1"),
			CompletedAt: &created,
		},
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, sampleTasks()); err != nil {
		t.Fatalf("WriteJSONL() failed: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
	if !strings.Contains(buf.String(), `"due_date":"2024-06-01"`) {
		t.Errorf("due date not date-only:\n%s", buf.String())
	}

	got, err := ReadJSONL(&buf)
	if err != nil {
		t.Fatalf("ReadJSONL() failed: %v", err)
	}
	if diff := cmp.Diff(sampleTasks(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, sampleTasks()); err != nil {
		t.Fatalf("WriteYAML() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "due_date: \"2024-06-01\"") && !strings.Contains(buf.String(), "due_date: 2024-06-01") {
		t.Errorf("unexpected YAML:\n%s", buf.String())
	}
	got, err := ReadYAML(&buf)
	if err != nil {
		t.Fatalf("ReadYAML() failed: %v", err)
	}
	if diff := cmp.Diff(sampleTasks(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadJSONLDefaultsAndErrors(t *testing.T) {
	got, err := ReadJSONL(strings.NewReader("\n{\"id\":\"a\",\"text\":\"bare\"}\n\n"))
	if err != nil {
		t.Fatalf("ReadJSONL() failed: %v", err)
	}
	if len(got) != 1 || got[0].Priority != types.PriorityMedium || got[0].Status != types.StatusTodo {
		t.Errorf("defaults not applied: %+v", got)
	}

	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"bad json", "{\"id\":\"a\",\"text\":\"ok\"}\n{nope\n", "line 2"},
		{"missing text", "{\"id\":\"a\"}\n", "line 1"},
		{"bad priority", "{\"id\":\"a\",\"text\":\"x\",\"priority\":\"Urgent\"}\n", "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSONL(strings.NewReader(tt.input))
			if !errors.Is(err, types.ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.line) {
				t.Errorf("err = %v, want mention of %s", err, tt.line)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSONL, "json": FormatJSONL, "YAML": FormatYAML, "yml": FormatYAML} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
	if FormatForPath("tasks.yml") != FormatYAML || FormatForPath("tasks.jsonl") != FormatJSONL {
		t.Error("FormatForPath picked the wrong format")
	}
}

type recordingImporter struct {
	got      []types.Task
	existing map[string]bool
}

func (r *recordingImporter) Import(ctx context.Context, tasks []types.Task) (int, error) {
	n := 0
	for _, t := range tasks {
		r.got = append(r.got, t)
		if !r.existing[t.ID] {
			n++
		}
	}
	return n, nil
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.jsonl")
	if err := WriteFile(path, FormatJSONL, sampleTasks()); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	dry := &recordingImporter{}
	res, err := Import(context.Background(), dry, ImportOptions{Path: path, DryRun: true, Backup: true})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if res.Read != 2 || res.Imported != 0 || len(dry.got) != 0 || res.BackupCreated != "" {
		t.Errorf("dry run = %+v, importer saw %d", res, len(dry.got))
	}

	imp := &recordingImporter{existing: map[string]bool{"t2": true}}
	res, err = Import(context.Background(), imp, ImportOptions{Path: path, Backup: true})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Read != 2 || res.Imported != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.BackupCreated == "" {
		t.Error("expected a backup")
	} else if _, err := os.Stat(res.BackupCreated); err != nil {
		t.Errorf("backup missing: %v", err)
	}

	if _, err := Import(context.Background(), imp, ImportOptions{Path: filepath.Join(dir, "missing.jsonl")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tasks.yaml")
	if err := WriteFile(path, FormatForPath(path), sampleTasks()); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Assignee == nil || *got[1].Assignee != "m1" {
		t.Errorf("ReadFile() = %+v", got)
	}
}
