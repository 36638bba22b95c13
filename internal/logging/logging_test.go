package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileAndEcho(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "todo.log")

	logger, closer, err := New(Options{Level: "info", File: path, MaxSizeMB: 1, Stderr: &stderr})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.WithField("component", "test").Info("queued action")
	logger.Warn("remote unreachable")
	logger.Debug("hidden")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	file := string(data)
	if !strings.Contains(file, "queued action") || !strings.Contains(file, "component=test") {
		t.Errorf("file missing info entry:\n%s", file)
	}
	if !strings.Contains(file, "remote unreachable") {
		t.Errorf("file missing warning:\n%s", file)
	}
	if strings.Contains(file, "hidden") {
		t.Error("debug entry written at info level")
	}

	echoed := stderr.String()
	if strings.Contains(echoed, "queued action") {
		t.Error("info entry echoed to stderr")
	}
	if !strings.Contains(echoed, "remote unreachable") {
		t.Errorf("warning not echoed: %q", echoed)
	}
}

func TestVerbose(t *testing.T) {
	var stderr bytes.Buffer
	logger, _, err := New(Options{Level: "warn", Verbose: true, Stderr: &stderr})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("probe ok")
	if !strings.Contains(stderr.String(), "probe ok") {
		t.Errorf("verbose should echo debug entries, got %q", stderr.String())
	}
}

func TestQuietLevel(t *testing.T) {
	var stderr bytes.Buffer
	logger, _, err := New(Options{Level: "error", Stderr: &stderr})
	if err != nil {
		t.Fatal(err)
	}
	logger.Warn("ignored")
	logger.Error("shown")
	if got := stderr.String(); strings.Contains(got, "ignored") || !strings.Contains(got, "shown") {
		t.Errorf("stderr = %q", got)
	}
}

func TestInvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "chatty"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
