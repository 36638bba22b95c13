package testutil

import (
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/honesthomesales/TODO/internal/store/mirror"
)

// NewLogger returns a logger that discards output and a hook that
// captures every entry.
func NewLogger(t *testing.T) (*log.Logger, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	return logger, hook
}

// OpenMirror opens a mirror store in a temporary directory that is
// closed when the test ends.
func OpenMirror(t *testing.T, logger *log.Logger) *mirror.Store {
	t.Helper()
	m, err := mirror.Open(filepath.Join(t.TempDir(), "mirror.db"), logger)
	if err != nil {
		t.Fatalf("failed to open mirror: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// EntriesAt returns the captured entries at level.
func EntriesAt(hook *test.Hook, level log.Level) []log.Entry {
	var out []log.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			out = append(out, *e)
		}
	}
	return out
}
