// Package logging builds the process logger: every entry at the configured
// level goes to a rotated log file, and warnings (everything, with
// Verbose) are echoed to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Verbose lowers both outputs to debug.
	Verbose bool

	// Stderr receives the echoed entries. Nil means os.Stderr.
	Stderr io.Writer
}

// New creates a logger. The returned closer flushes and closes the log
// file.
func New(opts Options) (*log.Logger, io.Closer, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = l
	}
	echo := min(level, log.WarnLevel)
	if opts.Verbose {
		level, echo = log.DebugLevel, log.DebugLevel
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger := log.New()
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		logger.SetOutput(rotated)
		closer = rotated
	} else {
		logger.SetOutput(io.Discard)
	}

	logger.AddHook(&echoHook{
		out:       stderr,
		threshold: echo,
		formatter: &log.TextFormatter{DisableTimestamp: !opts.Verbose},
	})
	return logger, closer, nil
}

// echoHook copies entries at or above threshold to out.
type echoHook struct {
	out       io.Writer
	threshold log.Level
	formatter log.Formatter
}

func (h *echoHook) Levels() []log.Level {
	var levels []log.Level
	for _, l := range log.AllLevels {
		if l <= h.threshold {
			levels = append(levels, l)
		}
	}
	return levels
}

func (h *echoHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
