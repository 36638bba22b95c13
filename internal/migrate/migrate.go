// Package migrate moves tasks in and out of the tracker as JSONL (one
// task per line, the same JSON the mirror stores) or YAML.
package migrate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/honesthomesales/TODO/internal/types"
)

// Format is an export encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts a format name; empty means JSONL.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "json", FormatJSONL:
		return FormatJSONL, nil
	case "yml", FormatYAML:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want jsonl or yaml)", types.ErrInvalid, s)
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSONL
}

const maxLineBytes = 1 << 20

// ReadJSONL decodes one task per non-blank line. Defaults are applied and
// each task is validated; the first bad line aborts with its line number.
func ReadJSONL(r io.Reader) ([]types.Task, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	tasks := []types.Task{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var t types.Task
		if err := sonic.UnmarshalString(line, &t); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON at line %d: %v", types.ErrInvalid, lineNum, err)
		}
		t.SetDefaults()
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		tasks = append(tasks, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL: %w", err)
	}
	return tasks, nil
}

// ReadFile reads tasks from path, choosing the decoder by extension.
func ReadFile(path string) ([]types.Task, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if FormatForPath(path) == FormatYAML {
		return ReadYAML(file)
	}
	return ReadJSONL(file)
}

// ReadYAML decodes a YAML list of tasks.
func ReadYAML(r io.Reader) ([]types.Task, error) {
	var tasks []types.Task
	if err := yaml.NewDecoder(r).Decode(&tasks); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: invalid YAML: %v", types.ErrInvalid, err)
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	for i := range tasks {
		tasks[i].SetDefaults()
		if err := tasks[i].Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
	}
	return tasks, nil
}

// WriteJSONL writes one task per line.
func WriteJSONL(w io.Writer, tasks []types.Task) error {
	bw := bufio.NewWriter(w)
	for _, t := range tasks {
		line, err := sonic.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal task %s: %w", t.ID, err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteYAML writes tasks as a YAML list.
func WriteYAML(w io.Writer, tasks []types.Task) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// Write encodes tasks in format f.
func Write(w io.Writer, f Format, tasks []types.Task) error {
	if f == FormatYAML {
		return WriteYAML(w, tasks)
	}
	return WriteJSONL(w, tasks)
}

// WriteFile exports tasks to path atomically via a temp file.
func WriteFile(path string, f Format, tasks []types.Task) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := Write(file, f, tasks); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Importer accepts a batch of tasks. The task service implements it.
type Importer interface {
	Import(ctx context.Context, tasks []types.Task) (int, error)
}

// ImportOptions contains configuration for an import.
type ImportOptions struct {
	Path   string // JSONL or YAML file
	DryRun bool   // parse and validate only
	Backup bool   // copy the input aside first
}

// ImportResult contains statistics about an import.
type ImportResult struct {
	Read          int    `json:"read"`
	Imported      int    `json:"imported"`
	Skipped       int    `json:"skipped"`
	BackupCreated string `json:"backup_created,omitempty"`
}

// Import reads opts.Path and hands the tasks to dst. Tasks whose id
// already exists are skipped by the importer and counted here.
func Import(ctx context.Context, dst Importer, opts ImportOptions) (*ImportResult, error) {
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, fmt.Errorf("input file does not exist: %w", err)
	}

	result := &ImportResult{}
	if opts.Backup && !opts.DryRun {
		backupPath := opts.Path + ".backup." + time.Now().Format("20060102-150405")
		input, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input for backup: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0o600); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
		result.BackupCreated = backupPath
	}

	tasks, err := ReadFile(opts.Path)
	if err != nil {
		return nil, err
	}
	result.Read = len(tasks)
	if opts.DryRun {
		return result, nil
	}

	n, err := dst.Import(ctx, tasks)
	if err != nil {
		return nil, err
	}
	result.Imported = n
	result.Skipped = len(tasks) - n
	return result, nil
}
