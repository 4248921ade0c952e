package history

// This file contains shared history utilities for recording, loading and
// parsing previous runs.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tongsgo/tongs/model"
)

const (
	runFileName  = "run.json"
	lockFileName = ".lock"
	historyDir   = "history"
)

// ErrNoHistory is returned when the history root does not exist.
var ErrNoHistory = errors.New("no runs recorded")

type Entry struct {
	Run      model.Run
	FullPath string
}

// NewRun returns a run record with a fresh ID.
func NewRun(source model.RunSource, args []string, started time.Time) model.Run {
	return model.Run{
		ID:        uuid.NewString(),
		Source:    source,
		Timestamp: started.UTC(),
		Args:      args,
	}
}

// RunDir returns the directory of a run below root:
// history/<timestamp>-<short id>.
func RunDir(root string, run model.Run) string {
	return filepath.Join(root, historyDir, run.Timestamp.UTC().Format("20060102-150405")+"-"+shortID(run.ID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Record writes run.json of run. Writers are serialized with a lock file in
// root and the file is replaced atomically, so readers never see a partial
// record.
func Record(logger zerolog.Logger, root string, run model.Run) (string, error) {
	dir := RunDir(root, run)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to lock history: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Msg("Failed to unlock history")
		}
	}()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode run: %w", err)
	}
	tmp, err := os.CreateTemp(dir, runFileName+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create run file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write run file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write run file: %w", err)
	}

	path := filepath.Join(dir, runFileName)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store run file: %w", err)
	}
	logger.Debug().Str("id", run.ID).Str("path", path).Msg("Recorded run")
	return dir, nil
}

// LoadEntries loads all runs below root, newest first. Unreadable records
// are skipped with a warning.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w in %s", ErrNoHistory, root)
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		runPath := filepath.Join(path, runFileName)
		if _, err := os.Stat(runPath); err != nil {
			return nil
		}
		run, err := parseRunJSON(runPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", runPath).Msg("Failed to parse run.json")
			return nil
		}
		entries = append(entries, Entry{Run: run, FullPath: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history directory: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Run.Timestamp.After(entries[j].Run.Timestamp)
	})
	return entries, nil
}

// Find returns the entry whose ID starts with prefix.
func Find(entries []Entry, prefix string) (Entry, error) {
	var found []Entry
	for _, e := range entries {
		if len(e.Run.ID) >= len(prefix) && e.Run.ID[:len(prefix)] == prefix {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return Entry{}, fmt.Errorf("no run with id %q", prefix)
	case 1:
		return found[0], nil
	default:
		return Entry{}, fmt.Errorf("run id %q is ambiguous (%d matches)", prefix, len(found))
	}
}

// parseRunJSON parses a run.json file.
func parseRunJSON(runPath string) (model.Run, error) {
	data, err := os.ReadFile(runPath)
	if err != nil {
		return model.Run{}, err
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}
	return run, nil
}
