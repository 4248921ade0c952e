package history

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tongsgo/tongs/model"
)

func TestRecordAndLoad(t *testing.T) {
	root := t.TempDir()
	logger := zerolog.Nop()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	older := NewRun(model.RunSourceOutput, []string{"tongs", "parse"}, t0)
	older.Summary = model.Summary{Total: 2, Passed: 1, Failed: 1}
	newer := NewRun(model.RunSourceEmulator, []string{"tongs", "emulate"}, t0.Add(time.Hour))
	newer.Instrumentation = &model.Instrumentation{TestPackage: "com.example.test"}

	_, err := uuid.Parse(older.ID)
	require.NoError(t, err)
	require.NotEqual(t, older.ID, newer.ID)

	dir, err := Record(logger, root, older)
	require.NoError(t, err)
	require.Equal(t, RunDir(root, older), dir)
	require.FileExists(t, filepath.Join(dir, "run.json"))
	_, err = Record(logger, root, newer)
	require.NoError(t, err)

	// A broken record is skipped.
	broken := filepath.Join(root, "history", "broken")
	require.NoError(t, os.MkdirAll(broken, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "run.json"), []byte("{"), 0644))

	entries, err := LoadEntries(logger, root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, newer.ID, entries[0].Run.ID)
	require.Equal(t, "com.example.test", entries[0].Run.Instrumentation.TestPackage)
	require.Equal(t, older.Summary, entries[1].Run.Summary)
	require.True(t, entries[1].Run.Timestamp.Equal(t0))

	found, err := Find(entries, older.ID[:8])
	require.NoError(t, err)
	require.Equal(t, older.ID, found.Run.ID)
	_, err = Find(entries, "")
	require.ErrorContains(t, err, "ambiguous")
	_, err = Find(entries, "zzzz")
	require.ErrorContains(t, err, "no run")
}

func TestRecordConcurrent(t *testing.T) {
	root := t.TempDir()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = Record(zerolog.Nop(), root, NewRun(model.RunSourceEmulator, nil, t0))
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	entries, err := LoadEntries(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 8)
}

func TestLoadEntriesMissingRoot(t *testing.T) {
	_, err := LoadEntries(zerolog.Nop(), filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, ErrNoHistory)
}
