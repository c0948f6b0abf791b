package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesRelevantChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var calls atomic.Int32
	w, err := New(dir, []string{"equilibrium-data.json"}, func() { calls.Add(1) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx, nil)

	target := filepath.Join(dir, "equilibrium-data.json")
	for i := range 5 {
		require.NoError(t, os.WriteFile(target, []byte{byte('0' + i)}, 0o600))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var calls atomic.Int32
	w, err := New(dir, []string{"equilibrium-data.json"}, func() { calls.Add(1) })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "activity.jsonl"), []byte("{}\n"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNew_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := New(filepath.Join(t.TempDir(), "missing"), nil, func() {})
	require.Error(t, err)
}
