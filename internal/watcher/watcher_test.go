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

func TestWatcher_FiresOnChange(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w := New(dir, 50*time.Millisecond, func(datasetRef string) {
		fired.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watch a moment to attach before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "day1.csv"), []byte("a,b\n"), 0o644))

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w := New(dir, 150*time.Millisecond, func(datasetRef string) {
		fired.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "day1.csv")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond)

	// The burst collapses into a single trigger.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestWatcher_MissingPath(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), 50*time.Millisecond, func(string) {})

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch")
}
