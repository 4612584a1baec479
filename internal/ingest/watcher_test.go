package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestWatchInitialScan(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.pdf")
	writeFile(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := Watch(ctx, WatchConfig{Root: root, InitialScan: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, existing, receive(t, paths))
}

func TestWatchEmitsNewPDF(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := Watch(ctx, WatchConfig{Root: root}, nil)
	require.NoError(t, err)

	dropped := filepath.Join(root, "incoming.pdf")
	require.NoError(t, os.WriteFile(dropped, []byte("%PDF-1.4"), 0o644))
	assert.Equal(t, dropped, receive(t, paths))
}

func TestWatchIgnoresNonPDF(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := Watch(ctx, WatchConfig{Root: root}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.txt"), []byte("x"), 0o644))
	wanted := filepath.Join(root, "keep.pdf")
	require.NoError(t, os.WriteFile(wanted, []byte("%PDF-1.4"), 0o644))

	// Only the PDF comes through.
	assert.Equal(t, wanted, receive(t, paths))
}

func TestWatchDebounceEmits(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := Watch(ctx, WatchConfig{Root: root, Debounce: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	dropped := filepath.Join(root, "settling.pdf")
	require.NoError(t, os.WriteFile(dropped, []byte("%PDF-1.4"), 0o644))
	assert.Equal(t, dropped, receive(t, paths))
}

// Cancelling inside the debounce window must close the channels cleanly; a
// late timer firing after shutdown must not send anywhere.
func TestWatchDebouncedShutdown(t *testing.T) {
	for i := 0; i < 100; i++ {
		root := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())

		paths, _, err := Watch(ctx, WatchConfig{Root: root, Debounce: 2 * time.Millisecond}, nil)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(root, "drop.pdf"), []byte("%PDF-1.4"), 0o644))
		cancel()

		timeout := time.After(5 * time.Second)
		for open := true; open; {
			select {
			case _, ok := <-paths:
				open = ok
			case <-timeout:
				t.Fatal("paths did not close after cancel")
			}
		}
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	paths, _, err := Watch(ctx, WatchConfig{Root: root}, nil)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-paths:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not close after cancel")
	}
}

func TestWatchMissingRoot(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{Root: filepath.Join(t.TempDir(), "gone")}, nil)
	require.Error(t, err)
}
