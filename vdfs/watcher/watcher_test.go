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

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(Config{DebounceDelay: 50 * time.Millisecond, MaxDebounceDelay: 500 * time.Millisecond}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWatcher_ReportsChangedRoot(t *testing.T) {
	docs := t.TempDir()
	engine := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "guide"), 0o755))

	var seen atomic.Int32
	w := newWatcher(t, WithEventHook(func(Event) { seen.Add(1) }))
	require.NoError(t, w.Watch("project", docs, ExtensionFilter([]string{".md"}, ".docignore")))
	require.NoError(t, w.Watch("engine", engine, nil))
	w.Start(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(docs, "guide", "setup.md"), []byte("# Setup"), 0o644))

	b := receive(t, w.Batches(), 5*time.Second)
	assert.Equal(t, "project", b.Key)
	require.NotEmpty(t, b.Events)
	assert.Equal(t, filepath.Join(docs, "guide", "setup.md"), b.Events[0].Path)
	assert.Positive(t, seen.Load())
}

func TestWatcher_FiltersIrrelevantFiles(t *testing.T) {
	docs := t.TempDir()
	w := newWatcher(t)
	require.NoError(t, w.Watch("project", docs, ExtensionFilter([]string{".md"})))
	w.Start(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(docs, "image.png"), []byte("png"), 0o644))
	select {
	case b := <-w.Batches():
		t.Fatalf("unexpected batch %+v", b)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(docs, "README.MD"), []byte("# Readme"), 0o644))
	b := receive(t, w.Batches(), 5*time.Second)
	assert.Equal(t, "project", b.Key)
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	docs := t.TempDir()
	w := newWatcher(t)
	require.NoError(t, w.Watch("project", docs, ExtensionFilter([]string{".md"})))
	w.Start(context.Background())

	sub := filepath.Join(docs, "faq")
	require.NoError(t, os.Mkdir(sub, 0o755))
	receive(t, w.Batches(), 5*time.Second)

	require.Eventually(t, func() bool {
		if err := os.WriteFile(filepath.Join(sub, "general.md"), []byte("# FAQ"), 0o644); err != nil {
			return false
		}
		select {
		case b := <-w.Batches():
			return b.Key == "project"
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := newWatcher(t)
	err := w.Watch("project", filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestWatcher_Close(t *testing.T) {
	w, err := New(Config{})
	require.NoError(t, err)
	w.Start(context.Background())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Batches()
	assert.False(t, ok)
	assert.ErrorIs(t, w.Watch("project", t.TempDir(), nil), ErrClosed)
}

func TestExtensionFilter(t *testing.T) {
	f := ExtensionFilter([]string{".md", ".markdown"}, ".docignore")
	assert.True(t, f("/docs/a.md"))
	assert.True(t, f("/docs/A.Markdown"))
	assert.True(t, f("/docs/.docignore"))
	assert.False(t, f("/docs/a.txt"))
}
