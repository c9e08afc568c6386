package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icberg-810202/tilecatread/internal/logger"
)

func TestWatcher_StopTwice(t *testing.T) {
	w, err := New(logger.Discard(), Options{})
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_WatchRejectsFile(t *testing.T) {
	w, err := New(logger.Discard(), Options{})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // test cleanup

	file := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o600))
	assert.Error(t, w.Watch(file))
}

func TestWatcher_ReportsSettledFile(t *testing.T) {
	w, err := New(logger.Discard(), Options{SettleDelay: 30 * time.Millisecond, Extensions: []string{".json"}})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // test cleanup

	dir := t.TempDir()
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx) //nolint:errcheck // test goroutine

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o600))
	path := filepath.Join(dir, "backup.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"username":"alice"}`), 0o600))

	select {
	case ev := <-w.Events():
		assert.Equal(t, EventReady, ev.Type)
		assert.Equal(t, path, ev.Path)
		assert.Equal(t, int64(20), ev.Size)
	case <-time.After(3 * time.Second):
		t.Fatal("no event for settled file")
	}
}

type recorder struct {
	mu    sync.Mutex
	seen  []string
	calls chan struct{}
}

func (r *recorder) importer(fail string) ImportFunc {
	return func(_ context.Context, path string) error {
		r.mu.Lock()
		r.seen = append(r.seen, filepath.Base(path))
		r.mu.Unlock()
		defer func() { r.calls <- struct{}{} }()
		if strings.Contains(path, fail) {
			return errors.New("malformed backup")
		}
		return nil
	}
}

func waitCalls(t *testing.T, r *recorder, n int) {
	t.Helper()
	for range n {
		select {
		case <-r.calls:
		case <-time.After(3 * time.Second):
			t.Fatal("importer was not called")
		}
	}
}

func TestInbox_ImportsExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "waiting.json"), []byte("{}"), 0o600))

	r := &recorder{calls: make(chan struct{}, 8)}
	inbox := NewInbox(dir, nil, r.importer("broken"), Options{SettleDelay: 30 * time.Millisecond}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inbox.Run(ctx) }()

	waitCalls(t, r, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("nope"), 0o600))
	waitCalls(t, r, 1)

	cancel()
	require.NoError(t, <-done)

	r.mu.Lock()
	assert.Equal(t, []string{"waiting.json", "broken.json"}, r.seen)
	r.mu.Unlock()

	assert.FileExists(t, filepath.Join(dir, ImportedDir, "waiting.json"))
	assert.FileExists(t, filepath.Join(dir, FailedDir, "broken.json"))
	reason, err := os.ReadFile(filepath.Join(dir, FailedDir, "broken.json.err"))
	require.NoError(t, err)
	assert.Contains(t, string(reason), "malformed backup")
	assert.NoFileExists(t, filepath.Join(dir, "waiting.json"))
}
