package documents

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/logger"
)

type recordingIngester struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingIngester) IngestFile(_ context.Context, path string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	return &Result{}, nil
}

func (r *recordingIngester) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.paths)
}

func TestShouldIngest(t *testing.T) {
	assert.True(t, shouldIngest("/docs/report.pdf"))
	assert.True(t, shouldIngest("notes.MD"))
	assert.False(t, shouldIngest("/docs/.hidden.txt"))
	assert.False(t, shouldIngest("~$draft.docx"))
	assert.False(t, shouldIngest("image.jpg"))
}

func TestWatcher_HandleEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	sub := filepath.Join(dir, "sub.txt")
	require.NoError(t, os.Mkdir(sub, 0o755))

	w := NewWatcher(&recordingIngester{}, 0, logger.Discard())

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create", fsnotify.Event{Name: file, Op: fsnotify.Create}, true},
		{"write with chmod", fsnotify.Event{Name: file, Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"chmod only", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: file, Op: fsnotify.Remove}, false},
		{"directory", fsnotify.Event{Name: sub, Op: fsnotify.Create}, false},
		{"vanished", fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := w.handleEvent(tt.event)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".secret.txt"), []byte("no"), 0o644))

	ing := &recordingIngester{}
	w := NewWatcher(ing, 20*time.Millisecond, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, dir) }()

	require.Eventually(t, func() bool {
		return slices.Contains(ing.seen(), "existing.txt")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.md"), []byte("# New"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.png"), []byte{1}, 0o644))

	require.Eventually(t, func() bool {
		return slices.Contains(ing.seen(), "new.md")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	seen := ing.seen()
	assert.NotContains(t, seen, ".secret.txt")
	assert.NotContains(t, seen, "skip.png")
}

func TestWatcher_ScheduleCoalesces(t *testing.T) {
	ing := &recordingIngester{}
	w := NewWatcher(ing, 50*time.Millisecond, logger.Discard())

	for range 5 {
		w.schedule(context.Background(), "/tmp/report.txt")
	}

	require.Eventually(t, func() bool { return len(ing.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)
	w.stop()
	assert.Equal(t, []string{"report.txt"}, ing.seen())
}

func TestWatcher_RescheduleWhileFiring(t *testing.T) {
	ing := &recordingIngester{}
	w := NewWatcher(ing, time.Microsecond, logger.Discard())
	ctx := context.Background()

	for range 100000 {
		w.schedule(ctx, "/tmp/x.txt")
	}

	require.Eventually(t, func() bool { return len(ing.seen()) > 0 }, 2*time.Second, time.Millisecond)
	assert.NotPanics(t, w.stop)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.timers)
}
