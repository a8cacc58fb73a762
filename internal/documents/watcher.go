package documents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/docchat/docchat/internal/errs"
)

// DefaultDebounce is how long a path must be quiet before it is ingested
const DefaultDebounce = 500 * time.Millisecond

// FileIngester is what the watcher feeds
type FileIngester interface {
	IngestFile(ctx context.Context, path string) (*Result, error)
}

// Watcher ingests supported files as they appear or change in a directory
type Watcher struct {
	ingester FileIngester
	debounce time.Duration
	logger   *log.Logger

	mu     sync.Mutex
	timers map[string]*pending
	seq    uint64
	wg     sync.WaitGroup
}

// pending is the debounce timer armed for one path. seq identifies the
// latest arming so a superseded callback knows to do nothing.
type pending struct {
	timer *time.Timer
	seq   uint64
}

// NewWatcher creates a watcher. debounce <= 0 uses DefaultDebounce.
func NewWatcher(ingester FileIngester, debounce time.Duration, logger *log.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		ingester: ingester,
		debounce: debounce,
		logger:   logger,
		timers:   make(map[string]*pending),
	}
}

// Run ingests the supported files already in dir, then watches it until ctx
// is done. Ingestion failures are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, e := range entries {
		if path := filepath.Join(dir, e.Name()); !e.IsDir() && shouldIngest(path) {
			w.ingest(ctx, path)
		}
	}

	w.logger.Info("watching for documents", "dir", dir)
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleEvent(event); ok {
				w.schedule(ctx, path)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

// handleEvent returns the path to ingest for create and write events on
// visible, supported regular files.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, shouldIngest(event.Name)
}

// schedule (re)starts the debounce for path. A timer is never reset: the
// old one is stopped and a fresh one armed, and only the callback holding the
// current seq ingests.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.timers[path]; ok && p.timer.Stop() {
		w.wg.Done()
	}

	w.seq++
	seq := w.seq
	w.wg.Add(1)
	p := &pending{seq: seq}
	p.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		cur, ok := w.timers[path]
		current := ok && cur.seq == seq
		if current {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		if current {
			w.ingest(ctx, path)
		}
	})
	w.timers[path] = p
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	res, err := w.ingester.IngestFile(ctx, path)
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		w.logger.Warn("skipping empty document", "path", path)
	case err != nil:
		w.logger.Error("failed to ingest document", "path", path, "err", err)
	case res.Skipped:
		w.logger.Debug("document unchanged", "path", path)
	}
}

// stop cancels pending timers and waits for running ingestions
func (w *Watcher) stop() {
	w.mu.Lock()
	for path, p := range w.timers {
		if p.timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func shouldIngest(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	_, err := DetectKind(path, "")
	return err == nil
}
