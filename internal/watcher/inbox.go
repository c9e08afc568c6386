package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Subdirectories of an inbox that processed files are moved into.
const (
	ImportedDir = "imported"
	FailedDir   = "failed"
)

// ImportFunc imports the file at path.
type ImportFunc func(ctx context.Context, path string) error

// Inbox imports every backup file dropped into a directory. Files that
// import cleanly move to imported/, the rest to failed/ next to a .err
// file holding the reason. Files already present when Run starts are
// processed first.
type Inbox struct {
	dir    string
	accept func(name string) bool
	fn     ImportFunc
	opts   Options
	logger *slog.Logger
}

// NewInbox creates an inbox over dir. accept filters file names; nil
// accepts every .json file.
func NewInbox(dir string, accept func(name string) bool, fn ImportFunc, opts Options, logger *slog.Logger) *Inbox {
	if accept == nil {
		accept = func(name string) bool { return strings.EqualFold(filepath.Ext(name), ".json") }
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".json"}
	}
	return &Inbox{dir: dir, accept: accept, fn: fn, opts: opts, logger: logger}
}

// Run processes the inbox until ctx is cancelled.
func (in *Inbox) Run(ctx context.Context) error {
	for _, sub := range []string{ImportedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(in.dir, sub), 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
	}

	w, err := New(in.logger, in.opts)
	if err != nil {
		return err
	}
	defer w.Stop() //nolint:errcheck // shutdown path
	if err := w.Watch(in.dir); err != nil {
		return err
	}
	go w.Start(ctx) //nolint:errcheck // returns when ctx ends

	if err := in.drain(ctx); err != nil {
		return err
	}
	in.logger.Info("watching import inbox", "path", in.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events():
			if ev.Type != EventReady {
				continue
			}
			in.process(ctx, ev.Path)
		case err := <-w.Errors():
			in.logger.Warn("inbox watcher error", "error", err)
		}
	}
}

// drain processes files that were already waiting.
func (in *Inbox) drain(ctx context.Context) error {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || in.opts.shouldIgnore(e.Name()) {
			continue
		}
		in.process(ctx, filepath.Join(in.dir, e.Name()))
	}
	return nil
}

func (in *Inbox) process(ctx context.Context, path string) {
	name := filepath.Base(path)
	if filepath.Dir(path) != filepath.Clean(in.dir) || !in.accept(name) {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	if err := in.fn(ctx, path); err != nil {
		in.logger.Warn("inbox import failed", "file", name, "error", err)
		in.move(path, FailedDir)
		errPath := filepath.Join(in.dir, FailedDir, name+".err")
		if werr := os.WriteFile(errPath, []byte(err.Error()+"\n"), 0o600); werr != nil {
			in.logger.Warn("failed to record import error", "file", name, "error", werr)
		}
		return
	}

	in.logger.Info("inbox file imported", "file", name)
	in.move(path, ImportedDir)
}

func (in *Inbox) move(path, sub string) {
	dst := filepath.Join(in.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		in.logger.Warn("failed to move inbox file", "from", path, "to", dst, "error", err)
	}
}
