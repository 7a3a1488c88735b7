package bgtask

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/prefixw"
)

// DefaultPollInterval is how often a Tailer re-checks for a file that
// does not exist yet.
const DefaultPollInterval = 2 * time.Second

// Tailer waits for a file to appear, dumps what is already there, and
// then follows appended output until its context is cancelled. Every line
// is prefixed with the tailer's name.
type Tailer struct {
	// Name prefixes each emitted line.
	Name string

	// Path is the file to follow. It does not have to exist yet.
	Path string

	// Out receives the prefixed output.
	Out io.Writer

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

// Run blocks until ctx is cancelled. Cancellation is the normal way to
// stop a tailer and is not reported as an error.
func (t *Tailer) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("tailer", t.Name, "path", t.Path)
	interval := t.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	// Phase one: poll until the file exists.
	for {
		if _, err := os.Stat(t.Path); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}

	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	logger.Debug("Tailer switching to follow mode.")

	out := prefixw.New(t.Name, t.Out)
	defer out.Close()
	if err := drain(f, out); err != nil {
		return err
	}

	// Phase two: follow appends. fsnotify wakes us promptly; the ticker
	// is a fallback for filesystems with unreliable notification.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(t.Path); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-watcher.Events:
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("Tailed file went away, stopping.")
				return nil
			}
			if err := drain(f, out); err != nil {
				return err
			}
		case err := <-watcher.Errors:
			logger.Warn("Tailer watch error.", "error", err)
		case <-ticker.C:
			if err := drain(f, out); err != nil {
				return err
			}
		}
	}
}

// drain copies everything currently readable from f to out.
func drain(f *os.File, out io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
