package teardown

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/kballard/go-shellquote"
	"github.com/vk/buildgridgo/internal/ctxlog"
)

// BuiltinFunc is a registered in-process action handler. It receives the
// action's arguments, argv[0] having been consumed as the builtin name.
type BuiltinFunc func(ctx context.Context, args []string) error

// Registry records cleanup actions and replays them at teardown.
//
// Actions replay in registration order (FIFO). Call sites register a
// resource's teardown immediately after acquiring the resource, so FIFO
// replay correlates with acquisition order; that convention is the
// callers' to uphold, not enforced here.
type Registry struct {
	mu       sync.Mutex
	path     string
	builtins map[string]BuiltinFunc
	armOnce  sync.Once
}

// New returns a registry backed by a file scoped to the current process
// id, under dir.
func New(dir string) *Registry {
	return newForPID(dir, os.Getpid())
}

// newForPID exists so tests can simulate concurrent sibling processes.
func newForPID(dir string, pid int) *Registry {
	return &Registry{
		path:     filepath.Join(dir, fmt.Sprintf("exit_actions_%d", pid)),
		builtins: make(map[string]BuiltinFunc),
	}
}

// Path returns the location of the backing file.
func (r *Registry) Path() string {
	return r.path
}

// RegisterBuiltin maps an action name to an in-process handler, resolved
// once at startup. Registering the same name twice is a programmer error.
func (r *Registry) RegisterBuiltin(name string, fn BuiltinFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builtins[name]; exists {
		panic(fmt.Sprintf("teardown builtin '%s' already registered", name))
	}
	r.builtins[name] = fn
}

// Add appends one action to the registry. The action is stored as a
// single shell-quoted line, so it round-trips verbatim when re-split at
// replay time. The first Add arms the termination trap; an empty action
// is an error the caller should treat as fatal.
func (r *Registry) Add(ctx context.Context, action ...string) error {
	if len(action) == 0 {
		return errors.New("teardown: Add requires at least one argument (the action command)")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening registry file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, shellquote.Join(action...)); err != nil {
		return fmt.Errorf("recording exit action: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("Exit action recorded.", "action", action)
	r.arm(ctx)
	return nil
}

// arm installs the termination trap. It runs under r.mu; armOnce keeps
// subsequent Adds from stacking handlers.
func (r *Registry) arm(ctx context.Context) {
	r.armOnce.Do(func() {
		logger := ctxlog.FromContext(ctx)
		logger.Debug("Arming teardown trap.", "path", r.path)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig, ok := <-sigCh
			if !ok {
				return
			}
			logger.Warn("⚠️ Termination signal received, running exit actions.", "signal", sig.String())
			r.Run(ctx)
			os.Exit(1)
		}()
	})
}

// Run replays all recorded actions in registration order and deletes the
// backing file. A failing action is logged and swallowed so the rest of
// the cleanup still runs. When the file does not exist, because nothing
// was registered or a previous Run already consumed it, Run is a no-op.
func (r *Registry) Run(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger := ctxlog.FromContext(ctx)

	f, err := os.Open(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not open exit-action registry.", "path", r.path, "error", err)
		}
		return
	}

	logger.Info("🧹 Running exit actions.", "path", r.path)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		r.runAction(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Stopped reading exit-action registry early.", "error", err)
	}
	f.Close()

	if err := os.Remove(r.path); err != nil {
		logger.Warn("Could not delete exit-action registry file.", "path", r.path, "error", err)
	}
}

// runAction executes one recorded line: a builtin when argv[0] matches
// the builtin table, an external command otherwise. Never returns an
// error; cleanup must not blow up the surrounding teardown.
func (r *Registry) runAction(ctx context.Context, line string) {
	logger := ctxlog.FromContext(ctx)

	argv, err := shellquote.Split(line)
	if err != nil || len(argv) == 0 {
		logger.Warn("Skipping malformed exit action.", "line", line, "error", err)
		return
	}

	logger.Debug("Running exit action.", "action", argv)
	if fn, ok := r.builtins[argv[0]]; ok {
		if err := fn(ctx, argv[1:]); err != nil {
			logger.Warn("Builtin exit action failed.", "action", argv, "error", err)
		}
		return
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		logger.Warn("Exit action failed.", "action", argv, "error", err)
	}
}
