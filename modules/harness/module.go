// Package harness runs an integration test harness as a subprocess while
// tailing its log file into the build output.
package harness

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/buildgridgo/internal/bgtask"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/pipeline"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunHarness is the handler for the 'harness' runner. When the step
// names a log file, a tailer follows it for the duration of the command
// and is stopped once the command exits.
func OnRunHarness(ctx context.Context, deps *registry.Deps, step *pipeline.Step) error {
	logger := ctxlog.FromContext(ctx)

	tailDone := make(chan struct{})
	tailCtx, stopTail := context.WithCancel(ctx)
	defer stopTail()

	if step.LogFile != "" {
		path := step.LogFile
		if !filepath.IsAbs(path) && deps.WorkDir != "" {
			path = filepath.Join(deps.WorkDir, path)
		}
		tailer := &bgtask.Tailer{Name: step.Name, Path: path, Out: deps.Out}
		go func() {
			defer close(tailDone)
			if err := tailer.Run(tailCtx); err != nil {
				logger.Warn("Log tailer stopped with an error.", "step", step.Name, "error", err)
			}
		}()
	} else {
		close(tailDone)
	}

	runErr := deps.RunCommand(ctx, step)

	// Give the tailer its cancellation and wait so no prefixed lines land
	// after the step is reported done.
	stopTail()
	<-tailDone

	if runErr != nil {
		return fmt.Errorf("harness step '%s': %w", step.Name, runErr)
	}
	logger.Info("✅ Harness step finished.", "step", step.Name)
	return nil
}

// Register registers the handler with the runner table.
func (m *Module) Register(r *registry.Registry) {
	r.Register("harness", OnRunHarness)
}
