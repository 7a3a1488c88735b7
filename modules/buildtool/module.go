// Package buildtool runs the project's build tool as a subprocess. The
// subprocess exit code is the sole pass/fail signal for the step.
package buildtool

import (
	"context"
	"fmt"

	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/pipeline"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunBuildTool is the handler for the 'buildtool' runner.
func OnRunBuildTool(ctx context.Context, deps *registry.Deps, step *pipeline.Step) error {
	logger := ctxlog.FromContext(ctx)

	if err := deps.RunCommand(ctx, step); err != nil {
		return fmt.Errorf("build step '%s': %w", step.Name, err)
	}
	logger.Info("✅ Build step finished.", "step", step.Name)
	return nil
}

// Register registers the handler with the runner table.
func (m *Module) Register(r *registry.Registry) {
	r.Register("buildtool", OnRunBuildTool)
}
