package app

import (
	"context"
	"fmt"

	"github.com/vk/buildgridgo/internal/bgtask"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

// Run executes the build: launch the declared services, then run the
// steps in pipeline order, stopping at the first failure. Exit actions
// replay on every path out of here, including failures.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	// WithoutCancel: teardown subprocesses must survive the run context
	// being cancelled, or a cancelled build would leak its containers.
	defer a.teardown.Run(context.WithoutCancel(ctx))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer()
		defer a.closeHealthcheckServer(ctx)
	}

	heartbeat := &bgtask.Heartbeat{
		Interval: a.config.HeartbeatInterval,
		MaxHours: a.config.HeartbeatMaxHours,
		Out:      a.outW,
	}
	go heartbeat.Run(runCtx)

	if err := a.launchServices(runCtx); err != nil {
		return err
	}

	deps := &registry.Deps{
		Build:    a.build,
		Teardown: a.teardown,
		Launcher: a.launcher,
		Out:      a.outW,
		WorkDir:  a.config.WorkDir,
	}

	a.logger.Info("🚀 Starting build run.", "steps", len(a.pipeline.Steps), "version", a.build.Version)
	for _, step := range a.pipeline.Steps {
		runner, ok := a.registry.Runner(step.Runner)
		if !ok {
			return fmt.Errorf("no runner registered for %q", step.Runner)
		}
		if err := runner(runCtx, deps, step); err != nil {
			return fmt.Errorf("step '%s' failed: %w", step.Name, err)
		}
	}
	a.logger.Info("🏁 Build finished.", "version", a.build.Version)
	return nil
}
