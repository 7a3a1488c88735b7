package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/buildgridgo/internal/dockersvc"
)

// launchServices stands up every service the pipeline declares. The
// launcher registers each container's removal with the exit-action
// registry before this returns, so a later failure cannot strand them.
func (a *App) launchServices(ctx context.Context) error {
	if len(a.pipeline.Services) == 0 {
		a.logger.Debug("Pipeline declares no services.")
		return nil
	}

	runtime := a.config.Runtime
	if runtime == "" {
		runtime = dockersvc.DetectRuntime(ctx)
	}
	if runtime == "" {
		return errors.New("pipeline declares services but no container runtime is available")
	}
	a.logger.Debug("Container runtime selected.", "runtime", runtime)

	a.launcher = dockersvc.NewLauncher(runtime, a.config.ResourcesDir, a.teardown, a.outW)
	for _, svc := range a.pipeline.Services {
		service, err := a.launcher.Start(ctx, svc.Image, svc.Args...)
		if err != nil {
			return fmt.Errorf("launching service '%s': %w", svc.Name, err)
		}
		a.logger.Info("Service launched.", "service", svc.Name, "container", service.Name)
	}
	return nil
}
