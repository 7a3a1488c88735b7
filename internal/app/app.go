package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/buildgridgo/internal/buildenv"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/dockersvc"
	"github.com/vk/buildgridgo/internal/pipeline"
	"github.com/vk/buildgridgo/internal/registry"
	"github.com/vk/buildgridgo/internal/teardown"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle: one App instance is one build run.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	registry   *registry.Registry
	pipeline   *pipeline.Pipeline
	build      *buildenv.Build
	teardown   *teardown.Registry
	launcher   *dockersvc.Launcher
	config     *Config
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It snapshots the
// environment exactly once, derives the build parameters from it, loads
// the pipeline, and wires the runner registry. Startup problems are
// unrecoverable, so they panic; the entrypoint recovers and reports them.
func NewApp(outW io.Writer, config *Config, modules ...registry.Module) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	env := buildenv.Environ()
	build, err := buildenv.Compute(ctx, env, config.WorkDir)
	if err != nil {
		panic(fmt.Errorf("failed to compute build parameters: %w", err))
	}

	td := teardown.New(config.ResourcesDir)
	for name, fn := range teardown.Standard() {
		td.RegisterBuiltin(name, fn)
	}
	logger.Debug("Exit-action registry prepared.", "path", td.Path())

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All runner modules registered.", "count", len(modules))

	pl, err := pipeline.NewLoader().Load(ctx, config.PipelinePath, pipeline.EvalContext(env, build))
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline: %w", err))
	}

	// A step naming an unregistered runner is a mismatch between pipeline
	// and binary, caught before anything starts.
	for _, step := range pl.Steps {
		if !reg.Has(step.Runner) {
			panic(fmt.Errorf("step %q names unknown runner %q (registered: %v)", step.Name, step.Runner, reg.Names()))
		}
	}
	logger.Debug("Pipeline validated against runner registry.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		pipeline: pl,
		build:    build,
		teardown: td,
		config:   config,
	}
}

// Registry returns the application's runner registry. This is primarily
// for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Build returns the derived build parameters. This is primarily for
// testing.
func (a *App) Build() *buildenv.Build {
	return a.build
}
