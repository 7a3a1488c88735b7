package registry

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/vk/buildgridgo/internal/buildenv"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/dockersvc"
	"github.com/vk/buildgridgo/internal/pipeline"
	"github.com/vk/buildgridgo/internal/prefixw"
	"github.com/vk/buildgridgo/internal/teardown"
)

// RunFunc executes one pipeline step.
type RunFunc func(ctx context.Context, deps *Deps, step *pipeline.Step) error

// Module is implemented by every pluggable runner package.
type Module interface {
	Register(r *Registry)
}

// Deps carries the shared collaborators a runner may need.
type Deps struct {
	Build    *buildenv.Build
	Teardown *teardown.Registry
	Launcher *dockersvc.Launcher
	Out      io.Writer
	WorkDir  string
}

// RunCommand executes the step's command as a subprocess with its output
// prefixed by the step name. The build parameters are exported to the
// child so build tools can pick them up without flag plumbing.
func (d *Deps) RunCommand(ctx context.Context, step *pipeline.Step) error {
	if step.Command == "" {
		return fmt.Errorf("step '%s' has no command", step.Name)
	}

	cmd := exec.CommandContext(ctx, step.Command, step.Args...)
	cmd.Dir = d.WorkDir
	cmd.Env = append(os.Environ(), buildVars(d.Build)...)
	for key, value := range step.Environment {
		cmd.Env = append(cmd.Env, key+"="+value)
	}
	out := prefixw.New(step.Name, d.Out)
	cmd.Stdout = out
	cmd.Stderr = out

	ctxlog.FromContext(ctx).Info("▶️ Running step command.",
		"step", step.Name, "command", step.Command, "args", step.Args)
	runErr := cmd.Run()
	out.Close()
	if runErr != nil {
		return fmt.Errorf("command %q: %w", step.Command, runErr)
	}
	return nil
}

func buildVars(b *buildenv.Build) []string {
	if b == nil {
		return nil
	}
	return []string{
		"BUILD_BRANCH=" + b.Branch,
		"BUILD_COMMIT=" + b.Commit,
		"BUILD_NUMBER=" + b.BuildNumber,
		"BUILD_VERSION=" + b.Version,
		"BUILD_TEST_TYPE=" + b.TestType,
		"BUILD_DB_ENGINE=" + b.Database.Engine,
		"BUILD_DB_HOST=" + b.Database.Host,
		"BUILD_DB_PORT=" + b.Database.Port,
	}
}

// Registry is the runner-name dispatch table.
type Registry struct {
	runners map[string]RunFunc
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{runners: make(map[string]RunFunc)}
}

// Register adds a runner under the given name. Registering the same name
// twice is a programmer error and panics.
func (r *Registry) Register(name string, fn RunFunc) {
	if _, exists := r.runners[name]; exists {
		panic(fmt.Sprintf("runner %q is already registered", name))
	}
	r.runners[name] = fn
}

// Has reports whether a runner is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.runners[name]
	return ok
}

// Runner looks up the runner for name.
func (r *Registry) Runner(name string) (RunFunc, bool) {
	fn, ok := r.runners[name]
	return fn, ok
}

// Names returns the registered runner names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
