package dockersvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/prefixw"
	"github.com/vk/buildgridgo/internal/teardown"
)

// DetectRuntime returns the first usable container runtime binary,
// preferring docker over podman. Empty string means none is available.
func DetectRuntime(ctx context.Context) string {
	if _, err := exec.LookPath("docker"); err == nil {
		if exec.CommandContext(ctx, "docker", "info").Run() == nil {
			return "docker"
		}
	}
	if _, err := exec.LookPath("podman"); err == nil {
		return "podman"
	}
	return ""
}

// Launcher starts detached service containers and registers their
// teardown with the exit-action registry.
type Launcher struct {
	runtime      string
	resourcesDir string
	registry     *teardown.Registry
	out          io.Writer
	pid          int
}

// NewLauncher returns a launcher driving the given runtime binary.
// Cidfiles are written under resourcesDir, and container output streams
// to out prefixed with the instance name.
func NewLauncher(runtime, resourcesDir string, registry *teardown.Registry, out io.Writer) *Launcher {
	return &Launcher{
		runtime:      runtime,
		resourcesDir: resourcesDir,
		registry:     registry,
		out:          out,
		pid:          os.Getpid(),
	}
}

// Service identifies one launched container instance.
type Service struct {
	// Name is the runtime-visible container name.
	Name string

	// Image the instance was launched from.
	Image string

	// CIDFile is the side-channel file holding the container id.
	CIDFile string
}

// ContainerID reads the instance's id from its cidfile. The id is only
// available once the runtime has finished creating the container.
func (s *Service) ContainerID() (string, error) {
	data, err := os.ReadFile(s.CIDFile)
	if err != nil {
		return "", fmt.Errorf("container id not available yet: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// InstanceName derives a collision-resistant container name from an image
// reference and a process id, so concurrent builds on one host launching
// the same image never clash.
func InstanceName(image string, pid int) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, image)
	return fmt.Sprintf("%s_%d", sanitized, pid)
}

// Start launches the image detached, begins streaming its output in the
// background, and registers teardown actions in acquisition order:
// force-remove the container with its volumes, delete the cidfile, then
// kill the log follower's process tree.
func (l *Launcher) Start(ctx context.Context, image string, extraArgs ...string) (*Service, error) {
	logger := ctxlog.FromContext(ctx)

	name := InstanceName(image, l.pid)
	cidFile := filepath.Join(l.resourcesDir, name+".cid")
	if err := os.MkdirAll(l.resourcesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating resources directory: %w", err)
	}

	args := []string{"run", "--detach", "--cidfile", cidFile, "--name", name}
	args = append(args, extraArgs...)
	args = append(args, image)

	logger.Info("🐳 Launching ephemeral service.", "image", image, "name", name)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.runtime, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("launching %s: %w: %s", image, err, strings.TrimSpace(stderr.String()))
	}

	// Teardown goes on the books before anything else can fail.
	if err := l.registry.Add(ctx, l.runtime, "rm", "--force", "--volumes", name); err != nil {
		return nil, err
	}
	if err := l.registry.Add(ctx, "remove-file", cidFile); err != nil {
		return nil, err
	}

	l.followLogs(ctx, name)

	return &Service{Name: name, Image: image, CIDFile: cidFile}, nil
}

// followLogs streams the container's stdout/stderr to the launcher's
// output, each line prefixed with the instance name. The follower is a
// detached subprocess whose pid goes on the exit-action books: the
// signal-trap replay path never cancels the run context, so context
// cancellation alone cannot reach it.
func (l *Launcher) followLogs(ctx context.Context, name string) {
	logger := ctxlog.FromContext(ctx)

	w := prefixw.New(name, l.out)
	cmd := exec.CommandContext(ctx, l.runtime, "logs", "--follow", name)
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		logger.Warn("Could not start log follower for service.", "name", name, "error", err)
		return
	}

	if err := l.registry.Add(ctx, "kill-tree", strconv.Itoa(cmd.Process.Pid)); err != nil {
		logger.Warn("Could not register teardown for log follower.", "name", name, "error", err)
	}

	go func() {
		// Reap the follower; its exit is expected at teardown.
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			logger.Debug("Log follower exited.", "name", name, "error", err)
		}
		w.Close()
	}()
}
