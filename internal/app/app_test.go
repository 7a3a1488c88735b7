package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/buildgridgo/internal/pipeline"
	"github.com/vk/buildgridgo/internal/registry"
)

// setCIEnv makes the process look like a GitLab CI job so build
// parameters derive from the environment instead of a git checkout.
func setCIEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITLAB_CI", "true")
	t.Setenv("CI_COMMIT_REF_NAME", "main")
	t.Setenv("CI_COMMIT_SHA", "0123456789abcdef")
	t.Setenv("CI_PIPELINE_IID", "7")
	t.Setenv("BASE_VERSION", "")
	t.Setenv("TEST_TYPE", "")
	t.Setenv("BUILD_DB_ENGINE", "")
}

// writePipeline drops HCL content into a fresh directory and returns it.
func writePipeline(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.hcl"), []byte(content), 0o644))
	return dir
}

func TestApp_RunsStepsInOrder(t *testing.T) {
	setCIEnv(t)

	// --- Arrange ---
	workDir := t.TempDir()
	pipelineDir := writePipeline(t, `
step "first" {
  runner  = "buildtool"
  command = "sh"
  args    = ["-c", "echo one >> order.txt"]
}

step "second" {
  runner  = "buildtool"
  command = "sh"
  args    = ["-c", "echo two >> order.txt"]
}
`)
	config, err := NewConfig(Config{
		PipelinePath: pipelineDir,
		WorkDir:      workDir,
		ResourcesDir: t.TempDir(),
	})
	require.NoError(t, err)
	testApp, logBuffer := SetupAppTest(t, config)

	// --- Act ---
	runErr := testApp.Run(context.Background())

	// --- Assert ---
	require.NoError(t, runErr)
	data, err := os.ReadFile(filepath.Join(workDir, "order.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
	assert.Contains(t, logBuffer.String(), "Build finished")
}

func TestApp_StepFailureStopsRun(t *testing.T) {
	setCIEnv(t)

	// --- Arrange ---
	workDir := t.TempDir()
	pipelineDir := writePipeline(t, `
step "breaks" {
  runner  = "buildtool"
  command = "sh"
  args    = ["-c", "exit 1"]
}

step "never-runs" {
  runner  = "buildtool"
  command = "sh"
  args    = ["-c", "touch should-not-exist"]
}
`)
	config, err := NewConfig(Config{
		PipelinePath: pipelineDir,
		WorkDir:      workDir,
		ResourcesDir: t.TempDir(),
	})
	require.NoError(t, err)
	testApp, _ := SetupAppTest(t, config)

	// --- Act ---
	runErr := testApp.Run(context.Background())

	// --- Assert ---
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "step 'breaks' failed")
	assert.NoFileExists(t, filepath.Join(workDir, "should-not-exist"))
}

// cleanupModule registers a runner that records an external exit action,
// standing in for anything that acquires a resource mid-build.
type cleanupModule struct {
	marker string
}

func (m *cleanupModule) Register(r *registry.Registry) {
	r.Register("acquire", func(ctx context.Context, deps *registry.Deps, step *pipeline.Step) error {
		return deps.Teardown.Add(ctx, "sh", "-c", "touch "+m.marker)
	})
}

func TestApp_ExitActionsReplayAfterRun(t *testing.T) {
	setCIEnv(t)

	// --- Arrange ---
	resourcesDir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "cleaned-up")
	pipelineDir := writePipeline(t, `
step "grab-resource" {
  runner = "acquire"
}
`)
	config, err := NewConfig(Config{
		PipelinePath: pipelineDir,
		ResourcesDir: resourcesDir,
	})
	require.NoError(t, err)
	testApp, _ := SetupAppTest(t, config, &cleanupModule{marker: marker})

	// --- Act ---
	runErr := testApp.Run(context.Background())

	// --- Assert ---
	require.NoError(t, runErr)
	assert.FileExists(t, marker, "the recorded exit action should have run")
	leftovers, err := filepath.Glob(filepath.Join(resourcesDir, "exit_actions_*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "the registry file should be consumed by the replay")
}

func TestApp_ExitActionsReplayEvenWhenAStepFails(t *testing.T) {
	setCIEnv(t)

	// --- Arrange ---
	marker := filepath.Join(t.TempDir(), "cleaned-up")
	pipelineDir := writePipeline(t, `
step "grab-resource" {
  runner = "acquire"
}

step "breaks" {
  runner  = "buildtool"
  command = "sh"
  args    = ["-c", "exit 1"]
}
`)
	config, err := NewConfig(Config{
		PipelinePath: pipelineDir,
		ResourcesDir: t.TempDir(),
	})
	require.NoError(t, err)
	testApp, _ := SetupAppTest(t, config, &cleanupModule{marker: marker}, coreModules[0])

	// --- Act ---
	runErr := testApp.Run(context.Background())

	// --- Assert ---
	require.Error(t, runErr)
	assert.FileExists(t, marker)
}

func TestApp_HeartbeatEmitsWhileStepsRun(t *testing.T) {
	setCIEnv(t)

	// --- Arrange ---
	pipelineDir := writePipeline(t, `
step "slow" {
  runner  = "buildtool"
  command = "sh"
  args    = ["-c", "sleep 0.3"]
}
`)
	config, err := NewConfig(Config{
		PipelinePath:      pipelineDir,
		ResourcesDir:      t.TempDir(),
		HeartbeatInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	testApp, logBuffer := SetupAppTest(t, config)

	// --- Act ---
	runErr := testApp.Run(context.Background())

	// --- Assert ---
	require.NoError(t, runErr)
	assert.Contains(t, logBuffer.String(), "[heartbeat]")
}

func TestNewLogger_LevelAndFormat(t *testing.T) {
	t.Parallel()

	t.Run("info suppresses debug", func(t *testing.T) {
		t.Parallel()
		buf := &SafeBuffer{}
		logger := newLogger("info", "text", buf)
		logger.Debug("hidden")
		logger.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("json format", func(t *testing.T) {
		t.Parallel()
		buf := &SafeBuffer{}
		newLogger("info", "json", buf).Info("shown")
		assert.Contains(t, buf.String(), `"msg":"shown"`)
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		t.Parallel()
		buf := &SafeBuffer{}
		logger := newLogger("chatty", "text", buf)
		logger.Debug("hidden")
		logger.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestHealthHandler_ReportsOK(t *testing.T) {
	t.Parallel()

	a := &App{logger: newLogger("info", "text", io.Discard), config: &Config{}}
	rr := httptest.NewRecorder()

	a.healthHandler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK\n", rr.Body.String())
}

func TestNewApp_UnknownRunnerPanics(t *testing.T) {
	setCIEnv(t)

	pipelineDir := writePipeline(t, `
step "oops" {
  runner = "no-such-runner"
}
`)
	config, err := NewConfig(Config{PipelinePath: pipelineDir, ResourcesDir: t.TempDir()})
	require.NoError(t, err)

	require.Panics(t, func() {
		NewApp(&SafeBuffer{}, config)
	})
}

func TestNewApp_BrokenPipelinePanics(t *testing.T) {
	setCIEnv(t)

	pipelineDir := writePipeline(t, `step "x" {`)
	config, err := NewConfig(Config{PipelinePath: pipelineDir, ResourcesDir: t.TempDir()})
	require.NoError(t, err)

	require.Panics(t, func() {
		NewApp(&SafeBuffer{}, config)
	})
}

func TestNewConfig_RequiresPipelinePath(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PipelinePath")
}

func TestNewConfig_AppliesDefaults(t *testing.T) {
	t.Parallel()

	config, err := NewConfig(Config{PipelinePath: "pipeline.hcl"})

	require.NoError(t, err)
	assert.Equal(t, ".", config.WorkDir)
	assert.NotEmpty(t, config.ResourcesDir)
}
