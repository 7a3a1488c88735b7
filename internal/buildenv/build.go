package buildenv

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/gitinfo"
)

const (
	// DefaultBaseVersion is used when the environment carries no
	// BASE_VERSION.
	DefaultBaseVersion = "1.0"

	// DefaultBranch is the branch that produces release (non-snapshot)
	// versions.
	DefaultBranch = "main"
)

// Database describes the database engine an integration run is built
// against.
type Database struct {
	Engine string
	Host   string
	Port   string
	Image  string
}

// Build is the immutable set of parameters derived once at startup.
// Components receive it by pointer and must not mutate it.
type Build struct {
	Provider     string
	ProviderName string
	Branch       string
	Commit       string
	BuildNumber  string
	Version      string
	TestType     string
	Database     Database
}

// knownEngines maps a database engine to its conventional port and the
// image the pipeline launches by default.
var knownEngines = map[string]Database{
	"postgres": {Engine: "postgres", Port: "5432", Image: "postgres:16"},
	"mysql":    {Engine: "mysql", Port: "3306", Image: "mysql:8"},
}

// Compute derives the Build from an environment snapshot. When no CI
// provider is detected, branch and commit come from the version-control
// tool in workDir; a failure there is fatal since every later step needs
// these facts.
func Compute(ctx context.Context, env map[string]string, workDir string) (*Build, error) {
	logger := ctxlog.FromContext(ctx)

	provider := Detect(env)
	logger.Info("CI provider detected.", "provider", provider.ID, "name", provider.Name)

	branch := first(env, provider.BranchVars)
	commit := first(env, provider.CommitVars)
	buildNumber := first(env, provider.BuildNumberVars)

	if branch == "" || commit == "" {
		facts, err := gitinfo.Query(ctx, workDir)
		if err != nil {
			return nil, fmt.Errorf("no CI branch/commit variables and git query failed: %w", err)
		}
		if branch == "" {
			branch = facts.Branch
		}
		if commit == "" {
			commit = facts.Commit
		}
	}
	if buildNumber == "" {
		buildNumber = "0"
	}

	db, err := databaseFor(env)
	if err != nil {
		return nil, err
	}

	build := &Build{
		Provider:     provider.ID,
		ProviderName: provider.Name,
		Branch:       branch,
		Commit:       commit,
		BuildNumber:  buildNumber,
		Version:      versionString(env, branch, buildNumber),
		TestType:     testType(env, branch),
		Database:     db,
	}
	logger.Info("Build parameters computed.",
		"branch", build.Branch, "version", build.Version, "test_type", build.TestType,
		"db_engine", build.Database.Engine)
	return build, nil
}

// versionString is <base>.<build number>, with a -SNAPSHOT suffix off the
// default branch.
func versionString(env map[string]string, branch, buildNumber string) string {
	base := env["BASE_VERSION"]
	if base == "" {
		base = DefaultBaseVersion
	}
	version := fmt.Sprintf("%s.%s", base, buildNumber)
	if branch != DefaultBranch {
		version += "-SNAPSHOT"
	}
	return version
}

// testType is taken from TEST_TYPE when set, otherwise derived from the
// branch: the default branch runs the full suite, release branches the
// integration suite, everything else smoke.
func testType(env map[string]string, branch string) string {
	if t := env["TEST_TYPE"]; t != "" {
		return t
	}
	switch {
	case branch == DefaultBranch:
		return "full"
	case strings.HasPrefix(branch, "release/"):
		return "integration"
	default:
		return "smoke"
	}
}

// databaseFor resolves the engine from BUILD_DB_ENGINE (default
// postgres) and applies endpoint overrides from BUILD_DB_HOST and
// BUILD_DB_PORT.
func databaseFor(env map[string]string) (Database, error) {
	engine := env["BUILD_DB_ENGINE"]
	if engine == "" {
		engine = "postgres"
	}
	db, ok := knownEngines[engine]
	if !ok {
		return Database{}, fmt.Errorf("unsupported database engine %q (supported: postgres, mysql)", engine)
	}
	db.Host = "localhost"
	if h := env["BUILD_DB_HOST"]; h != "" {
		db.Host = h
	}
	if p := env["BUILD_DB_PORT"]; p != "" {
		db.Port = p
	}
	if img := env["BUILD_DB_IMAGE"]; img != "" {
		db.Image = img
	}
	return db, nil
}
