package buildenv

import (
	"os"
	"strings"
)

// Provider describes one CI system: the variables that identify it and
// the variables its jobs expose for the facts we derive.
type Provider struct {
	// ID is the stable discriminant used in logs and the pipeline eval
	// context.
	ID string

	// Name is the human-readable provider name.
	Name string

	// Identify lists environment variables whose presence (non-empty)
	// marks this provider.
	Identify []string

	// BranchVars, CommitVars and BuildNumberVars are consulted in order;
	// the first non-empty value wins.
	BranchVars      []string
	CommitVars      []string
	BuildNumberVars []string
}

// Local is the fallback when no CI provider is detected; facts then come
// from the version-control tool instead of the environment.
var Local = &Provider{ID: "local", Name: "Local build"}

// providers is consulted in order; first match wins.
var providers = []*Provider{
	{
		ID:              "github",
		Name:            "GitHub Actions",
		Identify:        []string{"GITHUB_ACTIONS"},
		BranchVars:      []string{"GITHUB_HEAD_REF", "GITHUB_REF_NAME"},
		CommitVars:      []string{"GITHUB_SHA"},
		BuildNumberVars: []string{"GITHUB_RUN_NUMBER"},
	},
	{
		ID:              "gitlab",
		Name:            "GitLab CI",
		Identify:        []string{"GITLAB_CI"},
		BranchVars:      []string{"CI_COMMIT_REF_NAME", "CI_COMMIT_BRANCH"},
		CommitVars:      []string{"CI_COMMIT_SHA"},
		BuildNumberVars: []string{"CI_PIPELINE_IID", "CI_PIPELINE_ID"},
	},
	{
		ID:              "jenkins",
		Name:            "Jenkins CI",
		Identify:        []string{"JENKINS_URL"},
		BranchVars:      []string{"BRANCH_NAME", "GIT_BRANCH"},
		CommitVars:      []string{"GIT_COMMIT"},
		BuildNumberVars: []string{"BUILD_NUMBER"},
	},
	{
		ID:              "circle",
		Name:            "CircleCI",
		Identify:        []string{"CIRCLECI"},
		BranchVars:      []string{"CIRCLE_BRANCH"},
		CommitVars:      []string{"CIRCLE_SHA1"},
		BuildNumberVars: []string{"CIRCLE_BUILD_NUM"},
	},
	{
		ID:              "azure",
		Name:            "Azure Pipelines",
		Identify:        []string{"TF_BUILD"},
		BranchVars:      []string{"BUILD_SOURCEBRANCHNAME"},
		CommitVars:      []string{"BUILD_SOURCEVERSION"},
		BuildNumberVars: []string{"BUILD_BUILDID"},
	},
}

// Detect returns the provider whose identifying variables are present in
// env, or Local when none match.
func Detect(env map[string]string) *Provider {
	for _, p := range providers {
		for _, name := range p.Identify {
			if env[name] != "" {
				return p
			}
		}
	}
	return Local
}

// Environ snapshots the process environment into a map. Call it once at
// startup; later mutations of the real environment are invisible on
// purpose.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			env[name] = value
		}
	}
	return env
}

// first returns the first non-empty value among the named variables.
func first(env map[string]string, names []string) string {
	for _, name := range names {
		if v := env[name]; v != "" {
			return v
		}
	}
	return ""
}
