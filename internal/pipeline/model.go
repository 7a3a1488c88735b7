package pipeline

// Pipeline is the loaded, validated definition of one build run.
type Pipeline struct {
	Services []*Service
	Steps    []*Step
}

// Service is an ephemeral containerized dependency stood up before the
// first step and torn down by the exit-action registry.
type Service struct {
	Name  string   `hcl:"name,label"`
	Image string   `hcl:"image"`
	Args  []string `hcl:"args,optional"`
}

// Step is one unit of work dispatched to a registered runner.
type Step struct {
	Name        string            `hcl:"name,label"`
	Runner      string            `hcl:"runner"`
	Command     string            `hcl:"command,optional"`
	Args        []string          `hcl:"args,optional"`
	Environment map[string]string `hcl:"environment,optional"`

	// LogFile, when set, is tailed for the duration of the step.
	LogFile string `hcl:"log_file,optional"`

	// TokenFrom names a secret-store path whose token is fetched and
	// exposed to the step as PUBLISH_TOKEN.
	TokenFrom string `hcl:"token_from,optional"`

	// Retries and DelaySeconds configure runners that wrap their work in
	// the retry executor. Nil means the runner's defaults apply; an
	// explicit retries = 0 means a single attempt.
	Retries      *int `hcl:"retries,optional"`
	DelaySeconds *int `hcl:"delay_seconds,optional"`
}
