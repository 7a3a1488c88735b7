package app

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl files
	WorkDir      string // where step commands execute
	ResourcesDir string // exit-action registry file and cidfiles

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// Runtime names the container runtime binary. Empty means autodetect.
	Runtime string

	HeartbeatInterval time.Duration
	HeartbeatMaxHours int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.ResourcesDir == "" {
		cfg.ResourcesDir = filepath.Join(os.TempDir(), "buildgridgo")
	}

	return &cfg, nil
}
