// Package publish uploads build artifacts, wrapping the command in the
// retry executor because publication targets fail transiently.
package publish

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/pipeline"
	"github.com/vk/buildgridgo/internal/registry"
	"github.com/vk/buildgridgo/internal/retry"
	"github.com/vk/buildgridgo/internal/secrets"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunPublish is the handler for the 'publish' runner.
func OnRunPublish(ctx context.Context, deps *registry.Deps, step *pipeline.Step) error {
	logger := ctxlog.FromContext(ctx)

	if step.TokenFrom != "" {
		withToken, err := stepWithToken(ctx, step)
		if err != nil {
			return fmt.Errorf("publish step '%s': %w", step.Name, err)
		}
		step = withToken
	}

	plan := retry.NewPlan(step.Name)
	if step.Retries != nil {
		plan.Retries = uint(*step.Retries)
	}
	if step.DelaySeconds != nil {
		plan.Delay = time.Duration(*step.DelaySeconds) * time.Second
	}

	err := plan.Do(ctx, func(ctx context.Context) error {
		return deps.RunCommand(ctx, step)
	})
	if err != nil {
		return fmt.Errorf("publish step '%s': %w", step.Name, err)
	}
	logger.Info("✅ Publish step finished.", "step", step.Name)
	return nil
}

// stepWithToken returns a copy of step whose environment carries the
// credential fetched from the secret store. The original step is left
// untouched; the token is fetched once, not per retry attempt.
func stepWithToken(ctx context.Context, step *pipeline.Step) (*pipeline.Step, error) {
	client := os.Getenv("SECRETS_CLIENT")
	if client == "" {
		client = "vault"
	}
	token, err := secrets.Token(ctx, client, step.TokenFrom)
	if err != nil {
		return nil, err
	}

	augmented := *step
	augmented.Environment = make(map[string]string, len(step.Environment)+1)
	for k, v := range step.Environment {
		augmented.Environment[k] = v
	}
	augmented.Environment["PUBLISH_TOKEN"] = token
	return &augmented, nil
}

// Register registers the handler with the runner table.
func (m *Module) Register(r *registry.Registry) {
	r.Register("publish", OnRunPublish)
}
