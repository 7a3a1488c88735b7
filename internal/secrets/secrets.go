// Package secrets fetches credentials from an external secret-store
// client. Failures are reported, not fatal: the caller decides whether a
// build can proceed without the credential.
package secrets

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vk/buildgridgo/internal/ctxlog"
)

// Token invokes the named secret-store client binary to read the secret
// at path and returns the trimmed token string. An empty token is treated
// as a failure.
func Token(ctx context.Context, client string, path string) (string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Fetching secret.", "client", client, "path", path)

	cmd := exec.CommandContext(ctx, client, "read", "-field=token", path)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("secret store read for %q failed: %w", path, err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("secret store returned an empty token for %q", path)
	}
	return token, nil
}
