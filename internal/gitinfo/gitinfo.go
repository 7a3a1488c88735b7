// Package gitinfo queries the version-control tool for the facts a local
// (non-CI) build needs. CI providers expose the same facts as environment
// variables, so this package is only consulted as a fallback.
package gitinfo

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Facts holds the commit facts of a working tree.
type Facts struct {
	Branch      string
	Commit      string
	ShortCommit string
}

// Query runs git in dir and returns the current branch and commit.
func Query(ctx context.Context, dir string) (*Facts, error) {
	branch, err := output(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("querying branch: %w", err)
	}
	commit, err := output(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("querying commit: %w", err)
	}
	short, err := output(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("querying short commit: %w", err)
	}
	return &Facts{Branch: branch, Commit: commit, ShortCommit: short}, nil
}

func output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
