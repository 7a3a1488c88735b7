package gitinfo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a throwaway git repository with one commit on a named
// branch.
func initRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init", "--initial-branch", branch)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello"), 0o644))
	run("add", "file.txt")
	run("commit", "-m", "initial")
	return dir
}

func TestQuery_ReturnsBranchAndCommit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := initRepo(t, "feature/io")

	// --- Act ---
	facts, err := Query(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "feature/io", facts.Branch)
	assert.Len(t, facts.Commit, 40)
	assert.True(t, len(facts.ShortCommit) >= 7)
	assert.Equal(t, facts.Commit[:len(facts.ShortCommit)], facts.ShortCommit)
}

func TestQuery_FailsOutsideARepository(t *testing.T) {
	t.Parallel()

	_, err := Query(context.Background(), t.TempDir())

	require.Error(t, err)
}
