package teardown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRecordingRegistry returns a registry with a "record" builtin that
// appends its argument to the returned slice, and a "fail" builtin that
// always errors.
func newRecordingRegistry(t *testing.T) (*Registry, *[]string) {
	t.Helper()

	var ran []string
	r := New(t.TempDir())
	r.RegisterBuiltin("record", func(ctx context.Context, args []string) error {
		ran = append(ran, args[0])
		return nil
	})
	r.RegisterBuiltin("fail", func(ctx context.Context, args []string) error {
		ran = append(ran, "fail")
		return errors.New("deliberate failure")
	})
	return r, &ran
}

func TestRun_ExecutesActionsInRegistrationOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r, ran := newRecordingRegistry(t)
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, "record", "a1"))
	require.NoError(t, r.Add(ctx, "record", "a2"))
	require.NoError(t, r.Add(ctx, "record", "a3"))

	// --- Act ---
	r.Run(ctx)

	// --- Assert ---
	assert.Equal(t, []string{"a1", "a2", "a3"}, *ran, "replay must be FIFO")
}

func TestRun_FailingActionDoesNotStopTheRest(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r, ran := newRecordingRegistry(t)
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, "record", "a1"))
	require.NoError(t, r.Add(ctx, "fail"))
	require.NoError(t, r.Add(ctx, "record", "a3"))

	// --- Act ---
	r.Run(ctx)

	// --- Assert ---
	assert.Equal(t, []string{"a1", "fail", "a3"}, *ran,
		"a failing action in the middle must not prevent later actions from running")
}

func TestRun_SecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r, ran := newRecordingRegistry(t)
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, "record", "once"))

	// --- Act ---
	r.Run(ctx)
	r.Run(ctx)

	// --- Assert ---
	assert.Equal(t, []string{"once"}, *ran, "actions must execute exactly once per process lifetime")
	_, err := os.Stat(r.Path())
	assert.True(t, os.IsNotExist(err), "the backing file must be deleted after the first replay")
}

func TestRun_WithNothingRegisteredIsNoOp(t *testing.T) {
	t.Parallel()

	r := New(t.TempDir())

	// Must not error, must not create anything.
	r.Run(context.Background())
}

func TestAdd_RequiresAnAction(t *testing.T) {
	t.Parallel()

	r := New(t.TempDir())

	err := r.Add(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one argument")
}

func TestAdd_ActionLineRoundTripsArgumentsWithSpaces(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var got []string
	r := New(t.TempDir())
	r.RegisterBuiltin("record", func(ctx context.Context, args []string) error {
		got = args
		return nil
	})
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, "record", "hello world", "it's quoted"))

	// --- Act ---
	r.Run(ctx)

	// --- Assert ---
	assert.Equal(t, []string{"hello world", "it's quoted"}, got,
		"arguments must survive the quote/split round trip through the backing file")
}

func TestRun_UnknownActionExecutesAsExternalCommand(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	r := New(dir)
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, "sh", "-c", fmt.Sprintf("echo done > %s", marker)))

	// --- Act ---
	r.Run(ctx)

	// --- Assert ---
	content, err := os.ReadFile(marker)
	require.NoError(t, err, "the external command should have created the marker file")
	assert.Equal(t, "done\n", string(content))
}

func TestSiblingProcessesGetDistinctBackingFiles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Two registries simulating two concurrent builds on the same host.
	dir := t.TempDir()
	r1 := newForPID(dir, 1111)
	r2 := newForPID(dir, 2222)

	var ran1, ran2 []string
	r1.RegisterBuiltin("record", func(ctx context.Context, args []string) error {
		ran1 = append(ran1, args[0])
		return nil
	})
	r2.RegisterBuiltin("record", func(ctx context.Context, args []string) error {
		ran2 = append(ran2, args[0])
		return nil
	})

	ctx := context.Background()
	require.NoError(t, r1.Add(ctx, "record", "first-build"))
	require.NoError(t, r2.Add(ctx, "record", "second-build"))

	// --- Act ---
	r1.Run(ctx)
	r2.Run(ctx)

	// --- Assert ---
	assert.NotEqual(t, r1.Path(), r2.Path())
	assert.Equal(t, []string{"first-build"}, ran1)
	assert.Equal(t, []string{"second-build"}, ran2)
}

func TestRegisterBuiltin_DuplicateNamePanics(t *testing.T) {
	t.Parallel()

	r := New(t.TempDir())
	r.RegisterBuiltin("record", func(ctx context.Context, args []string) error { return nil })

	assert.Panics(t, func() {
		r.RegisterBuiltin("record", func(ctx context.Context, args []string) error { return nil })
	})
}

func TestStandard_RemoveFileBuiltin(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	victim := filepath.Join(dir, "service.cid")
	require.NoError(t, os.WriteFile(victim, []byte("abc123"), 0o600))

	r := New(dir)
	for name, fn := range Standard() {
		r.RegisterBuiltin(name, fn)
	}
	ctx := context.Background()
	require.NoError(t, r.Add(ctx, "remove-file", victim))

	// --- Act ---
	r.Run(ctx)

	// --- Assert ---
	_, err := os.Stat(victim)
	assert.True(t, os.IsNotExist(err))
}
