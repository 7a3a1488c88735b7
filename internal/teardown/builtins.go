package teardown

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/vk/buildgridgo/internal/proctree"
)

// Standard returns the builtin actions every App installs:
//
//	kill-tree <pid>     terminate a background process and its descendants
//	remove-file <path>  delete an auxiliary file (cidfiles and the like)
func Standard() map[string]BuiltinFunc {
	return map[string]BuiltinFunc{
		"kill-tree":   killTreeBuiltin,
		"remove-file": removeFileBuiltin,
	}
}

func killTreeBuiltin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("kill-tree expects exactly one pid argument, got %d", len(args))
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("kill-tree: invalid pid %q: %w", args[0], err)
	}
	proctree.KillTree(ctx, pid)
	return nil
}

func removeFileBuiltin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("remove-file expects exactly one path argument, got %d", len(args))
	}
	if err := os.Remove(args[0]); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
