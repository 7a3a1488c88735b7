// Package proctree terminates whole process trees. Background tasks such
// as log followers spawn their own children; killing only the tracked pid
// would orphan them, so teardown walks the OS process table and signals
// every descendant before its parent.
package proctree

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/vk/buildgridgo/internal/ctxlog"
)

// table abstracts the OS process table so that traversal and signal
// ordering can be tested without spawning real processes.
type table interface {
	children(ctx context.Context, pid int32) []int32
	terminate(ctx context.Context, pid int32)
}

// KillTree sends SIGTERM to every descendant of pid, deepest first, and
// finally to pid itself. The whole operation is best-effort cleanup: a
// process that already exited, or that we lack permission to signal, is
// silently skipped and no partial failure is reported.
func KillTree(ctx context.Context, pid int) {
	ctxlog.FromContext(ctx).Debug("Killing process tree.", "pid", pid)
	killTree(ctx, osTable{}, int32(pid))
}

// killTree recurses fully into each direct child before terminating pid,
// so grandchildren go down before children and children before the root.
func killTree(ctx context.Context, t table, pid int32) {
	for _, child := range t.children(ctx, pid) {
		killTree(ctx, t, child)
	}
	t.terminate(ctx, pid)
}

// osTable is the real process table, read through gopsutil. Children are
// computed on demand and never cached: a process can fork between any two
// queries, and a stale snapshot would leak the new child.
type osTable struct{}

func (osTable) children(ctx context.Context, pid int32) []int32 {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil
	}
	procs, err := proc.ChildrenWithContext(ctx)
	if err != nil {
		// No children, or the process vanished mid-walk. Either way
		// there is nothing left to recurse into.
		return nil
	}
	pids := make([]int32, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.Pid)
	}
	return pids
}

func (osTable) terminate(ctx context.Context, pid int32) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return
	}
	_ = proc.TerminateWithContext(ctx)
}
