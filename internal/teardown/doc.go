// Package teardown implements the exit-action registry: a process-wide,
// append-only list of cleanup actions that runs exactly once at process
// termination, whether the process exits normally or is signalled.
//
// The list is backed by a file keyed by the current process id, so
// concurrently running sibling builds on the same host never interleave
// their registries. Each line is one shell-quoted argv; the file is the
// protocol surface other tooling may inspect, and it is deleted after the
// actions have run, which is what makes a second replay a no-op.
package teardown
