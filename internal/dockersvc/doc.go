// Package dockersvc launches ephemeral containerized dependencies (the
// databases an integration run needs) and guarantees their teardown
// through the exit-action registry.
//
// The container id travels through a side-channel file written by the
// runtime's --cidfile flag rather than captured stdout: a detached launch
// returns quickly, and the indirection lets teardown actions be
// registered immediately without blocking on the launch completing.
package dockersvc
