// Package buildenv detects which CI provider a build is running under and
// derives the build parameters the pipeline needs: branch, commit,
// version string, test type, and database endpoints.
//
// The environment is snapshotted once at startup and everything derived
// from it lives in an immutable Build struct that is passed down
// explicitly; no component reads ambient environment variables after
// startup.
package buildenv
