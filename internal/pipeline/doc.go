// Package pipeline defines the HCL model of a build run: the ephemeral
// services to stand up and the steps to execute, in order. Expressions in
// a pipeline file may reference the environment snapshot (env.VAR) and
// the derived build parameters (build.version, build.db.image, ...).
package pipeline
