// Package registry maps runner names used in pipeline files to the code
// that executes them. Modules register their runners at startup; the
// table is populated once and read-only afterwards.
package registry
