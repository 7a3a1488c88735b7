// Package retry runs a named operation a bounded number of times with a
// fixed delay between attempts. This is deliberately not exponential
// backoff: flaky CI externals (artifact uploads, registry pushes) recover
// on their own schedule, and the original orchestration always waited a
// flat interval.
package retry
