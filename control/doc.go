// Package control holds the server-level ambient state that sits above
// individual sessions: a hot-reloadable ConfigStore for default
// session.Options, and a MetricsRegistry for per-connection counters.
// Author: momentics <momentics@gmail.com>
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for hot-reload
//   - Metrics telemetry snapshots
package control
