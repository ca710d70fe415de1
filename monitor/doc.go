// Package monitor collects point-in-time system resource snapshots and
// evaluates them against configurable pressure thresholds. It backs the
// system_snapshot tool and the periodic health checks of the daemon.
package monitor
