// Package orchestrator runs the background monitoring loop: it periodically
// samples system, GPU and process metrics, publishes snapshots and threshold
// alerts on the message bus, routes alerts through the notification center,
// and forwards file change events from watched directories.
package orchestrator
