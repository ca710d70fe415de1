// Package logging provides a minimal logging interface and adapters for DeskAgent.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the assistant, planners and the background daemon use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - DeskAgentLogger with contextual helpers (component, run) and domain
//     helpers for tool and model calls
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	assistant := deskagent.New(func(o *deskagent.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
