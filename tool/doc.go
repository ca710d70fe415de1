// Package tool implements the capability subsystem that lets planners invoke
// named, schema described operations (telemetry probes, file operations,
// process control, AI integrations) with validated arguments and a uniform
// result contract.
//
// Core pieces:
//
//   - Param: one declared parameter (name, type tag, requiredness, default)
//   - Tool: a named capability with an ordered parameter list and a handler
//   - Result: the uniform invocation outcome, success or failure
//   - Registry: the catalogue and dispatcher for a set of tools
//
// Invocation is panic safe: handler errors and panics are converted into
// failed Results and never escape Registry.Invoke, so a planner can feed any
// arguments to any name without crashing the run.
package tool
