// Package proc lists, launches, runs and terminates OS processes. It
// combines gopsutil-backed process inspection with exec-based program
// control, with explicit timeouts so a frozen program can never block
// the caller.
package proc
