package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hupe1980/deskagent/internal/util"
)

// DefaultRunTimeout bounds Run when the spec does not set one.
const DefaultRunTimeout = 30 * time.Second

// RunSpec describes a program invocation whose output is captured.
type RunSpec struct {
	// Command is the executable name or full path. It is split on
	// whitespace, so use Args for values containing spaces.
	Command string

	// Args are additional arguments appended after the command.
	Args []string

	// InputData is written to the program's stdin when non-empty.
	InputData string

	// Timeout bounds the run; DefaultRunTimeout applies when zero.
	Timeout time.Duration

	// Dir is the working directory for the program.
	Dir string
}

// RunResult captures the outcome of a completed (or killed) Run.
type RunResult struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	TimedOut bool   `json:"timed_out"`
}

// String renders a compact one-result summary.
func (r RunResult) String() string {
	if r.TimedOut {
		return fmt.Sprintf("[TIMEOUT] %q", r.Command)
	}
	return fmt.Sprintf("%q exited %d\n  stdout: %q\n  stderr: %q",
		r.Command, r.ExitCode, util.Truncate(r.Stdout, 200), util.Truncate(r.Stderr, 200))
}

// LaunchSpec describes a program started detached in the background.
type LaunchSpec struct {
	// Command is the executable name or full path, split on whitespace.
	Command string

	// Args are additional arguments appended after the command.
	Args []string

	// Dir is the working directory for the program.
	Dir string

	// Env holds extra environment variables merged over the current
	// environment.
	Env map[string]string
}

// LaunchResult captures the outcome of starting a detached program.
type LaunchResult struct {
	Command string `json:"command"`
	PID     int32  `json:"pid"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// String renders a compact one-line summary.
func (r LaunchResult) String() string {
	if r.Success {
		return fmt.Sprintf("Launched %q → PID %d", r.Command, r.PID)
	}
	return fmt.Sprintf("Failed to launch %q: %s", r.Command, r.Error)
}

// Run executes spec.Command, optionally feeding InputData to stdin, and
// captures stdout and stderr. Failures are reported in the result, not
// as an error, so callers always get exit details back.
func (m *Manager) Run(ctx context.Context, spec RunSpec) RunResult {
	name, args, err := splitCommand(spec.Command, spec.Args)
	if err != nil {
		return RunResult{Command: spec.Command, ExitCode: -1, Stderr: err.Error()}
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = spec.Dir
	if spec.InputData != "" {
		cmd.Stdin = strings.NewReader(spec.InputData)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		m.logger.Warn("proc.run.timeout", "command", spec.Command, "timeout", timeout.String())
		return RunResult{Command: spec.Command, TimedOut: true}
	}

	result := RunResult{
		Command: spec.Command,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	switch {
	case runErr == nil:
		result.ExitCode = 0
	case cmd.ProcessState != nil:
		result.ExitCode = cmd.ProcessState.ExitCode()
	default:
		// The program never started.
		result.ExitCode = -1
		if errors.Is(runErr, exec.ErrNotFound) {
			result.Stderr = fmt.Sprintf("executable not found: %q", name)
		} else {
			result.Stderr = runErr.Error()
		}
	}

	return result
}

// Launch starts spec.Command detached from the caller: output is
// discarded and the process is not waited on, so it survives after the
// assistant exits.
func (m *Manager) Launch(ctx context.Context, spec LaunchSpec) LaunchResult {
	name, args, err := splitCommand(spec.Command, spec.Args)
	if err != nil {
		return LaunchResult{Command: spec.Command, Error: err.Error()}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		env := os.Environ()
		for k, v := range spec.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	if err := cmd.Start(); err != nil {
		msg := err.Error()
		if errors.Is(err, exec.ErrNotFound) {
			msg = fmt.Sprintf("executable not found: %q", name)
		}
		m.logger.Error("proc.launch.failed", "command", spec.Command, "error", msg)
		return LaunchResult{Command: spec.Command, Error: msg}
	}

	pid := int32(cmd.Process.Pid)

	// Reap the child in the background to avoid leaving a zombie.
	go func() { _ = cmd.Wait() }()

	m.logger.Info("proc.launch", "command", spec.Command, "pid", pid)
	return LaunchResult{Command: spec.Command, PID: pid, Success: true}
}

// splitCommand splits command on whitespace and appends extra args.
func splitCommand(command string, extra []string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, errors.New("empty command")
	}
	return fields[0], append(fields[1:], extra...), nil
}
