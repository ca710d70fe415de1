package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/deskagent/tool"
)

// Planner names recorded in RunResult.Planner.
const (
	PlannerRules = "rules"
	PlannerModel = "model"
)

// Planner executes a goal against the tool registry and reports the
// outcome. Implementations encode every failure in the result rather
// than returning an error, so callers can always render something to
// the user.
type Planner interface {
	// Name identifies the planning strategy.
	Name() string

	// Run executes goal to completion.
	Run(ctx context.Context, goal string) *RunResult
}

// Step records a single tool invocation made while working on a goal.
type Step struct {
	// Seq is the 1-based position of the step within the run.
	Seq int `json:"seq"`

	// Thought is the planner's one-line rationale for choosing the tool.
	Thought string `json:"thought"`

	// ToolName is the name of the tool that was invoked.
	ToolName string `json:"tool"`

	// Args holds the arguments the tool was invoked with.
	Args map[string]any `json:"args,omitempty"`

	// Result is the outcome of the invocation.
	Result tool.Result `json:"result"`

	// Elapsed is the wall-clock duration of the step. For model-planned
	// steps this includes the model call that chose the tool.
	Elapsed time.Duration `json:"elapsed"`
}

// RunResult is the complete account of a single goal execution.
type RunResult struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Goal is the user goal, verbatim.
	Goal string `json:"goal"`

	// Answer is the final answer presented to the user.
	Answer string `json:"answer"`

	// Steps lists every tool invocation in order.
	Steps []Step `json:"steps"`

	// Success reports whether the run produced a non-empty answer.
	Success bool `json:"success"`

	// Planner names the strategy that produced the result.
	Planner string `json:"planner"`

	// Elapsed is the total wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`
}

func newRunResult(goal, planner string) *RunResult {
	return &RunResult{
		RunID:   uuid.NewString(),
		Goal:    goal,
		Planner: planner,
	}
}

// LastOutput returns the output of the most recent step, or "" when no
// steps were taken.
func (r *RunResult) LastOutput() string {
	if len(r.Steps) == 0 {
		return ""
	}
	return r.Steps[len(r.Steps)-1].Result.Output
}

// finalize stamps the fields derived from the rest of the result.
func (r *RunResult) finalize(start time.Time) {
	r.Success = r.Answer != ""
	r.Elapsed = time.Since(start)
}

// appendStep records a completed tool invocation on the result. start
// marks the beginning of the step, which for model-planned steps is
// before the model call.
func appendStep(r *RunResult, start time.Time, thought, toolName string, args map[string]any, res tool.Result) {
	r.Steps = append(r.Steps, Step{
		Seq:      len(r.Steps) + 1,
		Thought:  thought,
		ToolName: toolName,
		Args:     args,
		Result:   res,
		Elapsed:  time.Since(start),
	})
}
