package deskagent

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deskagent/agent"
	"github.com/hupe1980/deskagent/model"
	"github.com/hupe1980/deskagent/tool"
)

// testRegistry carries a single deterministic tool so runs never touch the
// real machine.
func testRegistry() *tool.Registry {
	registry := tool.NewRegistry()
	registry.Register(tool.Tool{
		Name:        "echo_probe",
		Description: "Reply with a fixed string.",
		Category:    "test",
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			return "pong", nil, nil
		},
	})

	return registry
}

func testRules() []agent.Rule {
	return []agent.Rule{{Pattern: regexp.MustCompile(`ping`), ToolName: "echo_probe"}}
}

// -------------------- Assistant Tests --------------------

func TestNewDefaults(t *testing.T) {
	a := New()

	require.NotNil(t, a.Model())
	assert.Equal(t, "ollama", a.Model().Info().Provider)
	assert.Equal(t, 13, a.Registry().Len())
}

func TestRunUsesModelPlannerWhenReachable(t *testing.T) {
	mock := model.NewMockModel()
	mock.SetReachable(true)
	mock.AddResponse(`{"thought": "list", "tool": "echo_probe", "args": {}}`)
	mock.AddResponse(`{"thought": "done", "tool": "finish", "args": {"answer": "All good!"}}`)

	a := New(func(o *Options) {
		o.Model = mock
		o.Registry = testRegistry()
	})

	res := a.Run(context.Background(), "check the thing")

	require.True(t, res.Success)
	assert.Equal(t, agent.PlannerModel, res.Planner)
	assert.Equal(t, "All good!", res.Answer)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, "echo_probe", res.Steps[0].ToolName)
	assert.Equal(t, "pong", res.Steps[0].Result.Output)
}

func TestRunFallsBackToRulesWhenUnreachable(t *testing.T) {
	mock := model.NewMockModel()
	mock.SetReachable(false)

	a := New(func(o *Options) {
		o.Model = mock
		o.Registry = testRegistry()
		o.Rules = testRules()
	})

	res := a.Run(context.Background(), "ping the helper")

	require.True(t, res.Success)
	assert.Equal(t, agent.PlannerRules, res.Planner)
	assert.Equal(t, "pong", res.Answer)

	// The unreachable backend was never asked to chat.
	assert.Empty(t, mock.Calls())
}

func TestRunProbesPerCall(t *testing.T) {
	mock := model.NewMockModel()
	mock.SetReachable(false)

	a := New(func(o *Options) {
		o.Model = mock
		o.Registry = testRegistry()
		o.Rules = testRules()
	})

	res := a.Run(context.Background(), "ping once")
	assert.Equal(t, agent.PlannerRules, res.Planner)

	// The backend coming up is noticed on the very next run.
	mock.SetReachable(true)
	mock.AddResponse(`{"thought": "done", "tool": "finish", "args": {"answer": "back online"}}`)

	res = a.Run(context.Background(), "ping twice")
	assert.Equal(t, agent.PlannerModel, res.Planner)
	assert.Equal(t, "back online", res.Answer)
}

func TestRunFoldsModelErrorsIntoResult(t *testing.T) {
	mock := model.NewMockModel()
	mock.SetReachable(true)
	mock.AddError(errors.New("connection reset"))

	a := New(func(o *Options) {
		o.Model = mock
		o.Registry = testRegistry()
	})

	res := a.Run(context.Background(), "anything")

	require.NotNil(t, res)
	assert.Contains(t, res.Answer, "connection reset")
	assert.Empty(t, res.Steps)
}

func TestRunRespectsMaxSteps(t *testing.T) {
	mock := model.NewMockModel()
	mock.SetReachable(true)
	// The model keeps asking for tools and never finishes.
	mock.AddResponse(`{"thought": "again", "tool": "echo_probe", "args": {}}`)
	mock.AddResponse(`{"thought": "again", "tool": "echo_probe", "args": {}}`)
	mock.AddResponse(`{"thought": "again", "tool": "echo_probe", "args": {}}`)

	a := New(func(o *Options) {
		o.Model = mock
		o.Registry = testRegistry()
		o.MaxSteps = 2
	})

	res := a.Run(context.Background(), "loop forever")

	assert.Len(t, res.Steps, 2)
	assert.Equal(t, "pong", res.Answer, "step-limited runs answer with the last observation")
}

func TestRunCustomInstruction(t *testing.T) {
	mock := model.NewMockModel()
	mock.SetReachable(true)
	mock.AddResponse(`{"thought": "done", "tool": "finish", "args": {"answer": "ok"}}`)

	a := New(func(o *Options) {
		o.Model = mock
		o.Registry = testRegistry()
		o.Instruction = agent.NewInstructionFromText("You are a test harness.")
	})

	a.Run(context.Background(), "hello")

	calls := mock.Calls()
	require.NotEmpty(t, calls)
	require.NotEmpty(t, calls[0].Messages)
	assert.Contains(t, calls[0].Messages[0].Content, "You are a test harness.")
}
