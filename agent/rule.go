package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/deskagent/logging"
	"github.com/hupe1980/deskagent/tool"
)

// FallbackTool is invoked when no rule matches the goal.
const FallbackTool = "system_snapshot"

// fallbackPrefix opens the answer produced for goals no rule matched.
const fallbackPrefix = "I'm not sure how to handle that specific request yet, but here is the current system status:\n\n"

// RuleAgentOptions configures a RuleAgent instance.
//
// Use functional options with NewRuleAgent to override defaults.
type RuleAgentOptions struct {
	// Rules is the ordered routing table. The first matching rule wins.
	Rules []Rule

	// Fallback is the tool invoked when no rule matches.
	Fallback string

	// Logger receives structured run events.
	Logger logging.Logger
}

// RuleAgent plans exactly one tool invocation per goal from an ordered
// pattern table. It needs no model backend, which makes it the planner
// of last resort when none is reachable.
type RuleAgent struct {
	registry *tool.Registry
	rules    []Rule
	fallback string
	logger   logging.Logger
}

var _ Planner = (*RuleAgent)(nil)

// NewRuleAgent creates a RuleAgent executing tools from registry.
func NewRuleAgent(registry *tool.Registry, optFns ...func(o *RuleAgentOptions)) *RuleAgent {
	opts := RuleAgentOptions{
		Rules:    DefaultRules(),
		Fallback: FallbackTool,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &RuleAgent{
		registry: registry,
		rules:    opts.Rules,
		fallback: opts.Fallback,
		logger:   opts.Logger,
	}
}

// Name implements Planner.
func (a *RuleAgent) Name() string { return PlannerRules }

// Run matches goal against the rule table and invokes the first
// matching tool. Patterns are tested against the lower-cased goal while
// argument extraction sees the goal verbatim, so paths and quoted
// values keep their case. When nothing matches, the fallback tool runs
// and the answer says so.
func (a *RuleAgent) Run(ctx context.Context, goal string) *RunResult {
	start := time.Now()
	result := newRunResult(goal, PlannerRules)

	a.logger.Info("agent.run.start", "planner", PlannerRules, "run_id", result.RunID)

	goalLower := strings.ToLower(goal)
	matched := false

	for _, rule := range a.rules {
		if !rule.Pattern.MatchString(goalLower) {
			continue
		}
		matched = true

		args := map[string]any{}
		if rule.Extract != nil {
			args = rule.Extract(goal)
		}

		stepStart := time.Now()
		res := a.registry.Invoke(ctx, rule.ToolName, args)
		appendStep(result, stepStart, fmt.Sprintf("Goal matches pattern for %q", rule.ToolName), rule.ToolName, args, res)

		if res.Success {
			result.Answer = res.Output
		} else {
			result.Answer = res.String()
		}
		break
	}

	if !matched {
		stepStart := time.Now()
		res := a.registry.Invoke(ctx, a.fallback, map[string]any{})
		appendStep(result, stepStart, "No specific tool matched; showing system status", a.fallback, map[string]any{}, res)

		result.Answer = fallbackPrefix + res.Output
	}

	result.finalize(start)
	a.logger.Info("agent.run.end", "planner", PlannerRules, "run_id", result.RunID,
		"steps", len(result.Steps), "success", result.Success, "duration_ms", result.Elapsed.Milliseconds())

	return result
}
