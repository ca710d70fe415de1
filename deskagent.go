// Package deskagent provides a high-level façade over the goal planners, the
// tool registry and the chat model backends. Most applications interact with
// this package by:
//  1. Creating an Assistant via New() (optionally overriding the model,
//     registry or planner settings)
//  2. Calling Run() with a free-text goal
//  3. Rendering the returned RunResult (answer plus the full step trace)
//
// Every run picks its planning strategy fresh: when the chat backend answers
// a short reachability probe the generative plan/act loop drives the tools,
// otherwise the rule-based planner handles the goal offline. All defaults are
// safe for local use; the stock toolkit exposes the user's files, programs,
// system metrics and local AI stack.
package deskagent

import (
	"context"
	"time"

	"github.com/hupe1980/deskagent/agent"
	"github.com/hupe1980/deskagent/logging"
	"github.com/hupe1980/deskagent/model"
	"github.com/hupe1980/deskagent/model/ollama"
	"github.com/hupe1980/deskagent/tool"
	"github.com/hupe1980/deskagent/toolkit"
)

// Options configures the Assistant instance.
type Options struct {
	// Model is the chat backend probed on every run. Defaults to a local
	// Ollama adapter.
	Model model.Model

	// Registry supplies the tools available to both planners. Defaults to
	// the full built-in toolkit.
	Registry *tool.Registry

	// MaxSteps bounds the generative planner's tool invocations per run.
	MaxSteps int

	// ChatTimeout bounds each individual model call.
	ChatTimeout time.Duration

	// Instruction overrides the generative planner's persona paragraph.
	Instruction agent.Instruction

	// Rules overrides the rule-based planner's routing table.
	Rules []agent.Rule

	// Logger receives structured events from every component.
	Logger logging.Logger
}

// Assistant is the high-level façade aggregating the planners, the chat
// backend and the tool registry.
type Assistant struct {
	model      model.Model
	registry   *tool.Registry
	generative *agent.ModelAgent
	rules      *agent.RuleAgent
	logger     logging.Logger
}

// New creates an Assistant with optional overrides. An unset model defaults
// to local Ollama; an unset registry gets every built-in tool.
func New(optFns ...func(o *Options)) *Assistant {
	opts := Options{
		MaxSteps:    agent.DefaultMaxSteps,
		ChatTimeout: agent.DefaultChatTimeout,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		opts.Model = ollama.NewModel()
	}

	if opts.Registry == nil {
		opts.Registry = toolkit.DefaultRegistry(func(o *toolkit.Options) {
			o.Logger = opts.Logger
		})
	}

	generative := agent.NewModelAgent(opts.Model, opts.Registry, func(o *agent.ModelAgentOptions) {
		o.MaxSteps = opts.MaxSteps
		o.ChatTimeout = opts.ChatTimeout
		if opts.Instruction != (agent.Instruction{}) {
			o.Instruction = opts.Instruction
		}
		o.Logger = opts.Logger
	})

	rules := agent.NewRuleAgent(opts.Registry, func(o *agent.RuleAgentOptions) {
		if len(opts.Rules) > 0 {
			o.Rules = opts.Rules
		}
		o.Logger = opts.Logger
	})

	return &Assistant{
		model:      opts.Model,
		registry:   opts.Registry,
		generative: generative,
		rules:      rules,
		logger:     opts.Logger,
	}
}

// Model returns the configured chat backend.
func (a *Assistant) Model() model.Model { return a.model }

// Registry returns the tool registry shared by both planners.
func (a *Assistant) Registry() *tool.Registry { return a.registry }

// Run executes goal and always returns a result; every failure mode folds
// into the RunResult rather than surfacing as an error.
//
// The planner is chosen fresh per call: a backend that answers the
// reachability probe gets the generative loop, anything else falls back to
// the rule table. A backend coming up or going down between calls is picked
// up automatically.
func (a *Assistant) Run(ctx context.Context, goal string) *agent.RunResult {
	planner := a.planner(ctx)

	a.logger.Info("assistant.run", "planner", planner.Name(), "provider", a.model.Info().Provider)

	return planner.Run(ctx, goal)
}

func (a *Assistant) planner(ctx context.Context) agent.Planner {
	if a.model.IsReachable(ctx) {
		return a.generative
	}

	a.logger.Warn("assistant.fallback", "provider", a.model.Info().Provider)

	return a.rules
}
