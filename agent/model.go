package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/deskagent/internal/util"
	"github.com/hupe1980/deskagent/logging"
	"github.com/hupe1980/deskagent/model"
	"github.com/hupe1980/deskagent/tool"
)

const (
	// DefaultMaxSteps bounds the plan/act loop when no option is given.
	DefaultMaxSteps = 10

	// DefaultChatTimeout bounds each individual model call.
	DefaultChatTimeout = 60 * time.Second
)

// DefaultPersona opens the system prompt when no custom instruction is
// configured.
const DefaultPersona = "You are DeskAgent, an intelligent desktop assistant with access to the user's computer files, programs and system information."

// stepLimitAnswer is returned when the loop ends without an answer and
// without a single completed step.
const stepLimitAnswer = "I could not complete the goal within the step limit."

// systemPromptTemplate frames every run. The reply contract matters
// more than the prose: the parser expects one JSON action object per
// reply, with the finish sentinel carrying the final answer.
const systemPromptTemplate = `{{.Persona}}

{{.ToolCatalogue}}

Your job is to accomplish the user's goal step by step.

Rules:
- At each step, decide which ONE tool to call next.
- Reply with ONLY a JSON object, no extra text:
  {"thought": "<why this tool>", "tool": "<tool_name>", "args": {"<param>": "<value>"}}
- When the goal is fully accomplished, reply with:
  {"thought": "<summary>", "tool": "finish", "args": {"answer": "<final answer to user>"}}
- If a tool fails, try a different approach.
- Keep thoughts concise (one sentence).`

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	// MaxSteps bounds the number of tool invocations per run.
	MaxSteps int

	// ChatTimeout bounds each individual model call.
	ChatTimeout time.Duration

	// Instruction supplies the persona paragraph of the system prompt.
	Instruction Instruction

	// Logger receives structured run events.
	Logger logging.Logger
}

// ModelAgent plans tool calls with a chat model. Each loop iteration
// sends the conversation so far, parses the reply into an action,
// executes it and feeds the observation back, until the model finishes,
// a failure ends the run or MaxSteps is reached.
type ModelAgent struct {
	model       model.Model
	registry    *tool.Registry
	maxSteps    int
	chatTimeout time.Duration
	instruction Instruction
	logger      logging.Logger
}

var _ Planner = (*ModelAgent)(nil)

// NewModelAgent creates a ModelAgent planning with m and executing
// tools from registry.
func NewModelAgent(m model.Model, registry *tool.Registry, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		MaxSteps:    DefaultMaxSteps,
		ChatTimeout: DefaultChatTimeout,
		Instruction: NewInstructionFromText(DefaultPersona),
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ModelAgent{
		model:       m,
		registry:    registry,
		maxSteps:    opts.MaxSteps,
		chatTimeout: opts.ChatTimeout,
		instruction: opts.Instruction,
		logger:      opts.Logger,
	}
}

// Name implements Planner.
func (a *ModelAgent) Name() string { return PlannerModel }

// Run drives the plan/act loop. Every failure mode ends as text in the
// result: transport errors become the answer, a reply without a JSON
// action becomes the answer verbatim, and running out of steps reports
// the last observation.
func (a *ModelAgent) Run(ctx context.Context, goal string) *RunResult {
	start := time.Now()
	result := newRunResult(goal, PlannerModel)
	info := a.model.Info()

	a.logger.Info("agent.run.start", "planner", PlannerModel, "run_id", result.RunID, "model", info.Name)

	systemPrompt, err := a.systemPrompt(ctx)
	if err != nil {
		result.Answer = fmt.Sprintf("planner error: %s", err)
		result.finalize(start)
		return result
	}

	messages := []model.Message{
		model.SystemMessage(systemPrompt),
		model.UserMessage(goal),
	}

	for stepNum := 1; stepNum <= a.maxSteps; stepNum++ {
		stepStart := time.Now()

		resp, err := a.chat(ctx, messages)
		if err != nil {
			result.Answer = fmt.Sprintf("%s error: %s", info.Provider, err)
			break
		}

		raw := strings.TrimSpace(resp.Content)

		action, ok := ParseAction(raw)
		if !ok {
			// Nothing machine-readable; treat the reply as the answer.
			result.Answer = raw
			break
		}

		if action.Tool == FinishTool {
			result.Answer = finishAnswer(action.Args, raw)
			break
		}

		res := a.registry.Invoke(ctx, action.Tool, action.Args)
		appendStep(result, stepStart, action.Thought, action.Tool, action.Args, res)

		observation := res.Output
		if !res.Success {
			observation = fmt.Sprintf("Error: %s", res.Error)
		}

		messages = append(messages,
			model.AssistantMessage(raw),
			model.UserMessage(fmt.Sprintf("Tool result:\n%s", observation)),
		)
	}

	if result.Answer == "" {
		if len(result.Steps) > 0 {
			result.Answer = result.Steps[len(result.Steps)-1].Result.Output
		} else {
			result.Answer = stepLimitAnswer
		}
	}

	result.finalize(start)
	a.logger.Info("agent.run.end", "planner", PlannerModel, "run_id", result.RunID,
		"steps", len(result.Steps), "success", result.Success, "duration_ms", result.Elapsed.Milliseconds())

	return result
}

// chat issues one model call bounded by the configured timeout.
func (a *ModelAgent) chat(ctx context.Context, messages []model.Message) (*model.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.chatTimeout)
	defer cancel()

	return a.model.Chat(ctx, model.ChatRequest{Messages: messages})
}

// systemPrompt renders the system prompt with the persona and the
// current tool catalogue. Rendering per run keeps tools registered
// after construction visible to the model.
func (a *ModelAgent) systemPrompt(ctx context.Context) (string, error) {
	persona, err := a.instruction.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve instruction: %w", err)
	}
	if persona == "" {
		persona = DefaultPersona
	}

	return util.RenderTemplate(systemPromptTemplate, map[string]any{
		"Persona":       persona,
		"ToolCatalogue": a.registry.Describe(),
	})
}

// finishAnswer extracts the final answer from the finish action's args,
// falling back to the raw reply when absent.
func finishAnswer(args map[string]any, raw string) string {
	v, ok := args["answer"]
	if !ok {
		return raw
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
