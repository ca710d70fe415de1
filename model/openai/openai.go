// Package openai provides a model.Model implementation using the OpenAI Chat
// Completions API. Because several local servers (LM Studio, LocalAI) expose
// the same protocol, the adapter takes a configurable base URL and doubles as
// the backend for those.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/deskagent/model"
)

// Options configure the OpenAI model adapter.
type Options struct {
	// Model is the default model identifier for chat calls.
	Model string
	// Temperature for completions.
	Temperature float64
	// MaxCompletionTokens caps the reply length.
	MaxCompletionTokens int64
	// APIKey overrides the OPENAI_API_KEY environment variable. Local
	// OpenAI compatible servers usually accept any non-empty key.
	APIKey string
	// BaseURL points the client at an alternative endpoint, e.g.
	// http://localhost:1234/v1 for LM Studio. Empty means api.openai.com.
	BaseURL string
	// ProbeTimeout bounds IsReachable. Defaults to 2s.
	ProbeTimeout time.Duration
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		ProbeTimeout:        2 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		ProbeTimeout:        2 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Info returns metadata describing this OpenAI backend.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}

// IsReachable lists models with a short timeout. The route (GET /models) is
// cheap, needs no tokens and is served by every OpenAI compatible endpoint.
func (m *Model) IsReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()

	_, err := m.client.Models.List(ctx)
	return err == nil
}

// Chat implements model.Model via a non-streaming chat completion.
func (m *Model) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	name := req.Model
	if name == "" {
		name = m.opts.Model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               name,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	return &model.ChatResponse{
		Model:   resp.Model,
		Content: resp.Choices[0].Message.Content,
		Done:    true,
	}, nil
}
