package model

import (
	"context"
)

// Message roles understood by every backend adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a chat conversation.
type Message struct {
	Role    string `json:"role"` // system, user or assistant
	Content string `json:"content"`
}

// SystemMessage builds a system role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ChatRequest captures the normalized input for one chat completion call.
// An empty Model falls back to the backend's configured default.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// ChatResponse is the normalized outcome of a successful chat call. Transport
// and protocol failures are reported through the error return of Chat, never
// in-band.
type ChatResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// Info contains metadata about a backend implementation.
type Info struct {
	Name     string `json:"name"`     // default model identifier
	Provider string `json:"provider"` // "ollama", "openai", "anthropic", "mock"
}

// Model is the minimal interface planners use to drive generation.
//
// IsReachable must be cheap: it performs a short, bounded probe (list models,
// hit a health route) and never blocks longer than its internal timeout. The
// façade calls it once per run to pick a planner, so implementations must not
// cache global reachability state.
type Model interface {
	// Info returns information about the backend implementation.
	Info() Info

	// IsReachable reports whether the backend can currently serve chat calls.
	IsReachable(ctx context.Context) bool

	// Chat sends the full conversation and returns the assistant reply.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
