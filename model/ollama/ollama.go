// Package ollama provides a model.Model implementation backed by a local
// Ollama server. It speaks the JSON routes DeskAgent needs (/api/tags for
// reachability and model listing, /api/chat and /api/generate for
// completions, /api/pull for downloads) over plain net/http; there is no
// official Go SDK to wrap.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/deskagent/model"
)

const (
	// DefaultBaseURL is the standard local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is used when a chat request names no model.
	DefaultModel = "llama3"
)

// Options configures the Ollama adapter.
type Options struct {
	// BaseURL of the Ollama server. Defaults to DefaultBaseURL.
	BaseURL string
	// Model is the default model identifier for chat calls.
	Model string
	// HTTPClient allows injecting a custom client (tests, proxies).
	HTTPClient *http.Client
	// ProbeTimeout bounds IsReachable. Defaults to 2s.
	ProbeTimeout time.Duration
}

// Model wraps an Ollama server behind the generic model.Model interface.
type Model struct {
	baseURL      string
	model        string
	client       *http.Client
	probeTimeout time.Duration
}

// NewModel creates a new Ollama model adapter.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		BaseURL:      DefaultBaseURL,
		Model:        DefaultModel,
		HTTPClient:   &http.Client{},
		ProbeTimeout: 2 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		baseURL:      opts.BaseURL,
		model:        opts.Model,
		client:       opts.HTTPClient,
		probeTimeout: opts.ProbeTimeout,
	}
}

// Info returns metadata describing this Ollama backend.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.model, Provider: "ollama"}
}

// BaseURL returns the configured server address.
func (m *Model) BaseURL() string { return m.baseURL }

// IsReachable probes /api/tags with a short timeout. Only a 200 counts as up:
// anything else means the server is absent, still starting, or misconfigured.
func (m *Model) IsReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

type chatPayload struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

type chatReply struct {
	Model   string        `json:"model"`
	Message model.Message `json:"message"`
	Done    bool          `json:"done"`
}

// Chat implements model.Model against POST /api/chat with streaming disabled.
// An empty reply body is normalized to a fixed placeholder so planners always
// see some text on a successful call.
func (m *Model) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	name := req.Model
	if name == "" {
		name = m.model
	}

	body, err := json.Marshal(chatPayload{Model: name, Messages: req.Messages, Stream: false})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var out chatReply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}

	content := out.Message.Content
	if content == "" {
		content = "No response from Ollama"
	}

	return &model.ChatResponse{Model: out.Model, Content: content, Done: out.Done}, nil
}

// GenerateRequest is a single-prompt completion against /api/generate.
type GenerateRequest struct {
	// Model identifier. Empty means the adapter default.
	Model string `json:"model"`
	// Prompt is the user prompt.
	Prompt string `json:"prompt"`
	// System optionally overrides the model's system prompt.
	System string `json:"system,omitempty"`
}

// Generate sends a one-shot prompt and returns the model's reply text.
func (m *Model) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if req.Model == "" {
		req.Model = m.model
	}

	payload := struct {
		GenerateRequest
		Stream bool `json:"stream"`
	}{GenerateRequest: req}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	if out.Response == "" {
		return "", fmt.Errorf("No response from Ollama (is the server running?)")
	}

	return out.Response, nil
}

// Pull downloads a model onto the server, blocking until it completes.
func (m *Model) Pull(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]any{"name": name, "stream": false})
	if err != nil {
		return fmt.Errorf("marshal pull request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build pull request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode pull response: %w", err)
	}

	if out.Status != "success" {
		return fmt.Errorf("pull %q did not complete: status %q", name, out.Status)
	}

	return nil
}

// LocalModel describes one installed model as reported by /api/tags.
type LocalModel struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (lm LocalModel) String() string {
	return fmt.Sprintf("%s (%.1f GB)", lm.Name, float64(lm.Size)/1e9)
}

// ListModels returns the models installed on the server.
func (m *Model) ListModels(ctx context.Context) ([]LocalModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var out struct {
		Models []LocalModel `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}

	return out.Models, nil
}
