package toolkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/deskagent/aiapp"
	"github.com/hupe1980/deskagent/model/ollama"
	"github.com/hupe1980/deskagent/tool"
)

func (t *Toolkit) listAIAppsTool() tool.Tool {
	return tool.Tool{
		Name:        "list_ai_apps",
		Description: "Discover all known AI programs (Ollama, ComfyUI, LM Studio, etc.) and show which are running.",
		Category:    CategoryAI,
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			statuses := t.apps.Discover(ctx)

			payload := make([]map[string]any, 0, len(statuses))
			for _, s := range statuses {
				payload = append(payload, map[string]any{"name": s.Name, "running": s.Running})
			}

			return aiapp.FormatStatus(statuses), payload, nil
		},
	}
}

// ollamaClient builds a per-call client so the model and url parameters can
// point anywhere.
func (t *Toolkit) ollamaClient(baseURL, modelName string) *ollama.Model {
	return ollama.NewModel(func(o *ollama.Options) {
		o.BaseURL = baseURL
		o.Model = modelName
		o.HTTPClient = t.client
	})
}

func (t *Toolkit) askOllamaTool() tool.Tool {
	return tool.Tool{
		Name:        "ask_ollama",
		Description: "Send a prompt to a local Ollama LLM model and return its response.",
		Category:    CategoryAI,
		Params: []tool.Param{
			{Name: "prompt", Type: tool.TypeString, Description: "The question or instruction.", Required: true},
			{Name: "model", Type: tool.TypeString, Description: fmt.Sprintf("Ollama model name (default: %s).", t.ollamaTag), Default: t.ollamaTag},
			{Name: "url", Type: tool.TypeString, Description: "Ollama base URL.", Default: t.ollamaURL},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			baseURL := strArg(args, "url")
			modelName := strArg(args, "model")

			client := t.ollamaClient(baseURL, modelName)

			if !client.IsReachable(ctx) {
				return "", nil, fmt.Errorf("Ollama is not running at %s. Start it with: ollama serve", baseURL)
			}

			response, err := client.Generate(ctx, ollama.GenerateRequest{Prompt: strArg(args, "prompt")})
			if err != nil {
				return "", nil, err
			}

			return response, map[string]any{"model": modelName, "response": response}, nil
		},
	}
}

func (t *Toolkit) listOllamaModelsTool() tool.Tool {
	return tool.Tool{
		Name:        "list_ollama_models",
		Description: "List all models currently available in the local Ollama installation.",
		Category:    CategoryAI,
		Params: []tool.Param{
			{Name: "url", Type: tool.TypeString, Description: "Ollama base URL.", Default: t.ollamaURL},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			client := t.ollamaClient(strArg(args, "url"), t.ollamaTag)

			// A down server reads the same as an empty installation here.
			models, err := client.ListModels(ctx)
			if err != nil || len(models) == 0 {
				return "No models found (or Ollama is not running).", []string{}, nil
			}

			lines := make([]string, 0, len(models))
			names := make([]string, 0, len(models))

			for _, m := range models {
				lines = append(lines, fmt.Sprintf("  %s", m))
				names = append(names, m.Name)
			}

			return "Ollama models:\n" + strings.Join(lines, "\n"), names, nil
		},
	}
}
