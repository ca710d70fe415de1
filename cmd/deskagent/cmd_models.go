package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deskagent/config"
	"github.com/hupe1980/deskagent/model/ollama"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage models on the local Ollama server",
	}

	cmd.AddCommand(newModelsListCmd(), newModelsPullCmd())

	return cmd
}

func newModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List models installed on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := buildOllamaClient(cfg)

			localModels, err := client.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models at %s: %w", client.BaseURL(), err)
			}

			if len(localModels) == 0 {
				fmt.Println("No models installed (or Ollama is not running).")
				return nil
			}

			fmt.Println("Ollama models:")
			for _, lm := range localModels {
				fmt.Printf("  %s\n", lm)
			}

			return nil
		},
	}
}

func newModelsPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <model>",
		Short: "Download a model onto the Ollama server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := buildOllamaClient(cfg)
			name := args[0]

			fmt.Printf("Pulling %q from %s (this can take a while)...\n", name, client.BaseURL())

			if err := client.Pull(cmd.Context(), name); err != nil {
				return fmt.Errorf("pull %q: %w", name, err)
			}

			fmt.Printf("Model %q is ready.\n", name)

			return nil
		},
	}
}

func buildOllamaClient(cfg *config.Config) *ollama.Model {
	return ollama.NewModel(func(o *ollama.Options) {
		if cfg.Model.BaseURL != "" && (cfg.Model.Provider == "" || cfg.Model.Provider == "ollama") {
			o.BaseURL = cfg.Model.BaseURL
		}
	})
}
