// Command deskagent is the command line interface to the desktop assistant:
// one-shot goal execution, a background monitoring daemon, and inspection
// helpers for the tool catalogue, system status and local Ollama models.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/deskagent/config"
	"github.com/hupe1980/deskagent/gpu"
	"github.com/hupe1980/deskagent/logging"
	"github.com/hupe1980/deskagent/model"
	"github.com/hupe1980/deskagent/model/anthropic"
	"github.com/hupe1980/deskagent/model/ollama"
	"github.com/hupe1980/deskagent/model/openai"
	"github.com/hupe1980/deskagent/monitor"
	"github.com/hupe1980/deskagent/tool"
	"github.com/hupe1980/deskagent/toolkit"
)

// Persistent flag values shared by every subcommand.
var (
	configPath string
	logLevel   string
	logFormat  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deskagent",
		Short: "Goal-driven desktop assistant for files, programs and local AI",
		Long: `DeskAgent turns free-text goals into tool calls against your own machine:
searching and editing files, running and launching programs, reading system
and GPU metrics, and talking to the local AI stack (Ollama, ComfyUI, ...).

With a reachable chat backend it plans step by step; without one it falls
back to an offline rule-based planner, so the basic goals keep working.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.deskagent.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newRunCmd(),
		newDaemonCmd(),
		newToolsCmd(),
		newStatusCmd(),
		newModelsCmd(),
	)

	return cmd
}

// loadConfig layers the persistent flags over the config file and defaults.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	return cfg, nil
}

func buildLogger(cfg *config.Config) logging.Logger {
	return logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, false)
}

// buildRegistry assembles the toolkit registry, honoring the config's
// monitoring thresholds and Ollama settings.
func buildRegistry(cfg *config.Config, logger logging.Logger) *tool.Registry {
	return toolkit.DefaultRegistry(func(o *toolkit.Options) {
		o.Monitor = monitor.New(func(mo *monitor.MonitorOptions) {
			mo.Thresholds = cfg.Monitor.Thresholds
			mo.DiskPaths = cfg.Monitor.DiskPaths
			mo.Logger = logger
		})
		o.GPU = gpu.New(func(mo *gpu.MonitorOptions) {
			mo.Thresholds = cfg.GPU.Thresholds
			mo.Logger = logger
		})

		if cfg.Model.Provider == "" || cfg.Model.Provider == "ollama" {
			if cfg.Model.Name != "" {
				o.OllamaModel = cfg.Model.Name
			}
			if cfg.Model.BaseURL != "" {
				o.OllamaURL = cfg.Model.BaseURL
			}
		}

		o.Logger = logger
	})
}

// buildModel constructs the chat backend named by the config. Unknown
// providers fall back to Ollama, the only backend that needs no API key.
func buildModel(cfg *config.Config) model.Model {
	switch cfg.Model.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			if cfg.Model.BaseURL != "" {
				o.BaseURL = cfg.Model.BaseURL
			}
		})
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Name)
			}
		})
	default:
		return ollama.NewModel(func(o *ollama.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			if cfg.Model.BaseURL != "" {
				o.BaseURL = cfg.Model.BaseURL
			}
		})
	}
}
