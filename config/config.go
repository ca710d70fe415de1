// Package config resolves where the assistant lives on disk and how it is
// tuned. Settings come from, in rising priority, built-in defaults, a YAML
// file (~/.deskagent.yaml by default) and DESKAGENT_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/deskagent/gpu"
	"github.com/hupe1980/deskagent/monitor"
)

const (
	// DefaultFileName is the config file looked up in the home directory.
	DefaultFileName = ".deskagent.yaml"

	// EnvConfigFile overrides which config file is loaded.
	EnvConfigFile = "DESKAGENT_CONFIG"
	// EnvInstallDir overrides the install directory.
	EnvInstallDir = "DESKAGENT_INSTALL_DIR"
	// EnvModel overrides the model name.
	EnvModel = "DESKAGENT_MODEL"
	// EnvOllamaURL overrides the Ollama base URL.
	EnvOllamaURL = "DESKAGENT_OLLAMA_URL"
	// EnvLogLevel overrides the log level.
	EnvLogLevel = "DESKAGENT_LOG_LEVEL"
	// EnvMaxSteps overrides the planner step limit.
	EnvMaxSteps = "DESKAGENT_MAX_STEPS"
)

// Duration wraps time.Duration so YAML can express it as "30s" or "5m".
// Bare integers are read as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// Bare integers first: a string target would also accept them, as "45".
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ModelConfig selects and tunes the language model backend.
type ModelConfig struct {
	// Provider is the backend family, e.g. "ollama", "openai", "anthropic".
	Provider string `yaml:"provider"`
	// Name is the model identifier passed to the backend.
	Name string `yaml:"name"`
	// BaseURL is the server address for local backends.
	BaseURL string `yaml:"baseURL"`
	// MaxSteps caps how many tool calls one goal may spend.
	MaxSteps int `yaml:"maxSteps"`
}

// MonitorConfig tunes system monitoring.
type MonitorConfig struct {
	Thresholds monitor.Thresholds `yaml:"thresholds"`
	DiskPaths  []string           `yaml:"diskPaths"`
}

// GPUConfig tunes GPU monitoring.
type GPUConfig struct {
	Thresholds gpu.Thresholds `yaml:"thresholds"`
}

// DaemonConfig tunes the background watch loop.
type DaemonConfig struct {
	// Interval between monitoring sweeps.
	Interval Duration `yaml:"interval"`
	// WatchDirs are directory trees observed for file changes.
	WatchDirs []string `yaml:"watchDirs"`
}

// LogConfig tunes logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds every tunable of the assistant.
type Config struct {
	// InstallDir is the root under which the assistant keeps its
	// downloads, organized files, logs and data.
	InstallDir string `yaml:"installDir"`

	Model   ModelConfig   `yaml:"model"`
	Monitor MonitorConfig `yaml:"monitor"`
	GPU     GPUConfig     `yaml:"gpu"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		InstallDir: defaultInstallDir(),
		Model: ModelConfig{
			Provider: "ollama",
			Name:     "llama3",
			BaseURL:  "http://localhost:11434",
			MaxSteps: 10,
		},
		Monitor: MonitorConfig{
			Thresholds: monitor.DefaultThresholds(),
			DiskPaths:  []string{"/"},
		},
		GPU: GPUConfig{
			Thresholds: gpu.DefaultThresholds(),
		},
		Daemon: DaemonConfig{
			Interval: Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultInstallDir keeps large assistant state off the system drive on
// Windows and under the home directory elsewhere.
func defaultInstallDir() string {
	if runtime.GOOS == "windows" {
		return `D:\DeskAgent`
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "DeskAgent"
	}

	return filepath.Join(home, "DeskAgent")
}

// DefaultPath returns the config file path honored by Load: the
// DESKAGENT_CONFIG environment variable, or ~/.deskagent.yaml.
func DefaultPath() string {
	if env := os.Getenv(EnvConfigFile); env != "" {
		return env
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}

	return filepath.Join(home, DefaultFileName)
}

// Load reads the configuration from path, layered over the defaults and
// under the environment overrides. An empty path means DefaultPath, and a
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvInstallDir); v != "" {
		c.InstallDir = v
	}

	if v := os.Getenv(EnvModel); v != "" {
		c.Model.Name = v
	}

	if v := os.Getenv(EnvOllamaURL); v != "" {
		c.Model.BaseURL = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}

	if v := os.Getenv(EnvMaxSteps); v != "" {
		if steps, err := strconv.Atoi(v); err == nil && steps > 0 {
			c.Model.MaxSteps = steps
		}
	}
}

// Validate rejects configurations the assistant cannot run with.
func (c *Config) Validate() error {
	if c.InstallDir == "" {
		return fmt.Errorf("installDir must not be empty")
	}

	if c.Model.MaxSteps < 1 {
		return fmt.Errorf("model.maxSteps must be at least 1, got %d", c.Model.MaxSteps)
	}

	if c.Daemon.Interval.Std() <= 0 {
		return fmt.Errorf("daemon.interval must be positive, got %s", c.Daemon.Interval.Std())
	}

	for _, field := range []struct {
		name  string
		value float64
	}{
		{"monitor.thresholds.cpu", c.Monitor.Thresholds.CPU},
		{"monitor.thresholds.memory", c.Monitor.Thresholds.Memory},
		{"monitor.thresholds.disk", c.Monitor.Thresholds.Disk},
	} {
		if field.value <= 0 || field.value > 100 {
			return fmt.Errorf("%s must be in (0, 100], got %g", field.name, field.value)
		}
	}

	return nil
}

// Save writes the configuration to path, creating parent directories as
// needed. An empty path means DefaultPath.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	out := append([]byte("# DeskAgent configuration, auto-generated\n"), data...)

	return os.WriteFile(path, out, 0o644)
}

// DownloadsDir is where downloaded resources are stored.
func (c *Config) DownloadsDir() string { return filepath.Join(c.InstallDir, "Downloads") }

// OrganizedDir is the root that organized desktop files are moved to.
func (c *Config) OrganizedDir() string { return filepath.Join(c.InstallDir, "Organized") }

// LogsDir is where log files are written.
func (c *Config) LogsDir() string { return filepath.Join(c.InstallDir, "Logs") }

// DataDir holds runtime data such as caches.
func (c *Config) DataDir() string { return filepath.Join(c.InstallDir, "Data") }

// EnsureDirs creates the standard directory tree under the install dir.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.InstallDir,
		c.DownloadsDir(),
		c.OrganizedDir(),
		c.LogsDir(),
		c.DataDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return nil
}
