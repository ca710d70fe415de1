package aiapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/deskagent/logging"
)

// DefaultProbeTimeout bounds how long a single health probe may take.
const DefaultProbeTimeout = 2 * time.Second

// App describes one known AI program and how to probe it.
type App struct {
	// Name is the human-readable program name.
	Name string
	// HealthURL is requested to decide whether the program is running. Any
	// HTTP response counts as alive, the status code does not matter.
	HealthURL string
	// VersionURL optionally points at a JSON endpoint with a "version"
	// field.
	VersionURL string
}

// Status is the probe result for one app.
type Status struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Running bool   `json:"running"`
	Version string `json:"version,omitempty"`
}

func (s Status) String() string {
	version := ""
	if s.Version != "" {
		version = fmt.Sprintf("  v%s", s.Version)
	}

	mark := "✗ not running"
	if s.Running {
		mark = "✓ running"
	}

	return fmt.Sprintf("[%s]%s  %s  (%s)", s.Name, version, mark, s.URL)
}

// KnownApps returns the built-in probe table covering the popular local AI
// stacks and their default ports.
func KnownApps() []App {
	return []App{
		{Name: "Ollama", HealthURL: "http://localhost:11434/api/tags", VersionURL: "http://localhost:11434/api/version"},
		{Name: "LM Studio", HealthURL: "http://localhost:1234/v1/models"},
		{Name: "ComfyUI", HealthURL: "http://localhost:8188/system_stats"},
		{Name: "Stable Diffusion WebUI", HealthURL: "http://localhost:7860/sdapi/v1/options"},
		{Name: "Open WebUI", HealthURL: "http://localhost:3000"},
		{Name: "LocalAI", HealthURL: "http://localhost:8080/v1/models"},
		{Name: "text-generation-webui", HealthURL: "http://localhost:7861/api/v1/model"},
		{Name: "Oobabooga API", HealthURL: "http://localhost:5000/api/v1/model"},
		{Name: "Jan", HealthURL: "http://localhost:1337/v1/models"},
		{Name: "LLaMA.cpp server", HealthURL: "http://localhost:8000/health"},
	}
}

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// Apps is the probe table. Defaults to KnownApps.
	Apps []App
	// ProbeTimeout bounds each individual probe.
	ProbeTimeout time.Duration
	// HTTPClient is the client used for probing.
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Registry probes a table of known AI programs.
type Registry struct {
	client  *http.Client
	timeout time.Duration
	logger  logging.Logger

	mu   sync.Mutex
	apps []App
}

// NewRegistry creates a Registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Apps:         KnownApps(),
		ProbeTimeout: DefaultProbeTimeout,
		HTTPClient:   &http.Client{},
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		apps:    opts.Apps,
		client:  opts.HTTPClient,
		timeout: opts.ProbeTimeout,
		logger:  opts.Logger,
	}
}

// Register adds an app to the probe table.
func (r *Registry) Register(app App) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.apps = append(r.apps, app)
}

// Apps returns a copy of the probe table.
func (r *Registry) Apps() []App {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]App, len(r.apps))
	copy(out, r.apps)

	return out
}

// Discover probes every known app concurrently and returns their statuses
// in table order.
func (r *Registry) Discover(ctx context.Context) []Status {
	apps := r.Apps()

	statuses := make([]Status, len(apps))

	var wg sync.WaitGroup

	for i, app := range apps {
		wg.Add(1)

		go func(i int, app App) {
			defer wg.Done()

			statuses[i] = r.probe(ctx, app)
		}(i, app)
	}

	wg.Wait()

	running := 0
	for _, s := range statuses {
		if s.Running {
			running++
		}
	}

	r.logger.Debug("aiapp.discover", "total", len(statuses), "running", running)

	return statuses
}

// Running returns the statuses of the apps that are currently up.
func (r *Registry) Running(ctx context.Context) []Status {
	var out []Status

	for _, s := range r.Discover(ctx) {
		if s.Running {
			out = append(out, s)
		}
	}

	return out
}

// probe requests the app's health URL. Any response at all, including an
// error status, means the program is listening.
func (r *Registry) probe(ctx context.Context, app App) Status {
	status := Status{Name: app.Name, URL: baseURL(app.HealthURL)}

	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, app.HealthURL, nil)
	if err != nil {
		return status
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return status
	}
	resp.Body.Close()

	status.Running = true

	if app.VersionURL != "" {
		status.Version = r.fetchVersion(ctx, app.VersionURL)
	}

	return status
}

// fetchVersion reads a {"version": "..."} payload, returning "" on any
// failure.
func (r *Registry) fetchVersion(ctx context.Context, versionURL string) string {
	verCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(verCtx, http.MethodGet, versionURL, nil)
	if err != nil {
		return ""
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	var payload struct {
		Version string `json:"version"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}

	return payload.Version
}

// FormatStatus renders statuses as a human-readable report.
func FormatStatus(statuses []Status) string {
	lines := []string{"=== AI Programs ==="}

	running := 0

	for _, s := range statuses {
		if s.Running {
			running++
		}

		lines = append(lines, fmt.Sprintf("  %s", s))
	}

	lines = append(lines, fmt.Sprintf("\n  %d of %d programs running.", running, len(statuses)))

	return strings.Join(lines, "\n")
}

// baseURL reduces a probe URL to its scheme and host.
func baseURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}
