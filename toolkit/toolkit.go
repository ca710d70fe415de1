package toolkit

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/hupe1980/deskagent/aiapp"
	"github.com/hupe1980/deskagent/files"
	"github.com/hupe1980/deskagent/gpu"
	"github.com/hupe1980/deskagent/logging"
	"github.com/hupe1980/deskagent/model/ollama"
	"github.com/hupe1980/deskagent/monitor"
	"github.com/hupe1980/deskagent/proc"
	"github.com/hupe1980/deskagent/tool"
)

// Tool categories used by the built-ins.
const (
	CategoryFiles    = "files"
	CategoryPrograms = "programs"
	CategorySystem   = "system"
	CategoryAI       = "ai"
)

// searchResultCap bounds search_files output so a broad glob cannot flood a
// model observation.
const searchResultCap = 50

// listEntryCap bounds how many directory entries list_directory renders.
const listEntryCap = 200

// Options configure a Toolkit. Any collaborator left nil is constructed
// with its defaults.
type Options struct {
	Monitor   *monitor.Monitor
	GPU       *gpu.Monitor
	Processes *proc.Manager
	Searcher  *files.Searcher
	Reader    *files.Reader
	Writer    *files.Writer
	Apps      *aiapp.Registry

	// OllamaModel and OllamaURL seed the defaults of the ask_ollama and
	// list_ollama_models parameters.
	OllamaModel string
	OllamaURL   string

	// HTTPClient is used for per-call Ollama clients.
	HTTPClient *http.Client

	Logger logging.Logger
}

// Toolkit builds the built-in tool set on top of its collaborators.
type Toolkit struct {
	monitor   *monitor.Monitor
	gpu       *gpu.Monitor
	procs     *proc.Manager
	searcher  *files.Searcher
	reader    *files.Reader
	writer    *files.Writer
	apps      *aiapp.Registry
	ollamaTag string
	ollamaURL string
	client    *http.Client
	logger    logging.Logger
}

// New creates a Toolkit.
func New(optFns ...func(o *Options)) *Toolkit {
	opts := Options{
		OllamaModel: ollama.DefaultModel,
		OllamaURL:   ollama.DefaultBaseURL,
		HTTPClient:  &http.Client{},
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Monitor == nil {
		opts.Monitor = monitor.New(func(o *monitor.MonitorOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.GPU == nil {
		opts.GPU = gpu.New(func(o *gpu.MonitorOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Processes == nil {
		opts.Processes = proc.NewManager(func(o *proc.ManagerOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Searcher == nil {
		opts.Searcher = files.NewSearcher(func(o *files.SearcherOptions) {
			o.MaxResults = searchResultCap
			o.Logger = opts.Logger
		})
	}

	if opts.Reader == nil {
		opts.Reader = files.NewReader(func(o *files.ReaderOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Writer == nil {
		opts.Writer = files.NewWriter(func(o *files.WriterOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Apps == nil {
		opts.Apps = aiapp.NewRegistry(func(o *aiapp.RegistryOptions) {
			o.Logger = opts.Logger
		})
	}

	return &Toolkit{
		monitor:   opts.Monitor,
		gpu:       opts.GPU,
		procs:     opts.Processes,
		searcher:  opts.Searcher,
		reader:    opts.Reader,
		writer:    opts.Writer,
		apps:      opts.Apps,
		ollamaTag: opts.OllamaModel,
		ollamaURL: opts.OllamaURL,
		client:    opts.HTTPClient,
		logger:    opts.Logger,
	}
}

// Tools returns every built-in tool.
func (t *Toolkit) Tools() []tool.Tool {
	return []tool.Tool{
		t.readFileTool(),
		t.writeFileTool(),
		t.appendFileTool(),
		t.searchFilesTool(),
		t.listDirectoryTool(),
		t.runProgramTool(),
		t.launchProgramTool(),
		t.listProgramsTool(),
		t.systemSnapshotTool(),
		t.gpuStatsTool(),
		t.listAIAppsTool(),
		t.askOllamaTool(),
		t.listOllamaModelsTool(),
	}
}

// Register adds every built-in tool to the registry.
func (t *Toolkit) Register(registry *tool.Registry) {
	registry.RegisterAll(t.Tools()...)
}

// DefaultRegistry returns a tool registry preloaded with the built-ins.
func DefaultRegistry(optFns ...func(o *Options)) *tool.Registry {
	tk := New(optFns...)

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Logger = tk.logger
	})
	tk.Register(registry)

	return registry
}

// strArg reads an argument as a string, rendering non-string values with
// fmt so numeric model output still works as a path or prompt.
func strArg(args map[string]any, name string) string {
	v, ok := args[name]
	if !ok || v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

// floatArg reads an argument as a float64, tolerating JSON numbers, ints
// and numeric strings. Unparseable values fall back to def.
func floatArg(args map[string]any, name string, def float64) float64 {
	v, ok := args[name]
	if !ok || v == nil {
		return def
	}

	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if parsed, err := strconv.ParseFloat(n, 64); err == nil {
			return parsed
		}
	}

	return def
}

// homeDir is the fallback root for file tools invoked without a path.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return home
}
