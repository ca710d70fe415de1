package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/deskagent/logging"
)

// RegistryOptions configures a Registry instance.
//
// Use functional options with NewRegistry to override defaults.
type RegistryOptions struct {
	// Logger receives tool.call.* events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry is the catalogue and dispatcher for a set of tools.
//
// Registration is by name, last one wins. The registry holds no per call
// state; its map is guarded by a mutex, so concurrent Invoke calls are safe
// as long as the individual handlers are. Dispatch is an explicit name to
// tool lookup, never reflection.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		tools:  make(map[string]Tool),
		logger: opts.Logger,
	}
}

// Register inserts the tool, replacing any previously registered tool with
// the same name. The handler itself is not validated here; a nil handler
// surfaces as a failed Result at invocation time.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// RegisterAll registers multiple tools in order. Later entries win on name
// collisions, matching Register semantics.
func (r *Registry) RegisterAll(tools ...Tool) {
	for _, t := range tools {
		r.Register(t)
	}
}

// Unregister removes the named tool. It reports whether a tool was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	return true
}

// Get returns the named tool and whether it exists.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// List returns registered tools ordered by (category, name) so catalogue
// rendering is deterministic. A non-empty category restricts the listing to
// that category.
func (r *Registry) List(category string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if category != "" && t.Category != category {
			continue
		}
		tools = append(tools, t)
	}

	sort.Slice(tools, func(i, j int) bool {
		if tools[i].Category != tools[j].Category {
			return tools[i].Category < tools[j].Category
		}
		return tools[i].Name < tools[j].Name
	})

	return tools
}

// Describe renders the full catalogue, one tool signature per line. The text
// is used verbatim inside the generative planner's system instruction; it is
// the only view a model gets of the available capabilities.
func (r *Registry) Describe() string {
	var sb strings.Builder
	sb.WriteString("Available tools:")
	for _, t := range r.List("") {
		sb.WriteString("\n  ")
		sb.WriteString(t.Describe())
	}
	return sb.String()
}

// Invoke dispatches by name and always returns a Result.
//
// An unknown name yields a failure whose error text names the attempted tool
// and enumerates every registered name; when the caller is a generative
// planner that listing doubles as a self-correction hint. Known tools
// delegate to Tool.Invoke, which guarantees panic safety.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) Result {
	r.logger.Debug("tool.call.start", "tool", name)

	t, ok := r.Get(name)
	if !ok {
		res := Result{
			ToolName: name,
			Success:  false,
			Error:    fmt.Sprintf("unknown tool: %q. Available: %s", name, strings.Join(r.Names(), ", ")),
		}
		r.logger.Warn("tool.call.unknown", "tool", name)
		return res
	}

	start := time.Now()
	res := t.Invoke(ctx, args)

	if res.Success {
		r.logger.Info("tool.call.success", "tool", name, "duration_ms", time.Since(start).Milliseconds())
	} else {
		r.logger.Error("tool.call.error", "tool", name, "error", res.Error)
	}

	return res
}
