package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/hupe1980/deskagent/internal/util"
)

// Parameter type tags used in tool declarations. They describe the semantic
// shape of an argument to planners; they are documentation for the model, not
// a strict runtime type system.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeList    = "list"
)

// stackTraceLines bounds how much of a recovered panic's stack ends up in a
// failure Result. Full traces belong in logs, not in model observations.
const stackTraceLines = 8

// Param describes a single declared tool parameter.
//
// Params are immutable once a Tool is registered. Required parameters must be
// present in the argument map or invocation fails before the handler runs;
// optional parameters receive Default when absent and Default is non-nil.
type Param struct {
	Name        string // argument key, snake_case
	Type        string // one of the Type* tags
	Description string // shown to models as part of the catalogue
	Required    bool
	Default     any
}

// Handler is the implementation behind a tool. It receives the (defaulted,
// validated for presence) argument map and returns human readable output text
// plus an optional structured payload. Returning an error marks the
// invocation as failed; the error text becomes the Result error.
//
// Handlers own their timeout behavior. The passed context carries any
// deadline the caller established; long running handlers should honor it.
type Handler func(ctx context.Context, args map[string]any) (string, any, error)

// Tool is a named capability with a declared parameter list and a handler.
//
// Tools are plain values; the Registry owns them after registration and
// replaces by name on re-registration. Name should be snake_case and unique
// within a Registry. Category groups tools for catalogue ordering and
// filtered listing (e.g. "files", "system", "ai").
type Tool struct {
	Name        string
	Description string
	Category    string
	Params      []Param
	Handler     Handler
}

// Describe renders the tool signature for the catalogue, in the form
//
//	name(param: type, optional: type?) — description
//
// Optional parameters carry a trailing question mark on their type tag.
func (t Tool) Describe() string {
	parts := make([]string, 0, len(t.Params))
	for _, p := range t.Params {
		typ := p.Type
		if !p.Required {
			typ += "?"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", p.Name, typ))
	}
	return fmt.Sprintf("%s(%s) — %s", t.Name, strings.Join(parts, ", "), t.Description)
}

// Invoke runs the tool against the given arguments and always returns a
// Result, never panics.
//
// Order of operations: a nil argument map is replaced by an empty one;
// declared defaults are filled in for absent optional parameters; any absent
// required parameter short-circuits into a failure naming that parameter; the
// handler runs last, with panics recovered into a failure carrying the panic
// value's type, message and a trimmed stack.
func (t Tool) Invoke(ctx context.Context, args map[string]any) (res Result) {
	merged := make(map[string]any, len(args)+len(t.Params))
	for k, v := range args {
		merged[k] = v
	}
	for _, p := range t.Params {
		if _, ok := merged[p.Name]; ok {
			continue
		}
		if p.Required {
			return Result{
				ToolName: t.Name,
				Success:  false,
				Error:    fmt.Sprintf("missing required parameter: %q", p.Name),
			}
		}
		if p.Default != nil {
			merged[p.Name] = p.Default
		}
	}

	if t.Handler == nil {
		return Result{ToolName: t.Name, Success: false, Error: "tool has no handler"}
	}

	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				res = Result{
					ToolName: t.Name,
					Success:  false,
					Error:    fmt.Sprintf("%T: %v\n%s", r, r, util.TrimStack(debug.Stack(), stackTraceLines)),
				}
			}
		}()
		output, payload, err := t.Handler(ctx, merged)
		if err != nil {
			// Partial output (e.g. a failed command's combined stdout and
			// stderr) stays on the result alongside the error.
			res = Result{ToolName: t.Name, Success: false, Output: output, Payload: payload, Error: err.Error()}
			return
		}
		res = Result{ToolName: t.Name, Success: true, Output: output, Payload: payload}
	}()

	return res
}

// Result is the uniform outcome of one tool invocation.
//
// It always names the tool that produced it, even on failure, so callers can
// attribute errors when invoking through the Registry by name.
type Result struct {
	ToolName string
	Success  bool
	Output   string
	Error    string
	Payload  any // optional structured data alongside Output
}

// String renders the result the way planners consume it: the output text on
// success, or a bracketed error attribution on failure.
func (r Result) String() string {
	if r.Success {
		return r.Output
	}
	return fmt.Sprintf("[ERROR from %s] %s", r.ToolName, r.Error)
}
