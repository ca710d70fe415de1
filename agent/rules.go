package agent

import (
	"regexp"
	"strings"
)

// Rule routes goals matching Pattern to a single tool.
type Rule struct {
	// Pattern is matched against the lower-cased goal.
	Pattern *regexp.Regexp

	// ToolName is the tool invoked when the pattern matches.
	ToolName string

	// Extract derives tool arguments from the raw goal. May be nil for
	// tools that take no arguments.
	Extract func(goal string) map[string]any
}

// Patterns shared by the argument extractors.
var (
	quotedRE   = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	pathRE     = regexp.MustCompile(`([A-Za-z]:[\\/][^\s,]+|/[^\s,]+|~/[^\s,]+)`)
	fileSpecRE = regexp.MustCompile(`\*\.\w+|\w+\.\w+`)
	runRE      = regexp.MustCompile(`run\s+(\S+)|execute\s+(\S+)|launch\s+(\S+)`)
	namedRE    = regexp.MustCompile(`named?\s+(\S+)|called\s+(\S+)`)
)

// firstQuoted returns the first single- or double-quoted span in goal.
func firstQuoted(goal string) string {
	return firstGroup(quotedRE.FindStringSubmatch(goal))
}

// firstPath returns the first absolute, home-relative or drive-letter
// path mentioned in goal.
func firstPath(goal string) string {
	return pathRE.FindString(goal)
}

// firstGroup returns the first non-empty capture group of a match.
func firstGroup(m []string) string {
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// firstNonEmpty returns the first non-empty candidate.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// DefaultRules returns the built-in routing table used by RuleAgent.
//
// Order is load bearing: rules are evaluated top to bottom and the
// first match wins, so more specific patterns must come before less
// specific ones. AI app goals in particular are matched before the
// generic "running" pattern, and Ollama model listing before the
// generic Ollama pattern.
func DefaultRules() []Rule {
	return []Rule{
		{
			Pattern:  regexp.MustCompile(`\bread\b.+file|open.+file|contents?\s+of`),
			ToolName: "read_file",
			Extract: func(goal string) map[string]any {
				return map[string]any{"path": firstNonEmpty(firstPath(goal), firstQuoted(goal), goal)}
			},
		},
		{
			Pattern:  regexp.MustCompile(`\bwrite\b.+to\b|save.+file|create.+file`),
			ToolName: "write_file",
			Extract: func(goal string) map[string]any {
				return map[string]any{
					"path":    firstNonEmpty(firstPath(goal), firstQuoted(goal), "output.txt"),
					"content": "",
				}
			},
		},
		{
			Pattern:  regexp.MustCompile(`\bsearch\b.+files?|find.+files?|look for.+files?`),
			ToolName: "search_files",
			Extract: func(goal string) map[string]any {
				args := map[string]any{
					"query": firstNonEmpty(fileSpecRE.FindString(goal), firstQuoted(goal), "*"),
				}
				if root := firstPath(goal); root != "" {
					args["root"] = root
				}
				return args
			},
		},
		{
			Pattern:  regexp.MustCompile(`\blist\b.+(files?|folder|dir)|what.+in.+dir|\bls\b`),
			ToolName: "list_directory",
			Extract: func(goal string) map[string]any {
				if path := firstNonEmpty(firstPath(goal), firstQuoted(goal)); path != "" {
					return map[string]any{"path": path}
				}
				return map[string]any{}
			},
		},
		{
			Pattern:  regexp.MustCompile(`\brun\b.+program|execute|launch|start\s+\w`),
			ToolName: "run_program",
			Extract: func(goal string) map[string]any {
				command := firstGroup(runRE.FindStringSubmatch(strings.ToLower(goal)))
				return map[string]any{"command": firstNonEmpty(command, firstQuoted(goal))}
			},
		},
		{
			Pattern:  regexp.MustCompile(`\bgpu\b|vram|nvidia|graphics\s+card`),
			ToolName: "gpu_stats",
		},
		{
			// Checked before the generic "running" pattern below.
			Pattern:  regexp.MustCompile(`\bai\s+apps?\b|comfyui|lm\s+studio|stable\s+diff`),
			ToolName: "list_ai_apps",
		},
		{
			Pattern:  regexp.MustCompile(`\bollama.*model|model.*ollama|list.*model`),
			ToolName: "list_ollama_models",
		},
		{
			Pattern:  regexp.MustCompile(`\bollama\b|local\s+llm|local\s+model|ask.*model`),
			ToolName: "ask_ollama",
			Extract: func(goal string) map[string]any {
				return map[string]any{"prompt": goal}
			},
		},
		{
			Pattern:  regexp.MustCompile(`\bcpu\b|\bmemory\b|\bdisk\b|system\s+stat|resource`),
			ToolName: "system_snapshot",
		},
		{
			Pattern:  regexp.MustCompile(`\bprocesses?\b|running programs?|what.+running`),
			ToolName: "list_programs",
			Extract: func(goal string) map[string]any {
				if name := firstGroup(namedRE.FindStringSubmatch(strings.ToLower(goal))); name != "" {
					return map[string]any{"name_filter": name}
				}
				return map[string]any{}
			},
		},
	}
}
