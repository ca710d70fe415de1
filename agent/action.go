package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FinishTool is the sentinel tool name a model replies with to end the
// run and hand back its final answer.
const FinishTool = "finish"

// Action is a single planning decision decoded from a model reply.
type Action struct {
	Thought string         `json:"thought"`
	Tool    string         `json:"tool"`
	Args    map[string]any `json:"args"`
}

var fenceRE = regexp.MustCompile("```(?:json)?\\s*")

// ParseAction extracts the first JSON action object embedded in a model
// reply. Models frequently wrap the object in prose or markdown fences,
// so the reply is scanned for brace-balanced candidates and the first
// one that decodes wins. The boolean reports whether an action was
// found; callers treat a reply without one as the final answer.
func ParseAction(raw string) (*Action, bool) {
	cleaned := fenceRE.ReplaceAllString(raw, "")

	for offset := 0; offset < len(cleaned); {
		candidate, next := scanObject(cleaned, offset)
		if candidate != "" {
			var action Action
			if err := json.Unmarshal([]byte(candidate), &action); err == nil {
				if action.Args == nil {
					action.Args = map[string]any{}
				}
				return &action, true
			}
		}
		if next <= offset {
			break
		}
		offset = next
	}

	return nil, false
}

// scanObject returns the first brace-balanced object found at or after
// offset, tracking JSON string literals so braces inside strings do not
// count. The second value is the offset to resume from, one past the
// candidate's opening brace, so a failed candidate still lets nested
// objects be tried. An empty candidate with a resume offset inside the
// text means the object never closed.
func scanObject(s string, offset int) (candidate string, next int) {
	start := strings.IndexByte(s[offset:], '{')
	if start < 0 {
		return "", len(s)
	}
	start += offset

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// braces inside strings are data
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], start + 1
			}
		}
	}

	return "", start + 1
}
