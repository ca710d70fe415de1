package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- ParseAction Tests --------------------

func TestParseActionPlainObject(t *testing.T) {
	action, ok := ParseAction(`{"thought": "check the load", "tool": "system_snapshot", "args": {}}`)

	require.True(t, ok)
	assert.Equal(t, "check the load", action.Thought)
	assert.Equal(t, "system_snapshot", action.Tool)
	assert.Empty(t, action.Args)
}

func TestParseActionSurroundedByProse(t *testing.T) {
	raw := "Sure, here is my next step:\n" +
		`{"thought": "read it", "tool": "read_file", "args": {"path": "/tmp/notes.txt"}}` +
		"\nLet me know how it goes."

	action, ok := ParseAction(raw)

	require.True(t, ok)
	assert.Equal(t, "read_file", action.Tool)
	assert.Equal(t, "/tmp/notes.txt", action.Args["path"])
}

func TestParseActionMarkdownFence(t *testing.T) {
	raw := "```json\n{\"thought\": \"done\", \"tool\": \"finish\", \"args\": {\"answer\": \"all set\"}}\n```"

	action, ok := ParseAction(raw)

	require.True(t, ok)
	assert.Equal(t, FinishTool, action.Tool)
	assert.Equal(t, "all set", action.Args["answer"])
}

func TestParseActionNoObject(t *testing.T) {
	action, ok := ParseAction("I am not sure what to do next.")

	assert.False(t, ok)
	assert.Nil(t, action)
}

func TestParseActionEmptyInput(t *testing.T) {
	_, ok := ParseAction("")

	assert.False(t, ok)
}

func TestParseActionBracesInsideStrings(t *testing.T) {
	raw := `{"thought": "write a {placeholder} block", "tool": "write_file", "args": {"path": "a.txt", "content": "x = {}"}}`

	action, ok := ParseAction(raw)

	require.True(t, ok)
	assert.Equal(t, "write_file", action.Tool)
	assert.Equal(t, "write a {placeholder} block", action.Thought)
	assert.Equal(t, "x = {}", action.Args["content"])
}

func TestParseActionEscapedQuotesInsideStrings(t *testing.T) {
	raw := `{"thought": "say \"hi\"", "tool": "finish", "args": {"answer": "ok"}}`

	action, ok := ParseAction(raw)

	require.True(t, ok)
	assert.Equal(t, `say "hi"`, action.Thought)
}

func TestParseActionNestedArgs(t *testing.T) {
	raw := `{"thought": "filtered search", "tool": "search_files", "args": {"query": "*.py", "filters": {"max_depth": 2}}}`

	action, ok := ParseAction(raw)

	require.True(t, ok)
	assert.Equal(t, "search_files", action.Tool)
	assert.Equal(t, "*.py", action.Args["query"])
	assert.Contains(t, action.Args, "filters")
}

func TestParseActionRecoversFromUnclosedPrefix(t *testing.T) {
	// The leading brace never closes; the embedded object must still be
	// found.
	raw := `{oops {"thought": "t", "tool": "finish", "args": {"answer": "found"}}`

	action, ok := ParseAction(raw)

	require.True(t, ok)
	assert.Equal(t, FinishTool, action.Tool)
	assert.Equal(t, "found", action.Args["answer"])
}

func TestParseActionSkipsNonDecodingCandidate(t *testing.T) {
	raw := `{not json at all} {"thought": "t", "tool": "gpu_stats", "args": {}}`

	action, ok := ParseAction(raw)

	require.True(t, ok)
	assert.Equal(t, "gpu_stats", action.Tool)
}

func TestParseActionDefaultsMissingArgs(t *testing.T) {
	action, ok := ParseAction(`{"thought": "t", "tool": "system_snapshot"}`)

	require.True(t, ok)
	require.NotNil(t, action.Args)
	assert.Empty(t, action.Args)
}
