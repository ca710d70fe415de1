package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deskagent/aiapp"
	"github.com/hupe1980/deskagent/tool"
)

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("command %q not available", name)
	}
}

func newTestRegistry(t *testing.T, optFns ...func(o *Options)) (*Toolkit, *tool.Registry) {
	t.Helper()

	tk := New(optFns...)
	registry := tool.NewRegistry()
	tk.Register(registry)

	return tk, registry
}

// -------------------- Catalogue Tests --------------------

func TestToolsCount(t *testing.T) {
	tk := New()
	assert.Len(t, tk.Tools(), 13)
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	require.Equal(t, 13, registry.Len())

	names := registry.Names()
	assert.Contains(t, names, "read_file")
	assert.Contains(t, names, "run_program")
	assert.Contains(t, names, "ask_ollama")
}

func TestDescribeCatalogue(t *testing.T) {
	registry := DefaultRegistry()
	desc := registry.Describe()

	assert.Contains(t, desc, "read_file(path: string) — Read the full text content of any file on disk.")
	assert.Contains(t, desc, "run_program(command: string, args: string?, input_data: string?, timeout: float?) — Run any installed program and return its output.")
	assert.Contains(t, desc, "search_files(query: string?, root: string?, extensions: string?, content: string?) — Search for files by name pattern, extension or text content.")
	assert.Contains(t, desc, "ask_ollama(prompt: string, model: string?, url: string?) — Send a prompt to a local Ollama LLM model and return its response.")
}

func TestDescribeGroupsByCategory(t *testing.T) {
	desc := DefaultRegistry().Describe()

	// List orders by (category, name): ai, files, programs, system.
	assert.Less(t, strings.Index(desc, "ask_ollama("), strings.Index(desc, "read_file("))
	assert.Less(t, strings.Index(desc, "read_file("), strings.Index(desc, "run_program("))
	assert.Less(t, strings.Index(desc, "run_program("), strings.Index(desc, "system_snapshot("))
}

// -------------------- File Tool Tests --------------------

func TestReadFileTool(t *testing.T) {
	_, registry := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	res := registry.Invoke(context.Background(), "read_file", map[string]any{"path": path})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hello", res.Output)

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, path, payload["path"])
	assert.Equal(t, "hello", payload["content"])
}

func TestReadFileToolMissing(t *testing.T) {
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "read_file", map[string]any{
		"path": filepath.Join(t.TempDir(), "nope.txt"),
	})

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "file not found")
}

func TestWriteFileTool(t *testing.T) {
	_, registry := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "out.txt")

	res := registry.Invoke(context.Background(), "write_file", map[string]any{
		"path":    path,
		"content": "héllo",
	})

	require.True(t, res.Success, res.Error)
	// Character count, not byte count.
	assert.Equal(t, fmt.Sprintf("Wrote 5 characters to %s", path), res.Output)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "héllo", string(data))
}

func TestWriteFileToolBacksUpExisting(t *testing.T) {
	_, registry := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	res := registry.Invoke(context.Background(), "write_file", map[string]any{
		"path":    path,
		"content": "new",
	})
	require.True(t, res.Success, res.Error)

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "old", string(backup))
}

func TestAppendFileTool(t *testing.T) {
	_, registry := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))

	res := registry.Invoke(context.Background(), "append_file", map[string]any{
		"path":    path,
		"content": "two\n",
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, fmt.Sprintf("Appended 4 characters to %s", path), res.Output)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestSearchFilesTool(t *testing.T) {
	_, registry := newTestRegistry(t)

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("the needle is in here"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("nothing"), 0o644))

	res := registry.Invoke(context.Background(), "search_files", map[string]any{
		"query": "*.txt",
		"root":  dir,
	})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "notes.txt")
	assert.NotContains(t, res.Output, "other.md")

	paths, ok := res.Payload.([]string)
	require.True(t, ok)
	assert.Equal(t, []string{notes}, paths)
}

func TestSearchFilesToolByContent(t *testing.T) {
	_, registry := newTestRegistry(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("the needle is in here"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("nothing"), 0o644))

	res := registry.Invoke(context.Background(), "search_files", map[string]any{
		"root":    dir,
		"content": "needle",
	})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "notes.txt")
	assert.Contains(t, res.Output, "the needle is in here")
	assert.NotContains(t, res.Output, "other.txt")
}

func TestSearchFilesToolByExtension(t *testing.T) {
	_, registry := newTestRegistry(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0o644))

	res := registry.Invoke(context.Background(), "search_files", map[string]any{
		"root":       dir,
		"extensions": "md",
	})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "b.md")
	assert.NotContains(t, res.Output, "a.txt")
}

func TestSearchFilesToolNoMatches(t *testing.T) {
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "search_files", map[string]any{
		"query": "*.zzz",
		"root":  t.TempDir(),
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "No files found matching the criteria.", res.Output)

	paths, ok := res.Payload.([]string)
	require.True(t, ok)
	assert.Empty(t, paths)
}

func TestListDirectoryTool(t *testing.T) {
	_, registry := newTestRegistry(t)

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zeta.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alpha.txt"), []byte("hi"), 0o644))

	res := registry.Invoke(context.Background(), "list_directory", map[string]any{"path": dir})

	require.True(t, res.Success, res.Error)
	assert.True(t, strings.HasPrefix(res.Output, fmt.Sprintf("Contents of %s:\n", dir)))

	// Directories sort ahead of files, names case-insensitively.
	assert.Less(t, strings.Index(res.Output, "  sub/"), strings.Index(res.Output, "  Alpha.txt"))
	assert.Less(t, strings.Index(res.Output, "  Alpha.txt"), strings.Index(res.Output, "  zeta.txt"))
	assert.Contains(t, res.Output, "  zeta.txt  0.0 KB")

	paths, ok := res.Payload.([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "sub"),
		filepath.Join(dir, "Alpha.txt"),
		filepath.Join(dir, "zeta.txt"),
	}, paths)
}

func TestListDirectoryToolMissing(t *testing.T) {
	_, registry := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "nope")
	res := registry.Invoke(context.Background(), "list_directory", map[string]any{"path": path})

	require.False(t, res.Success)
	assert.Equal(t, fmt.Sprintf("Path does not exist: %s", path), res.Error)
	assert.Equal(t, fmt.Sprintf("[ERROR from list_directory] Path does not exist: %s", path), res.String())
}

func TestListDirectoryToolOnFile(t *testing.T) {
	_, registry := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	res := registry.Invoke(context.Background(), "list_directory", map[string]any{"path": path})

	require.False(t, res.Success)
	assert.Equal(t, fmt.Sprintf("Path is a file, not a directory: %s", path), res.Error)
}

// -------------------- Program Tool Tests --------------------

func TestRunProgramTool(t *testing.T) {
	requireCommand(t, "echo")
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "run_program", map[string]any{
		"command": "echo hello world",
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hello world", res.Output)

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, payload["returncode"])
}

func TestRunProgramToolNoOutput(t *testing.T) {
	requireCommand(t, "true")
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "run_program", map[string]any{"command": "true"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "(no output)", res.Output)
}

func TestRunProgramToolInputData(t *testing.T) {
	requireCommand(t, "cat")
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "run_program", map[string]any{
		"command":    "cat",
		"input_data": "ping",
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "ping", res.Output)
}

func TestRunProgramToolNonZeroExit(t *testing.T) {
	requireCommand(t, "sh")
	_, registry := newTestRegistry(t)

	script := filepath.Join(t.TempDir(), "fail.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo oops >&2\nexit 3\n"), 0o755))

	res := registry.Invoke(context.Background(), "run_program", map[string]any{
		"command": "sh " + script,
	})

	require.False(t, res.Success)
	assert.Equal(t, "Exited with code 3", res.Error)
	// The failure still carries the program's combined output.
	assert.Equal(t, "oops", res.Output)

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, payload["returncode"])
}

func TestRunProgramToolTimeout(t *testing.T) {
	requireCommand(t, "sleep")
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "run_program", map[string]any{
		"command": "sleep 5",
		"timeout": 0.1,
	})

	require.False(t, res.Success)
	assert.Equal(t, "Command timed out after 0.1s", res.Error)
}

func TestRunProgramToolExecutableNotFound(t *testing.T) {
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "run_program", map[string]any{
		"command": "definitely-not-a-real-binary-zz",
	})

	require.False(t, res.Success)
	assert.Equal(t, "Exited with code -1", res.Error)
	assert.Contains(t, res.Output, "executable not found")
}

func TestLaunchProgramTool(t *testing.T) {
	requireCommand(t, "sleep")
	tk, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "launch_program", map[string]any{
		"command": "sleep",
		"args":    "30",
	})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "Launched")

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok)

	pid, ok := payload["pid"].(int32)
	require.True(t, ok)
	require.Positive(t, pid)

	t.Cleanup(func() { tk.procs.Terminate(context.Background(), pid) })
}

func TestLaunchProgramToolNotFound(t *testing.T) {
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "launch_program", map[string]any{
		"command": "definitely-not-a-real-binary-zz",
	})

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "executable not found")
}

func TestListProgramsTool(t *testing.T) {
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "list_programs", nil)
	if !res.Success {
		t.Skipf("process listing unavailable: %s", res.Error)
	}

	assert.Contains(t, res.Output, "=== Process Summary")
	assert.Contains(t, res.Output, "Top processes by CPU:")
}

func TestListProgramsToolFilterNoMatch(t *testing.T) {
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "list_programs", map[string]any{
		"name_filter": "definitely-not-a-real-program-zz",
	})
	if !res.Success {
		t.Skipf("process listing unavailable: %s", res.Error)
	}

	assert.Contains(t, res.Output, "(total: 0)")
}

// -------------------- System Tool Tests --------------------

func TestSystemSnapshotTool(t *testing.T) {
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "system_snapshot", nil)
	if !res.Success {
		t.Skipf("system metrics unavailable: %s", res.Error)
	}

	assert.Contains(t, res.Output, "=== System Snapshot (")

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, payload, "cpu_percent")
	assert.Contains(t, payload, "memory_percent")
}

func TestGPUStatsTool(t *testing.T) {
	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "gpu_stats", nil)

	// Succeeds with or without hardware; the report text differs.
	require.True(t, res.Success, res.Error)
	hasGPU := strings.Contains(res.Output, "=== GPU Snapshot (")
	assert.True(t, hasGPU || strings.Contains(res.Output, "No NVIDIA GPUs detected."))
}

// -------------------- AI Tool Tests --------------------

func TestListAIAppsTool(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	apps := aiapp.NewRegistry(func(o *aiapp.RegistryOptions) {
		o.Apps = []aiapp.App{{Name: "Ollama", HealthURL: server.URL + "/api/tags"}}
	})

	_, registry := newTestRegistry(t, func(o *Options) { o.Apps = apps })

	res := registry.Invoke(context.Background(), "list_ai_apps", nil)

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "=== AI Programs ===")
	assert.Contains(t, res.Output, "✓ running")
	assert.Contains(t, res.Output, "1 of 1 programs running.")

	payload, ok := res.Payload.([]map[string]any)
	require.True(t, ok)
	require.Len(t, payload, 1)
	assert.Equal(t, "Ollama", payload[0]["name"])
	assert.Equal(t, true, payload[0]["running"])
}

func TestAskOllamaTool(t *testing.T) {
	var gotModel, gotPrompt string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[]}`)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel, gotPrompt = req.Model, req.Prompt

		fmt.Fprint(w, `{"response":"hi!","done":true}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "ask_ollama", map[string]any{
		"prompt": "say hi",
		"url":    server.URL,
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hi!", res.Output)
	assert.Equal(t, "llama3", gotModel)
	assert.Equal(t, "say hi", gotPrompt)

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi!", payload["response"])
	assert.Equal(t, "llama3", payload["model"])
}

func TestAskOllamaToolUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "ask_ollama", map[string]any{
		"prompt": "hello",
		"url":    url,
	})

	require.False(t, res.Success)
	assert.Equal(t, fmt.Sprintf("Ollama is not running at %s. Start it with: ollama serve", url), res.Error)
}

func TestListOllamaModelsTool(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"llama3","size":4661224676},{"name":"mistral","size":4109865159}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "list_ollama_models", map[string]any{"url": server.URL})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Ollama models:\n  llama3 (4.7 GB)\n  mistral (4.1 GB)", res.Output)

	names, ok := res.Payload.([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"llama3", "mistral"}, names)
}

func TestListOllamaModelsToolDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, registry := newTestRegistry(t)

	res := registry.Invoke(context.Background(), "list_ollama_models", map[string]any{"url": url})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "No models found (or Ollama is not running).", res.Output)

	names, ok := res.Payload.([]string)
	require.True(t, ok)
	assert.Empty(t, names)
}
