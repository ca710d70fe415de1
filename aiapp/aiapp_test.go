package aiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Status Tests --------------------

func TestStatusString(t *testing.T) {
	up := Status{Name: "Ollama", URL: "http://localhost:11434", Running: true, Version: "0.5.4"}
	down := Status{Name: "ComfyUI", URL: "http://localhost:8188"}

	assert.Equal(t, "[Ollama]  v0.5.4  ✓ running  (http://localhost:11434)", up.String())
	assert.Equal(t, "[ComfyUI]  ✗ not running  (http://localhost:8188)", down.String())
}

func TestKnownApps(t *testing.T) {
	apps := KnownApps()

	require.Len(t, apps, 10)
	assert.Equal(t, "Ollama", apps[0].Name)
	assert.NotEmpty(t, apps[0].VersionURL)
}

// -------------------- Registry Tests --------------------

func TestDiscoverRunningApp(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models": []}`))
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version": "0.5.4"}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	registry := NewRegistry(func(o *RegistryOptions) {
		o.Apps = []App{{
			Name:       "Ollama",
			HealthURL:  server.URL + "/api/tags",
			VersionURL: server.URL + "/api/version",
		}}
	})

	statuses := registry.Discover(context.Background())

	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Running)
	assert.Equal(t, "0.5.4", statuses[0].Version)
	assert.Equal(t, server.URL, statuses[0].URL)
}

func TestDiscoverErrorStatusCountsAsRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	registry := NewRegistry(func(o *RegistryOptions) {
		o.Apps = []App{{Name: "ComfyUI", HealthURL: server.URL + "/system_stats"}}
	})

	statuses := registry.Discover(context.Background())

	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Running)
}

func TestDiscoverUnreachableApp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	registry := NewRegistry(func(o *RegistryOptions) {
		o.Apps = []App{{Name: "LM Studio", HealthURL: server.URL + "/v1/models"}}
		o.ProbeTimeout = 200 * time.Millisecond
	})

	statuses := registry.Discover(context.Background())

	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Running)
	assert.Empty(t, statuses[0].Version)
}

func TestDiscoverKeepsTableOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	registry := NewRegistry(func(o *RegistryOptions) {
		o.Apps = []App{
			{Name: "First", HealthURL: server.URL},
			{Name: "Second", HealthURL: server.URL},
			{Name: "Third", HealthURL: server.URL},
		}
	})

	statuses := registry.Discover(context.Background())

	require.Len(t, statuses, 3)
	assert.Equal(t, "First", statuses[0].Name)
	assert.Equal(t, "Second", statuses[1].Name)
	assert.Equal(t, "Third", statuses[2].Name)
}

func TestRunningFiltersDownApps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	registry := NewRegistry(func(o *RegistryOptions) {
		o.Apps = []App{
			{Name: "Up", HealthURL: server.URL},
			{Name: "Down", HealthURL: "http://127.0.0.1:1/nope"},
		}
		o.ProbeTimeout = 200 * time.Millisecond
	})

	running := registry.Running(context.Background())

	require.Len(t, running, 1)
	assert.Equal(t, "Up", running[0].Name)
}

func TestRegisterAddsApp(t *testing.T) {
	registry := NewRegistry(func(o *RegistryOptions) {
		o.Apps = nil
	})

	registry.Register(App{Name: "Custom", HealthURL: "http://localhost:9999"})

	apps := registry.Apps()
	require.Len(t, apps, 1)
	assert.Equal(t, "Custom", apps[0].Name)
}

// -------------------- Format Tests --------------------

func TestFormatStatus(t *testing.T) {
	statuses := []Status{
		{Name: "Ollama", URL: "http://localhost:11434", Running: true, Version: "0.5.4"},
		{Name: "ComfyUI", URL: "http://localhost:8188"},
	}

	out := FormatStatus(statuses)

	assert.Contains(t, out, "=== AI Programs ===")
	assert.Contains(t, out, "  [Ollama]  v0.5.4  ✓ running  (http://localhost:11434)")
	assert.Contains(t, out, "  [ComfyUI]  ✗ not running  (http://localhost:8188)")
	assert.Contains(t, out, "\n\n  1 of 2 programs running.")
}

func TestFormatStatusEmpty(t *testing.T) {
	out := FormatStatus(nil)

	assert.Contains(t, out, "=== AI Programs ===")
	assert.Contains(t, out, "0 of 0 programs running.")
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434", baseURL("http://localhost:11434/api/tags"))
	assert.Equal(t, "not a url", baseURL("not a url"))
}
