// Package aiapp discovers locally installed AI programs such as Ollama,
// ComfyUI and LM Studio by probing their HTTP endpoints, and reports which
// of them are currently running.
package aiapp
