// Package toolkit assembles the assistant's built-in tools: file access,
// program execution, system and GPU monitoring, AI program discovery and
// Ollama inference, all exposed through the generic tool registry.
package toolkit
