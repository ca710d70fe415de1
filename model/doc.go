// Package model defines the provider agnostic abstraction DeskAgent uses to
// talk to conversational model backends, local or cloud.
//
// Core goals:
//   - One small interface (Model) covering reachability probing and chat
//   - Plain message shapes ({role, content}) independent of any vendor SDK
//   - Lightweight mocking for tests (MockModel with scripted replies)
//
// Backends (Ollama, OpenAI compatible servers, Anthropic) implement the Model
// interface from this package so the planners remain decoupled from transport
// details.
package model
