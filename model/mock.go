package model

import (
	"context"
	"fmt"
	"sync"
)

type mockReply struct {
	content string
	err     error
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
//
// Replies are consumed in FIFO order; once the script is exhausted the mock
// echoes the last message it received. Reachability is a plain flag so tests
// can force either planner path deterministically.
type MockModel struct {
	mu        sync.Mutex
	name      string
	reachable bool
	script    []mockReply
	calls     []ChatRequest
}

// NewMockModel constructs a reachable MockModel with an empty script.
func NewMockModel() *MockModel {
	return &MockModel{name: "mock-model", reachable: true}
}

// SetReachable toggles the result of IsReachable.
func (m *MockModel) SetReachable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reachable = v
}

// AddResponse enqueues a deterministic canned completion.
func (m *MockModel) AddResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{content: content})
}

// AddError enqueues a transport failure for one call.
func (m *MockModel) AddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{err: err})
}

// Calls returns a copy of every ChatRequest seen so far.
func (m *MockModel) Calls() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// Info implements Model.
func (m *MockModel) Info() Info { return Info{Name: m.name, Provider: "mock"} }

// IsReachable implements Model.
func (m *MockModel) IsReachable(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reachable
}

// Chat implements Model; pops the next scripted reply or echoes the last
// message when the script ran dry.
func (m *MockModel) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		if next.err != nil {
			return nil, next.err
		}
		return &ChatResponse{Model: m.name, Content: next.content, Done: true}, nil
	}

	var last string
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	return &ChatResponse{Model: m.name, Content: fmt.Sprintf("Mock response to: %s", last), Done: true}, nil
}
