package toolset

import (
	"context"
	"sync"

	"github.com/supersteps/graphrun/graph"
)

// MockInvoker is a test double implementing graph.ToolInvoker without
// making real HTTP calls. Use it to verify ToolSet node wiring in graph
// tests.
type MockInvoker struct {
	// Responses is the sequence of states returned, one per call; the last
	// response repeats once exhausted.
	Responses []graph.State

	// Err, if set, is returned instead of a response.
	Err error

	// Calls records every invocation for assertions.
	Calls []MockInvocation

	mu        sync.Mutex
	callIndex int
}

// MockInvocation records one InvokeTool call.
type MockInvocation struct {
	BaseURL  string
	ToolName string
	State    graph.State
}

// InvokeTool implements graph.ToolInvoker.
func (m *MockInvoker) InvokeTool(ctx context.Context, baseURL, toolName string, state graph.State) (graph.State, error) {
	if ctx.Err() != nil {
		return graph.State{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockInvocation{BaseURL: baseURL, ToolName: toolName, State: state})

	if m.Err != nil {
		return graph.State{}, m.Err
	}
	if len(m.Responses) == 0 {
		return state, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears call history and the response cursor.
func (m *MockInvoker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns how many times InvokeTool has been called.
func (m *MockInvoker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
