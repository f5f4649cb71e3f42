package toolset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supersteps/graphrun/graph"
)

func TestMockInvoker_DefaultEchoesInput(t *testing.T) {
	m := &MockInvoker{}
	out, err := m.InvokeTool(context.Background(), "http://x", "search", graph.NewState("q"))

	require.NoError(t, err)
	assert.Equal(t, "q", out.Last())
	assert.Equal(t, 1, m.CallCount())
}

func TestMockInvoker_ReturnsResponsesInSequenceThenRepeatsLast(t *testing.T) {
	m := &MockInvoker{Responses: []graph.State{graph.NewState("first"), graph.NewState("second")}}
	ctx := context.Background()

	r1, err := m.InvokeTool(ctx, "http://x", "t", graph.State{})
	require.NoError(t, err)
	r2, err := m.InvokeTool(ctx, "http://x", "t", graph.State{})
	require.NoError(t, err)
	r3, err := m.InvokeTool(ctx, "http://x", "t", graph.State{})
	require.NoError(t, err)

	assert.Equal(t, "first", r1.Last())
	assert.Equal(t, "second", r2.Last())
	assert.Equal(t, "second", r3.Last(), "responses repeat the last entry once exhausted")
}

func TestMockInvoker_ErrShortCircuits(t *testing.T) {
	m := &MockInvoker{Err: errors.New("boom")}
	_, err := m.InvokeTool(context.Background(), "http://x", "t", graph.State{})
	assert.EqualError(t, err, "boom")
}

func TestMockInvoker_RecordsCallsWithArguments(t *testing.T) {
	m := &MockInvoker{}
	_, err := m.InvokeTool(context.Background(), "http://base", "search", graph.NewState("q"))
	require.NoError(t, err)

	require.Len(t, m.Calls, 1)
	assert.Equal(t, "http://base", m.Calls[0].BaseURL)
	assert.Equal(t, "search", m.Calls[0].ToolName)
}

func TestMockInvoker_Reset(t *testing.T) {
	m := &MockInvoker{}
	_, _ = m.InvokeTool(context.Background(), "http://x", "t", graph.State{})
	m.Reset()

	assert.Equal(t, 0, m.CallCount())
}

func TestMockInvoker_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &MockInvoker{}
	_, err := m.InvokeTool(ctx, "http://x", "t", graph.State{})
	assert.ErrorIs(t, err, context.Canceled)
}
