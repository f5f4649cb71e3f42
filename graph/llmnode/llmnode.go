// Package llmnode adapts a model.ChatModel into the state-in/state-out
// action an AI node expects. The AI-action base class is an external
// collaborator the core engine merely invokes (the engine never imports a
// concrete provider); this package is that collaborator.
package llmnode

import (
	"context"
	"fmt"

	"github.com/supersteps/graphrun/graph"
	"github.com/supersteps/graphrun/graph/model"
)

// ToolCallMessage is appended to a State when the model responds with tool
// calls instead of (or alongside) text, so a downstream Tool/ToolSet node can
// recognize and act on it without re-parsing the raw model.ChatOut.
type ToolCallMessage struct {
	Calls []model.ToolCall
}

// messageConverter extracts the model.Message view of a single opaque State
// item. Items that aren't already model.Message and don't implement this
// interface are skipped rather than rejected, since a State may carry
// non-conversational bookkeeping entries alongside chat turns.
type messageConverter interface {
	ToModelMessage() model.Message
}

func toMessages(items []any) []model.Message {
	out := make([]model.Message, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case model.Message:
			out = append(out, v)
		case messageConverter:
			out = append(out, v.ToModelMessage())
		}
	}
	return out
}

// NewChatAction builds a graph.Action that sends a State's accumulated
// model.Message items (plus an optional leading system prompt) to m, and
// appends the model's reply to the State: a model.Message for a text
// response, a ToolCallMessage when the model requested tool calls.
func NewChatAction(m model.ChatModel, systemPrompt string, tools []model.ToolSpec) graph.Action {
	return graph.NewAction(func(ctx context.Context, state graph.State) (graph.State, error) {
		messages := toMessages(state.Messages)
		if systemPrompt != "" {
			messages = append([]model.Message{{Role: model.RoleSystem, Content: systemPrompt}}, messages...)
		}

		out, err := m.Chat(ctx, messages, tools)
		if err != nil {
			return graph.State{}, fmt.Errorf("%w: chat: %v", graph.ErrInvalidOutput, err)
		}

		next := state
		if len(out.ToolCalls) > 0 {
			next = next.Append(ToolCallMessage{Calls: out.ToolCalls})
		}
		if out.Text != "" {
			next = next.Append(model.Message{Role: model.RoleAssistant, Content: out.Text})
		}
		return next, nil
	})
}

// LazyModel defers constructing a model.ChatModel until a graph run actually
// reaches the AI node, matching the one-shot build_model hook AI nodes
// declare (spec: "built lazily, a one-shot build_model hook runs before the
// first execution"). factory typically closes over provider credentials
// read once at process startup.
type LazyModel struct {
	factory func(ctx context.Context) (model.ChatModel, error)
	built   model.ChatModel
}

// NewLazyModel wraps factory for use as an AI node's build_model hook plus
// action source: call BuildHook once via graph.NewAINode, then Action to
// obtain the chat action after the model exists.
func NewLazyModel(factory func(ctx context.Context) (model.ChatModel, error)) *LazyModel {
	return &LazyModel{factory: factory}
}

// BuildHook satisfies the func(ctx) error signature graph.NewAINode expects.
func (lm *LazyModel) BuildHook(ctx context.Context) error {
	m, err := lm.factory(ctx)
	if err != nil {
		return err
	}
	lm.built = m
	return nil
}

// Action returns a graph.Action that delegates to the model built by
// BuildHook. Calling it before BuildHook has run is a programmer error; the
// executor always runs BuildHook first (graph.Node.execute's one-shot
// invariant).
func (lm *LazyModel) Action(systemPrompt string, tools []model.ToolSpec) graph.Action {
	return graph.NewAction(func(ctx context.Context, state graph.State) (graph.State, error) {
		if lm.built == nil {
			return graph.State{}, fmt.Errorf("llmnode: build_model has not run yet")
		}
		return NewChatAction(lm.built, systemPrompt, tools).Call(ctx, state)
	})
}
