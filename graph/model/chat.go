// Package model is the AI node's external collaborator boundary: a
// ChatModel interface plus provider adapters. The core graph engine never
// imports a concrete provider or this package directly — graph/llmnode
// bridges a ChatModel into a graph.Action, converting State items to/from
// Message via the messageConverter interface it defines, so a State can
// carry a running conversation without graph itself knowing what a Message
// is.
package model

import "context"

// ChatModel is the interface every provider adapter (anthropic, openai,
// google) and MockChatModel implement. graph/llmnode.NewChatAction is the
// only caller inside this module; it sends a State's accumulated Message
// items to Chat and appends the reply back onto the State.
type ChatModel interface {
	// Chat sends messages to the LLM and returns its response. tools may be
	// nil. Implementations must respect ctx cancellation.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn in an LLM conversation. An AI node's State carries a
// sequence of Message items (plus, after a tool-calling turn, a
// llmnode.ToolCallMessage); graph/llmnode converts between the two via the
// messageConverter interface rather than coupling graph.State to this type
// directly.
type Message struct {
	Role    string
	Content string
}

// Standard role constants for LLM conversations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes one tool an AI node's model may call, in JSON Schema
// form, matching graph/toolset's catalog so a ToolSet node registered
// alongside an AI node can be described to the model directly.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ChatOut is a ChatModel's response: Text, ToolCalls, or both.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
}

// ToolCall is one tool invocation the model requested. graph/llmnode wraps
// a non-empty ToolCalls slice in a ToolCallMessage and appends it to the
// State so a downstream Tool/ToolSet node can act on it.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}
