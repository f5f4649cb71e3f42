package graph

import (
	"context"
	"fmt"
	"sync"
)

// actionRole tags the role a user-supplied function was registered under.
// The Builder refuses to wire a function whose role does not match the
// position it was registered in (spec §3 invariant 7, §9 "routing function
// role tags": a portable design marks routing and action functions by
// wrapping them in a small record {fn, role}).
type actionRole string

const (
	roleNone             actionRole = ""
	roleNodeAction       actionRole = "node_action"
	roleAggregatorAction actionRole = "aggregator_action"
	roleToolMethod       actionRole = "tool_method"
	roleRouter           actionRole = "router"
)

// Action wraps a Processing/AI/HumanInTheLoop node's state-to-state
// transformation. Use NewAction to construct one; a zero-value Action is
// rejected by the Builder as ActionNotDecorated.
type Action struct {
	fn   func(ctx context.Context, state State) (State, error)
	role actionRole
}

// NewAction tags fn as a node action.
func NewAction(fn func(ctx context.Context, state State) (State, error)) Action {
	return Action{fn: fn, role: roleNodeAction}
}

// Call invokes the wrapped function directly, letting external adapters
// (graph/llmnode, graph/toolset) compose Actions without reaching into
// unexported fields.
func (a Action) Call(ctx context.Context, state State) (State, error) {
	return a.fn(ctx, state)
}

// AggregatorAction wraps an Aggregator node's many-to-one reduction.
type AggregatorAction struct {
	fn   func(ctx context.Context, states []State) (State, error)
	role actionRole
}

// NewAggregatorAction tags fn as an aggregator action.
func NewAggregatorAction(fn func(ctx context.Context, states []State) (State, error)) AggregatorAction {
	return AggregatorAction{fn: fn, role: roleAggregatorAction}
}

// ToolMethod wraps a Tool node's action together with its human-readable
// description. At least one of Description/Docstring must be non-empty, or
// the Builder rejects it with EmptyToolDescription.
type ToolMethod struct {
	fn          func(ctx context.Context, state State) (State, error)
	role        actionRole
	description string
	docstring   string
}

// NewToolMethod tags fn as a tool method with the given description and
// optional docstring (either may be empty, but not both).
func NewToolMethod(fn func(ctx context.Context, state State) (State, error), description, docstring string) ToolMethod {
	return ToolMethod{fn: fn, role: roleToolMethod, description: description, docstring: docstring}
}

// Router wraps a Conditional edge's routing function. The function must
// return one of the edge's declared sink ids; violations surface as
// InvalidRoutingOutput at runtime.
type Router struct {
	fn   func(state State) string
	role actionRole
}

// NewRouter tags fn as a routing function.
func NewRouter(fn func(state State) string) Router {
	return Router{fn: fn, role: roleRouter}
}

// NodeKind identifies which of the six node variants a Node is.
type NodeKind string

const (
	KindProcessing      NodeKind = "processing"
	KindAggregator      NodeKind = "aggregator"
	KindTool            NodeKind = "tool"
	KindAI              NodeKind = "ai"
	KindHumanInTheLoop  NodeKind = "human_in_the_loop"
	KindToolSet         NodeKind = "toolset"
)

// edgeRef is a lightweight pointer from a Node back to an Edge living in the
// owning Graph's edge table, referenced by index rather than by owning
// pointer (spec §9 "cyclic graph representation").
type edgeRef struct {
	concrete    bool
	concreteIdx int // index into Graph.concreteEdges, if concrete
	condIdx     int // index into Graph.conditionalEdges, if conditional
}

// Node is a vertex in a Graph: a stable id plus ordered incoming/outgoing
// edge references, an optional fallback node id, an optional per-node retry
// override, and exactly one variant-specific action.
type Node struct {
	ID         string
	Kind       NodeKind
	FallbackID string
	Retry      *RetryPolicy

	incoming []edgeRef
	outgoing []edgeRef

	single func(ctx context.Context, state State) (State, error) // Processing, Tool, AI, HumanInTheLoop, ToolSet
	multi  func(ctx context.Context, states []State) (State, error) // Aggregator

	role actionRole // role of the wrapped action, validated at build_graph

	description string // Tool
	docstring   string // Tool

	buildModel    func(ctx context.Context) error // AI: one-shot hook
	buildModelOnce sync.Once
	buildModelErr  error
}

// ToolInvoker performs the HTTP call a ToolSet node's action delegates to.
// graph/toolset.Client implements this interface; graph never imports
// graph/toolset to avoid a dependency cycle.
type ToolInvoker interface {
	InvokeTool(ctx context.Context, baseURL, toolName string, state State) (State, error)
}

// NewProcessingNode builds a Processing node: one state in, one state out.
func NewProcessingNode(id string, action Action) *Node {
	return &Node{ID: id, Kind: KindProcessing, single: action.fn, role: action.role}
}

// NewAggregatorNode builds an Aggregator node: many states in, one state out.
func NewAggregatorNode(id string, action AggregatorAction) *Node {
	return &Node{ID: id, Kind: KindAggregator, multi: action.fn, role: action.role}
}

// NewToolNode builds a Tool node: a Processing node tagged as tool-callable,
// carrying a human-readable description for upstream orchestration.
func NewToolNode(id string, action ToolMethod) *Node {
	return &Node{
		ID: id, Kind: KindTool, single: action.fn, role: action.role,
		description: action.description, docstring: action.docstring,
	}
}

// NewAINode builds an AI node. buildModel, if non-nil, runs exactly once
// (idempotent flag) before the node's first execution.
func NewAINode(id string, action Action, buildModel func(ctx context.Context) error) *Node {
	return &Node{ID: id, Kind: KindAI, single: action.fn, role: action.role, buildModel: buildModel}
}

// NewHumanInTheLoopNode builds a HumanInTheLoop node. Semantics are
// identical to Processing; the variant is metadata for upstream
// orchestration (logging, UI) flagging the action as potentially blocking.
func NewHumanInTheLoopNode(id string, action Action) *Node {
	return &Node{ID: id, Kind: KindHumanInTheLoop, single: action.fn, role: action.role}
}

// NewToolSetNode builds a ToolSet node whose action performs an HTTP POST of
// the state's messages to {baseURL}/tools/{toolName} via invoker.
func NewToolSetNode(id, baseURL, toolName string, invoker ToolInvoker) *Node {
	n := &Node{ID: id, Kind: KindToolSet, role: roleNodeAction}
	n.single = func(ctx context.Context, state State) (State, error) {
		return invoker.InvokeTool(ctx, baseURL, toolName, state)
	}
	return n
}

// execute runs the node against a single input State, lazily building an AI
// node's model exactly once before its first invocation.
func (n *Node) execute(ctx context.Context, state State) (State, error) {
	if n.Kind == KindAI && n.buildModel != nil {
		n.buildModelOnce.Do(func() { n.buildModelErr = n.buildModel(ctx) })
		if n.buildModelErr != nil {
			return State{}, fmt.Errorf("node %s: build_model: %w", n.ID, n.buildModelErr)
		}
	}
	if n.single == nil {
		return State{}, fmt.Errorf("node %s: not a single-input node", n.ID)
	}
	return n.single(ctx, state)
}

// executeMany runs an Aggregator node against its ordered input states.
func (n *Node) executeMany(ctx context.Context, states []State) (State, error) {
	if n.multi == nil {
		return State{}, fmt.Errorf("node %s: not a multi-input node", n.ID)
	}
	return n.multi(ctx, states)
}

// HasDescription reports whether a Tool node carries a non-empty
// description or docstring, satisfying spec §3's Tool invariant.
func (n *Node) HasDescription() bool {
	return n.description != "" || n.docstring != ""
}
