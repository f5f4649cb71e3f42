package graph

import "context"

// GraphBuilder constructs and validates a Graph. It seeds the reserved
// "start" and "end" identity nodes at construction so callers never need to
// create them (spec §4.1).
type GraphBuilder struct {
	nodes            map[string]*Node
	concreteEdges    []ConcreteEdge
	conditionalEdges []ConditionalEdge

	// pairSeen tracks, for each ordered (source, sink) pair, which edge kind
	// already claims it, enforcing invariant 3 (Concrete/Conditional
	// mutual exclusion and no duplicate Concrete edges).
	pairSeen map[[2]string]edgeClaim

	err error // first validation error encountered; sticky across calls
}

type edgeClaim int

const (
	claimNone edgeClaim = iota
	claimConcrete
	claimConditional
)

// NewGraphBuilder returns a Builder seeded with the start/end identity nodes.
func NewGraphBuilder() *GraphBuilder {
	b := &GraphBuilder{
		nodes:    make(map[string]*Node),
		pairSeen: make(map[[2]string]edgeClaim),
	}
	identity := func() func(ctx context.Context, state State) (State, error) {
		return func(_ context.Context, state State) (State, error) { return state, nil }
	}
	b.nodes[StartID] = &Node{ID: StartID, Kind: KindProcessing, single: identity(), role: roleNodeAction}
	b.nodes[EndID] = &Node{ID: EndID, Kind: KindProcessing, single: identity(), role: roleNodeAction}
	return b
}

// fail records the first error seen; later calls become no-ops once err is set,
// so callers can chain operations and check the error once at Build time.
func (b *GraphBuilder) fail(err error) *GraphBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *GraphBuilder) roleOf(n *Node) actionRole { return n.role }

// AddNode registers a Processing, Tool, AI, HumanInTheLoop, or ToolSet node.
// Fails with GraphConfiguration for an empty id or an Aggregator node, with
// DuplicateNode if id is already registered, with ActionNotDecorated if the
// node's wrapped action was not built via the matching constructor, or with
// EmptyToolDescription for a Tool node without a description.
func (b *GraphBuilder) AddNode(n *Node) *GraphBuilder {
	if b.err != nil {
		return b
	}
	if n == nil || n.ID == "" {
		return b.fail(newBuildError(CodeGraphConfiguration, "", "node id must be non-empty"))
	}
	if _, exists := b.nodes[n.ID]; exists {
		return b.fail(newBuildError(CodeDuplicateNode, n.ID, "node id already registered"))
	}
	if n.Kind == KindAggregator {
		return b.fail(newBuildError(CodeGraphConfiguration, n.ID, "use AddAggregator for aggregator nodes"))
	}
	wantRole := roleNodeAction
	if n.Kind == KindTool {
		wantRole = roleToolMethod
	}
	if n.role != wantRole {
		return b.fail(newBuildError(CodeActionNotDecorated, n.ID, "action is not tagged as the expected role"))
	}
	if n.Kind == KindTool && !n.HasDescription() {
		return b.fail(newBuildError(CodeEmptyToolDesc, n.ID, "tool node requires a non-empty description or docstring"))
	}
	b.nodes[n.ID] = n
	return b
}

// AddAggregator registers an Aggregator node (N states -> 1 state).
func (b *GraphBuilder) AddAggregator(n *Node) *GraphBuilder {
	if b.err != nil {
		return b
	}
	if n == nil || n.ID == "" {
		return b.fail(newBuildError(CodeGraphConfiguration, "", "node id must be non-empty"))
	}
	if _, exists := b.nodes[n.ID]; exists {
		return b.fail(newBuildError(CodeDuplicateNode, n.ID, "node id already registered"))
	}
	if n.Kind != KindAggregator {
		return b.fail(newBuildError(CodeGraphConfiguration, n.ID, "AddAggregator requires an aggregator node"))
	}
	if n.role != roleAggregatorAction {
		return b.fail(newBuildError(CodeActionNotDecorated, n.ID, "action is not tagged as an aggregator action"))
	}
	b.nodes[n.ID] = n
	return b
}

func (b *GraphBuilder) claim(source, sink string, kind edgeClaim) bool {
	key := [2]string{source, sink}
	if existing := b.pairSeen[key]; existing != claimNone {
		return false
	}
	b.pairSeen[key] = kind
	return true
}

// AddConcreteEdge adds an unconditional edge. Fails with NodeNotFound if
// either id is unregistered, GraphConfiguration if end is used as source or
// start as sink, or EdgeExists on a duplicate/Conditional conflict for the
// same (source, sink) pair.
func (b *GraphBuilder) AddConcreteEdge(sourceID, sinkID string) *GraphBuilder {
	if b.err != nil {
		return b
	}
	if err := b.validateEndpoints(sourceID, []string{sinkID}); err != nil {
		return b.fail(err)
	}
	if !b.claim(sourceID, sinkID, claimConcrete) {
		return b.fail(newBuildError(CodeEdgeExists, sourceID, "a Concrete or Conditional edge already exists for this (source, sink) pair"))
	}
	idx := len(b.concreteEdges)
	b.concreteEdges = append(b.concreteEdges, ConcreteEdge{SourceID: sourceID, SinkID: sinkID})
	b.nodes[sourceID].outgoing = append(b.nodes[sourceID].outgoing, edgeRef{concrete: true, concreteIdx: idx})
	b.nodes[sinkID].incoming = append(b.nodes[sinkID].incoming, edgeRef{concrete: true, concreteIdx: idx})
	return b
}

// AddConditionalEdge adds a branch from sourceID to one of sinkIDs, chosen at
// runtime by router. Fails with RouterNotDecorated if router was not built
// via NewRouter, or EdgeExists if any (source, sink) pair in sinkIDs already
// carries a Concrete or Conditional claim.
func (b *GraphBuilder) AddConditionalEdge(sourceID string, sinkIDs []string, router Router) *GraphBuilder {
	if b.err != nil {
		return b
	}
	if router.role != roleRouter {
		return b.fail(newBuildError(CodeRouterNotDecorated, sourceID, "routing function is not tagged as a router"))
	}
	if err := b.validateEndpoints(sourceID, sinkIDs); err != nil {
		return b.fail(err)
	}
	for _, sink := range sinkIDs {
		if !b.claim(sourceID, sink, claimConditional) {
			return b.fail(newBuildError(CodeEdgeExists, sourceID, "a Concrete or Conditional edge already exists for this (source, sink) pair"))
		}
	}
	idx := len(b.conditionalEdges)
	b.conditionalEdges = append(b.conditionalEdges, ConditionalEdge{SourceID: sourceID, SinkIDs: append([]string(nil), sinkIDs...), Router: router})
	b.nodes[sourceID].outgoing = append(b.nodes[sourceID].outgoing, edgeRef{concrete: false, condIdx: idx})
	for _, sink := range sinkIDs {
		b.nodes[sink].incoming = append(b.nodes[sink].incoming, edgeRef{concrete: false, condIdx: idx})
	}
	return b
}

func (b *GraphBuilder) validateEndpoints(sourceID string, sinkIDs []string) error {
	if sourceID == EndID {
		return newBuildError(CodeGraphConfiguration, sourceID, "end must never be the source of an edge")
	}
	if _, ok := b.nodes[sourceID]; !ok {
		return newBuildError(CodeNodeNotFound, sourceID, "unknown source node")
	}
	for _, sink := range sinkIDs {
		if sink == StartID {
			return newBuildError(CodeGraphConfiguration, sink, "start must never be the sink of an edge")
		}
		if _, ok := b.nodes[sink]; !ok {
			return newBuildError(CodeNodeNotFound, sink, "unknown sink node")
		}
	}
	return nil
}

// SetFallback declares fallbackID as nodeID's fallback node, run when
// nodeID's best effort (all retries) still fails.
func (b *GraphBuilder) SetFallback(nodeID, fallbackID string) *GraphBuilder {
	if b.err != nil {
		return b
	}
	n, ok := b.nodes[nodeID]
	if !ok {
		return b.fail(newBuildError(CodeNodeNotFound, nodeID, "unknown node"))
	}
	if _, ok := b.nodes[fallbackID]; !ok {
		return b.fail(newBuildError(CodeNodeNotFound, fallbackID, "unknown fallback node"))
	}
	n.FallbackID = fallbackID
	return b
}

// Build validates the remaining topology invariants (spec §3 invariants
// 4-5) and freezes the Graph. Any error recorded by an earlier mutating call
// is returned here first.
func (b *GraphBuilder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}

	startHasConcrete := false
	for _, e := range b.concreteEdges {
		if e.SourceID == StartID {
			startHasConcrete = true
			break
		}
	}
	if !startHasConcrete {
		return nil, newBuildError(CodeGraphConfiguration, StartID, "start requires at least one outgoing Concrete edge")
	}
	for _, e := range b.conditionalEdges {
		if e.SourceID == StartID {
			return nil, newBuildError(CodeGraphConfiguration, StartID, "start must not have an outgoing Conditional edge")
		}
	}

	endHasIncoming := false
	for _, e := range b.concreteEdges {
		if e.SinkID == EndID {
			endHasIncoming = true
			break
		}
	}
	if !endHasIncoming {
		for _, e := range b.conditionalEdges {
			if e.contains(EndID) {
				endHasIncoming = true
				break
			}
		}
	}
	if !endHasIncoming {
		return nil, newBuildError(CodeGraphConfiguration, EndID, "end requires at least one incoming edge")
	}

	g := &Graph{
		nodes:               b.nodes,
		concreteEdges:       b.concreteEdges,
		conditionalEdges:    b.conditionalEdges,
		outgoingConcrete:    make(map[string][]int),
		outgoingConditional: make(map[string][]int),
		producersBySink:     make(map[string][]producerRef),
	}
	for i, e := range b.concreteEdges {
		g.outgoingConcrete[e.SourceID] = append(g.outgoingConcrete[e.SourceID], i)
		g.producersBySink[e.SinkID] = append(g.producersBySink[e.SinkID], producerRef{kind: producerConcrete, idx: i})
	}
	for i, e := range b.conditionalEdges {
		g.outgoingConditional[e.SourceID] = append(g.outgoingConditional[e.SourceID], i)
		for _, sink := range e.SinkIDs {
			g.producersBySink[sink] = append(g.producersBySink[sink], producerRef{kind: producerConditional, idx: i})
		}
	}
	return g, nil
}
