package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/supersteps/graphrun/graph/emit"
)

// ErrInvalidOutput is the sentinel a node/aggregator action wraps when it
// detects that externally-sourced data (an HTTP response body, a model
// reply) did not shape into a valid State. The executor classifies a
// persistent failure of this kind as InvalidActionOutput/
// InvalidAggregatorOutput rather than the generic NodeExecutionFailed
// (spec §7).
var ErrInvalidOutput = errors.New("graph: action produced invalid output")

// Executor drives a Graph through supersteps: within a superstep every
// currently-active node executes concurrently on its pending inputs;
// between supersteps, produced states are routed along outgoing edges to
// become the next superstep's inputs (spec §4.2).
type Executor struct {
	graph *Graph
	opts  Options
}

// NewExecutor constructs an Executor for g, applying defaults and then the
// given options in order.
func NewExecutor(g *Graph, opts ...Option) *Executor {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &Executor{graph: g, opts: o}
}

// Execute runs the graph to completion starting from an empty State (use
// ExecuteFrom to supply an initial state), returning the
// final state observed at "end", or nil if "end" was never reached before
// the pending map drained (the Builder's invariant 5 prevents this in a
// valid graph; see spec §4.2).
func (e *Executor) Execute(ctx context.Context) (*State, error) {
	return e.run(ctx, State{})
}

// ExecuteFrom runs the graph to completion starting from the given initial
// state.
func (e *Executor) ExecuteFrom(ctx context.Context, initial State) (*State, error) {
	return e.run(ctx, initial)
}

func (e *Executor) run(ctx context.Context, initial State) (*State, error) {
	runID := uuid.NewString()
	emitter := e.opts.Emitter
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	defer func() { _ = emitter.Flush(ctx) }()

	pending := PendingMap{StartID: []State{initial}}
	superstep := 0

	switch {
	case e.opts.CheckpointStore != nil:
		if step, loaded, ok, err := e.opts.CheckpointStore.LoadCheckpoint(ctx); err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		} else if ok {
			pending = loaded.clone()
			superstep = step
		}
	case e.opts.Checkpointer != nil && e.opts.CheckpointPath != "":
		if data, ok, err := e.opts.Checkpointer.LoadCheckpointData(ctx, e.opts.CheckpointPath); err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		} else if ok {
			pending = data.Pending.clone()
			superstep = data.Superstep
		}
	}

	var finalState *State

	for len(pending) > 0 {
		if superstep >= e.opts.MaxSupersteps {
			return finalState, newExecError(CodeMaxSupersteps, "", superstep, "max supersteps reached", ErrMaxSupersteps)
		}

		emitter.Emit(emit.Event{RunID: runID, Step: superstep, Msg: "superstep_start"})

		next, observedFinal, err := e.runSuperstep(ctx, runID, superstep, pending, emitter)
		if err != nil {
			return finalState, err
		}
		if observedFinal != nil {
			finalState = observedFinal
		}

		if e.shouldCheckpoint(superstep + 1) {
			if err := e.persistCheckpoint(ctx, superstep+1, next, finalState); err != nil {
				return finalState, fmt.Errorf("save checkpoint: %w", err)
			}
			emitter.Emit(emit.Event{RunID: runID, Step: superstep + 1, Msg: "checkpoint_saved"})
			e.opts.Metrics.IncCheckpointSaved(runID)
		}

		emitter.Emit(emit.Event{RunID: runID, Step: superstep, Msg: "superstep_end"})
		pending = next
		superstep++
	}

	return finalState, nil
}

func (e *Executor) shouldCheckpoint(nextStep int) bool {
	if e.opts.CheckpointStore != nil {
		return true
	}
	if e.opts.Checkpointer != nil && e.opts.CheckpointEvery > 0 {
		return nextStep%e.opts.CheckpointEvery == 0
	}
	return false
}

func (e *Executor) persistCheckpoint(ctx context.Context, step int, pending PendingMap, finalState *State) error {
	if e.opts.CheckpointStore != nil {
		return e.opts.CheckpointStore.SaveCheckpoint(ctx, step, pending)
	}
	if e.opts.Checkpointer != nil {
		data := CheckpointData{
			Pending:     pending,
			Superstep:   step,
			FinalState:  finalState,
			RetryPolicy: e.opts.RetryPolicy,
			MaxWorkers:  e.opts.MaxWorkers,
		}
		return e.opts.Checkpointer.SaveCheckpointData(ctx, e.opts.CheckpointPath, data)
	}
	return nil
}

// taskOutcome is one active node's result for the superstep, produced after
// retries and any fallback have been exhausted.
type taskOutcome struct {
	nodeID string
	state  State
	err    *ExecError // non-nil means fatal
}

// runSuperstep executes every currently-active node concurrently (bounded by
// MaxWorkers), awaits the barrier, and routes successful outputs into the
// next pending map. Any fatal outcome cancels the remaining in-flight tasks,
// waits for their termination, and is returned without advancing state.
func (e *Executor) runSuperstep(ctx context.Context, runID string, superstep int, pending PendingMap, emitter emit.Emitter) (PendingMap, *State, error) {
	stepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := time.Now()
	sem := make(chan struct{}, maxWorkers(e.opts.MaxWorkers))
	outcomes := make(chan taskOutcome, len(pending))
	var wg sync.WaitGroup
	var active int64

	for nodeID, states := range pending {
		node, ok := e.graph.Node(nodeID)
		if !ok {
			// Unreachable for a graph produced by GraphBuilder.Build, but
			// guard against a hand-built Graph referencing a stale id.
			outcomes <- taskOutcome{nodeID: nodeID, err: newExecError(CodeNodeExecutionFailed, nodeID, superstep, "node not found in graph", nil)}
			continue
		}

		wg.Add(1)
		go func(node *Node, states []State) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-stepCtx.Done():
				return
			}
			defer func() { <-sem }()

			n := atomic.AddInt64(&active, 1)
			e.opts.Metrics.SetActiveWorkers(int(n))
			defer func() {
				n := atomic.AddInt64(&active, -1)
				e.opts.Metrics.SetActiveWorkers(int(n))
			}()

			outcomes <- e.runNode(stepCtx, runID, superstep, node, states, emitter)
		}(node, states)
	}

	// Close outcomes once every goroutine has finished, but drain it here
	// rather than after a blocking wg.Wait(): the first fatal outcome must
	// cancel stepCtx while siblings are still running, not after they've
	// all already returned. A goroutine blocked with no per-node timeout
	// (e.g. a HumanInTheLoop node awaiting input) only ever observes
	// cancellation through stepCtx.Done() — so cancel() has to fire the
	// moment a fatal outcome is seen, concurrently with the remaining
	// dispatch, or that signal arrives too late to matter.
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make(map[string]State, len(pending))
	var fatal *ExecError
	for o := range outcomes {
		if o.err != nil {
			if fatal == nil {
				fatal = o.err
				cancel()
			}
			continue
		}
		results[o.nodeID] = o.state
	}

	if fatal != nil {
		e.opts.Metrics.ObserveSuperstepDuration(runID, time.Since(started), "fatal")
		return nil, nil, fatal
	}

	next, finalState, routeErr := e.route(superstep, results)
	if routeErr != nil {
		e.opts.Metrics.ObserveSuperstepDuration(runID, time.Since(started), "fatal")
		return nil, nil, routeErr
	}
	e.opts.Metrics.ObserveSuperstepDuration(runID, time.Since(started), "ok")
	return next, finalState, nil
}

func maxWorkers(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// runNode executes one active node to completion: retry policy, per-node
// timeout, and fallback-on-failure (spec §4.2). Timeouts are never subject
// to fallback.
func (e *Executor) runNode(ctx context.Context, runID string, superstep int, node *Node, states []State, emitter emit.Emitter) taskOutcome {
	emitter.Emit(emit.Event{RunID: runID, Step: superstep, NodeID: node.ID, Msg: "node_start"})

	policy := e.opts.RetryPolicy
	if node.Retry != nil {
		policy = *node.Retry
	}

	timeout := e.opts.PerSupersteptimeout
	var nodeCtx context.Context
	var nodeCancel context.CancelFunc
	if timeout > 0 {
		nodeCtx, nodeCancel = context.WithTimeout(ctx, timeout)
	} else {
		nodeCtx, nodeCancel = context.WithCancel(ctx)
	}
	defer nodeCancel()

	var input State
	if node.Kind != KindAggregator {
		input = states[0].deepCopy()
	}

	fn := func(c context.Context) (State, error) {
		if node.Kind == KindAggregator {
			return node.executeMany(c, states)
		}
		return node.execute(c, input)
	}

	result, attempts, err := executeWithRetry(nodeCtx, policy, fn)
	for i := 1; i < attempts; i++ {
		e.opts.Metrics.IncRetry(runID, node.ID)
	}

	if err != nil && nodeCtx.Err() == context.DeadlineExceeded {
		emitter.Emit(emit.Event{RunID: runID, Step: superstep, NodeID: node.ID, Msg: "node_timeout"})
		e.opts.Metrics.IncTimeout(runID, node.ID)
		return taskOutcome{nodeID: node.ID, err: newExecError(CodeTimeout, node.ID, superstep, fmt.Sprintf("exceeded timeout of %v", timeout), err)}
	}

	if err != nil {
		emitter.Emit(emit.Event{RunID: runID, Step: superstep, NodeID: node.ID, Msg: "node_failed", Meta: map[string]any{"attempts": attempts, "error": err.Error()}})

		if node.FallbackID == "" {
			code := CodeNodeExecutionFailed
			if errors.Is(err, ErrInvalidOutput) {
				if node.Kind == KindAggregator {
					code = CodeInvalidAggregatorOutput
				} else {
					code = CodeInvalidActionOutput
				}
			}
			return taskOutcome{nodeID: node.ID, err: newExecError(code, node.ID, superstep, "action failed after all retries", err)}
		}

		fallback, ok := e.graph.Node(node.FallbackID)
		if !ok {
			return taskOutcome{nodeID: node.ID, err: newExecError(CodeFallbackFailed, node.ID, superstep, "fallback node not found: "+node.FallbackID, err)}
		}

		emitter.Emit(emit.Event{RunID: runID, Step: superstep, NodeID: node.ID, Msg: "fallback_start", Meta: map[string]any{"fallback_id": fallback.ID}})

		var fbCtx context.Context
		var fbCancel context.CancelFunc
		if timeout > 0 {
			fbCtx, fbCancel = context.WithTimeout(ctx, timeout)
		} else {
			fbCtx, fbCancel = context.WithCancel(ctx)
		}
		defer fbCancel()

		fbResult, _, fbErr := executeWithRetry(fbCtx, policy, func(c context.Context) (State, error) {
			if node.Kind == KindAggregator {
				return fallback.executeMany(c, states)
			}
			return fallback.execute(c, input)
		})
		if fbErr != nil {
			e.opts.Metrics.IncFallback(runID, node.ID, "failure")
			return taskOutcome{nodeID: node.ID, err: newExecError(CodeFallbackFailed, fallback.ID, superstep, "fallback action failed after all retries", fbErr)}
		}
		e.opts.Metrics.IncFallback(runID, node.ID, "success")
		emitter.Emit(emit.Event{RunID: runID, Step: superstep, NodeID: node.ID, Msg: "fallback_success"})
		result = fbResult
	}

	emitter.Emit(emit.Event{RunID: runID, Step: superstep, NodeID: node.ID, Msg: "node_success"})
	return taskOutcome{nodeID: node.ID, state: result}
}

// route delivers each active node's result along its outgoing edges into
// the next superstep's pending map, preserving producer-registration order
// per sink (spec §5 "Aggregator input ordering").
func (e *Executor) route(superstep int, results map[string]State) (PendingMap, *State, error) {
	next := make(PendingMap)
	var finalState *State

	// contributions[sink] accumulates (producer order index, state) pairs so
	// we can emit them in producer-registration order regardless of map
	// iteration order above.
	contributions := make(map[string][]contribution)

	for nodeID, result := range results {
		if nodeID == EndID {
			fs := result
			finalState = &fs
		}

		for _, idx := range e.graph.concreteOutgoingIdx(nodeID) {
			edge := e.graph.concreteEdges[idx]
			order := producerOrder(e.graph, edge.SinkID, producerConcrete, idx)
			contributions[edge.SinkID] = append(contributions[edge.SinkID], contribution{order: order, state: result.deepCopy()})
		}

		for _, idx := range e.graph.conditionalOutgoingIdx(nodeID) {
			edge := e.graph.conditionalEdges[idx]
			chosen := edge.Router.fn(result)
			if !edge.contains(chosen) {
				return nil, nil, newExecError(CodeInvalidRoutingOutput, nodeID, superstep, fmt.Sprintf("router returned unknown sink %q", chosen), nil)
			}
			order := producerOrder(e.graph, chosen, producerConditional, idx)
			contributions[chosen] = append(contributions[chosen], contribution{order: order, state: result.deepCopy()})
		}
	}

	for sink, cs := range contributions {
		ordered := make([]State, len(cs))
		// Stable sort by producer-registration order (small N; insertion sort
		// keeps this allocation-free and avoids importing sort for <=
		// a handful of producers per sink in the common case).
		sortContributions(cs)
		for i, c := range cs {
			ordered[i] = c.state
		}
		next[sink] = ordered
	}

	return next, finalState, nil
}

// contribution pairs a producer's registration order with the state it
// delivered, so route can sort each sink's inputs deterministically.
type contribution struct {
	order int
	state State
}

func sortContributions(cs []contribution) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j-1].order > cs[j].order; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}

// producerOrder looks up the position of the (kind, idx) edge in sink's
// precomputed producer list, giving route a stable sort key independent of
// goroutine completion order (spec §5).
func producerOrder(g *Graph, sink string, kind producerKind, idx int) int {
	for order, p := range g.producersBySink[sink] {
		if p.kind == kind && p.idx == idx {
			return order
		}
	}
	return 1 << 30
}
