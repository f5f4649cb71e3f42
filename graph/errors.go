// Package graph provides the core superstep graph execution engine.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no node-specific context.
var (
	// ErrMaxSupersteps is returned when the executor reaches the configured
	// superstep budget without draining the pending map.
	ErrMaxSupersteps = errors.New("graph: max supersteps reached")

	// ErrNoCheckpoint describes the absence of a checkpoint to resume from.
	// The CheckpointStore implementations in this module do not return it:
	// LoadCheckpoint reports a missing checkpoint as ok=false with a nil
	// error.
	ErrNoCheckpoint = errors.New("graph: no checkpoint available")
)

// BuildErrorCode identifies the distinct GraphBuilder failure kinds of spec §7.
type BuildErrorCode string

const (
	CodeDuplicateNode      BuildErrorCode = "DUPLICATE_NODE"
	CodeNodeNotFound       BuildErrorCode = "NODE_NOT_FOUND"
	CodeEdgeExists         BuildErrorCode = "EDGE_EXISTS"
	CodeGraphConfiguration BuildErrorCode = "GRAPH_CONFIGURATION"
	CodeActionNotDecorated BuildErrorCode = "ACTION_NOT_DECORATED"
	CodeRouterNotDecorated BuildErrorCode = "ROUTER_NOT_DECORATED"
	CodeEmptyToolDesc      BuildErrorCode = "EMPTY_TOOL_DESCRIPTION"
)

// BuildError reports a GraphBuilder validation failure. Every distinct kind
// in spec §7's Builder table surfaces as a BuildError with its Code set.
type BuildError struct {
	Code   BuildErrorCode
	NodeID string
	Detail string
}

func (e *BuildError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("graph build: %s: node %q: %s", e.Code, e.NodeID, e.Detail)
	}
	return fmt.Sprintf("graph build: %s: %s", e.Code, e.Detail)
}

func newBuildError(code BuildErrorCode, nodeID, detail string) *BuildError {
	return &BuildError{Code: code, NodeID: nodeID, Detail: detail}
}

// ExecErrorCode identifies the distinct runtime failure kinds of spec §7.
type ExecErrorCode string

const (
	CodeInvalidActionOutput     ExecErrorCode = "INVALID_ACTION_OUTPUT"
	CodeInvalidAggregatorOutput ExecErrorCode = "INVALID_AGGREGATOR_OUTPUT"
	CodeInvalidRoutingOutput    ExecErrorCode = "INVALID_ROUTING_OUTPUT"
	CodeTimeout                 ExecErrorCode = "TIMEOUT"
	CodeNodeExecutionFailed     ExecErrorCode = "NODE_EXECUTION_FAILED"
	CodeFallbackFailed          ExecErrorCode = "FALLBACK_FAILED"
	CodeMaxSupersteps           ExecErrorCode = "MAX_SUPERSTEPS"
)

// ExecError reports a fatal condition raised during a superstep. It
// identifies the offending node id (empty for MaxSupersteps, which no
// single node causes) and, where applicable, wraps the
// underlying cause so callers can errors.Unwrap through to it.
type ExecError struct {
	Code      ExecErrorCode
	NodeID    string
	Superstep int
	Detail    string
	Cause     error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("graph exec: %s: node %q (superstep %d): %s", e.Code, e.NodeID, e.Superstep, e.Detail)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Cause }

func newExecError(code ExecErrorCode, nodeID string, superstep int, detail string, cause error) *ExecError {
	return &ExecError{Code: code, NodeID: nodeID, Superstep: superstep, Detail: detail, Cause: cause}
}
