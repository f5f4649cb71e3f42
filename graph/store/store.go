// Package store provides CheckpointStore and FileCheckpointer implementations
// for the superstep graph engine (github.com/supersteps/graphrun/graph).
package store

import "errors"

// ErrNotFound describes a missing checkpoint row/file. The stores in this
// package do not return it: a missing checkpoint is reported as ok=false
// with a nil error.
var ErrNotFound = errors.New("store: checkpoint not found")
