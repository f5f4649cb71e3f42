package graph

import (
	"time"

	"github.com/supersteps/graphrun/graph/emit"
)

// Options configures Executor construction. NewExecutor starts from the
// defaults documented on each field and then applies each Option; a value
// set through an Option, zero included, replaces the default. A MaxWorkers
// of 0 or less runs one node at a time, a MaxSupersteps of 0 fails before
// the first superstep, and a PerSupersteptimeout of 0 disables the timeout.
// A nil Emitter is replaced by a NullEmitter when a run starts.
type Options struct {
	// MaxWorkers bounds concurrent Node.execute invocations within a
	// superstep. Default: 4 (spec §6).
	MaxWorkers int

	// RetryPolicy is the executor-wide default; a node's own Retry field,
	// when set, overrides it for that node.
	RetryPolicy RetryPolicy

	// CheckpointStore enables the store-driven checkpoint model. Mutually
	// exclusive with CheckpointPath in practice, though nothing prevents
	// wiring both.
	CheckpointStore CheckpointStore

	// CheckpointPath and CheckpointEvery configure the file-driven
	// checkpoint model: a full CheckpointData record is saved to Checkpointer
	// every CheckpointEvery supersteps.
	Checkpointer    FileCheckpointer
	CheckpointPath  string
	CheckpointEvery int

	// Emitter receives observability events for every superstep and node
	// execution. Default: emit.NewNullEmitter().
	Emitter emit.Emitter

	// MaxSupersteps caps the superstep loop. Default: 100 (spec §6).
	MaxSupersteps int

	// PerSupersteptimeout bounds each node's execution within a superstep.
	// Default: 300s (spec §6).
	PerSupersteptimeout time.Duration

	// Metrics, when non-nil, receives Prometheus observations for every
	// superstep and node execution. Default: nil (disabled).
	Metrics *PrometheusMetrics
}

// Option is a functional option for Executor construction, composable with
// the Options struct for the common case (teacher: graph/options.go).
type Option func(*Options)

// WithMaxWorkers overrides the concurrency limit.
func WithMaxWorkers(n int) Option {
	return func(o *Options) { o.MaxWorkers = n }
}

// WithRetryPolicy overrides the executor-wide default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Options) { o.RetryPolicy = p }
}

// WithCheckpointStore enables the store-driven checkpoint model.
func WithCheckpointStore(s CheckpointStore) Option {
	return func(o *Options) { o.CheckpointStore = s }
}

// WithFileCheckpoint enables the file-driven checkpoint model, saving a full
// CheckpointData record to path every every supersteps via c.
func WithFileCheckpoint(c FileCheckpointer, path string, every int) Option {
	return func(o *Options) {
		o.Checkpointer = c
		o.CheckpointPath = path
		o.CheckpointEvery = every
	}
}

// WithEmitter overrides the observability sink.
func WithEmitter(e emit.Emitter) Option {
	return func(o *Options) { o.Emitter = e }
}

// WithMaxSupersteps overrides the superstep budget.
func WithMaxSupersteps(n int) Option {
	return func(o *Options) { o.MaxSupersteps = n }
}

// WithPerSupersteptimeout overrides the per-node, per-superstep timeout.
func WithPerSupersteptimeout(d time.Duration) Option {
	return func(o *Options) { o.PerSupersteptimeout = d }
}

// WithMetrics attaches a Prometheus collector to the Executor.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func defaultOptions() Options {
	return Options{
		MaxWorkers:          4,
		RetryPolicy:         DefaultRetryPolicy(),
		Emitter:             emit.NewNullEmitter(),
		MaxSupersteps:       100,
		PerSupersteptimeout: 300 * time.Second,
	}
}
