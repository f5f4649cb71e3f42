package emit

import "context"

// NullEmitter discards every event. It is the Executor's default Emitter
// when WithEmitter is not passed, so observability is opt-in rather than a
// mandatory dependency.
type NullEmitter struct{}

// NewNullEmitter returns a NullEmitter. Safe for concurrent use, zero
// overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

func (n *NullEmitter) Emit(event Event) {
}

func (n *NullEmitter) EmitBatch(ctx context.Context, events []Event) error {
	return nil
}

func (n *NullEmitter) Flush(ctx context.Context) error {
	return nil
}
