package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each Event into a completed OpenTelemetry span: span
// name is event.Msg, attributes cover RunID/Step/NodeID plus every Meta
// field (with cost/latency keys mapped to graphrun.llm.* / graphrun.node.*
// attribute names), and the span's status is set to error when
// event.Meta["error"] is present. step_id/order_key/attempt Meta keys -
// carried by the superstep scheduler for replay correlation - get their own
// graphrun.step_id/order_key/attempt attributes rather than the generic
// metadata path.
type OTelEmitter struct {
	tracer trace.Tracer
	spans  []trace.Span
}

// NewOTelEmitter returns an OTelEmitter using tracer (from
// otel.Tracer("name")) to create spans.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{
		tracer: tracer,
		spans:  make([]trace.Span, 0),
	}
}

// Emit starts a span for event and ends it immediately: these are point-in-
// time events, not durations spanning a block of code.
func (o *OTelEmitter) Emit(event Event) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	o.addStandardAttributes(span, event)
	o.addMetadataAttributes(span, event.Meta)
	o.addConcurrencyAttributes(span, event.Meta)

	if err, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, err)
		span.RecordError(fmt.Errorf("%s", err))
	}
}

// EmitBatch creates and ends one span per event, in order.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	// Create spans for all events
	// The span processor will batch these for efficient export
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)

		// Add standard attributes
		o.addStandardAttributes(span, event)

		// Add metadata as attributes
		o.addMetadataAttributes(span, event.Meta)

		// Add concurrency attributes (T111)
		o.addConcurrencyAttributes(span, event.Meta)

		// Set error status if present
		if err, ok := event.Meta["error"].(string); ok {
			span.SetStatus(codes.Error, err)
			span.RecordError(fmt.Errorf("%s", err))
		}

		// End span immediately (event is a point in time)
		span.End()
	}

	return nil
}

// Flush calls ForceFlush on the global tracer provider if it supports it
// (the noop provider doesn't), blocking until pending spans are exported or
// ctx is done.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()

	type flusher interface {
		ForceFlush(context.Context) error
	}

	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}

	return nil
}

// addStandardAttributes adds core event fields as span attributes.
func (o *OTelEmitter) addStandardAttributes(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("graphrun.run_id", event.RunID),
		attribute.Int("graphrun.step", event.Step),
		attribute.String("graphrun.node_id", event.NodeID),
	)
}

// addMetadataAttributes converts event.Meta entries to span attributes,
// mapping LLM cost/latency keys to graphrun.llm.*/graphrun.node.* names and
// converting time.Duration values to milliseconds.
func (o *OTelEmitter) addMetadataAttributes(span trace.Span, meta map[string]interface{}) {
	if meta == nil {
		return
	}

	for key, value := range meta {
		if key == "step_id" || key == "order_key" || key == "attempt" {
			continue
		}

		attrKey := key
		switch key {
		case "tokens_in":
			attrKey = "graphrun.llm.tokens_in"
		case "tokens_out":
			attrKey = "graphrun.llm.tokens_out"
		case "cost_usd":
			attrKey = "graphrun.llm.cost_usd"
		case "latency_ms":
			attrKey = "graphrun.node.latency_ms"
		case "model":
			attrKey = "graphrun.llm.model"
		}

		// Convert value to appropriate attribute type
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			// Convert duration to milliseconds
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			// Fallback to string representation
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}

// addConcurrencyAttributes surfaces the step_id/order_key/attempt Meta keys
// a bounded-concurrency superstep sets when retrying or tracking a node, so
// they're queryable as their own span attributes rather than generic
// metadata.
func (o *OTelEmitter) addConcurrencyAttributes(span trace.Span, meta map[string]interface{}) {
	if meta == nil {
		return
	}

	if stepID, ok := meta["step_id"].(string); ok {
		span.SetAttributes(attribute.String("graphrun.step_id", stepID))
	}

	if orderKey, ok := meta["order_key"].(string); ok {
		span.SetAttributes(attribute.String("graphrun.order_key", orderKey))
	}

	if attempt, ok := meta["attempt"].(int); ok {
		span.SetAttributes(attribute.Int("graphrun.attempt", attempt))
	} else if attempt, ok := meta["attempt"].(int64); ok {
		span.SetAttributes(attribute.Int64("graphrun.attempt", attempt))
	}
}
