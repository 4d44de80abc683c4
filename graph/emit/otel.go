package emit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns engine events into OpenTelemetry spans.
//
// Each run becomes a root span named "run" opened on run_start and closed
// by the run's terminal event. Each node execution becomes a child span
// from node_start to node_end. Other events (route, tool_call, memory_hit)
// are recorded as span events on the innermost open span.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	emitter := emit.NewOTelEmitter(tp.Tracer("stategraph"))
type OTelEmitter struct {
	tracer trace.Tracer

	mu    sync.Mutex
	runs  map[string]runSpans
	clock func() time.Time
}

type runSpans struct {
	ctx  context.Context
	root trace.Span
	node trace.Span
}

// NewOTelEmitter creates an emitter recording spans with tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{
		tracer: tracer,
		runs:   make(map[string]runSpans),
		clock:  time.Now,
	}
}

// Emit records event.
func (o *OTelEmitter) Emit(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rs, ok := o.runs[event.RunID]
	if !ok {
		ctx, root := o.tracer.Start(context.Background(), "run",
			trace.WithTimestamp(o.clock()),
			trace.WithAttributes(attribute.String("stategraph.run_id", event.RunID)))
		rs = runSpans{ctx: ctx, root: root}
	}

	switch event.Msg {
	case MsgRunStart:
		rs.root.SetAttributes(attribute.String("stategraph.entry", event.NodeID))
	case MsgNodeStart:
		_, rs.node = o.tracer.Start(rs.ctx, event.NodeID,
			trace.WithTimestamp(o.clock()),
			trace.WithAttributes(
				attribute.String("stategraph.node_id", event.NodeID),
				attribute.Int("stategraph.step", event.Step),
			))
	case MsgNodeEnd:
		if rs.node != nil {
			setMeta(rs.node, event.Meta)
			rs.node.End(trace.WithTimestamp(o.clock()))
			rs.node = nil
		}
	default:
		target := rs.root
		if rs.node != nil {
			target = rs.node
		}
		target.AddEvent(event.Msg, trace.WithAttributes(metaAttributes(event)...))
	}

	if event.IsTerminal() {
		if rs.node != nil {
			rs.node.End()
		}
		setMeta(rs.root, event.Meta)
		rs.root.SetAttributes(attribute.Int("stategraph.steps", event.Step))
		if msg, ok := event.Meta["error"].(string); ok {
			rs.root.SetStatus(codes.Error, msg)
			rs.root.RecordError(errors.New(msg))
		} else if event.Msg == MsgRunComplete {
			rs.root.SetStatus(codes.Ok, "")
		}
		rs.root.End(trace.WithTimestamp(o.clock()))
		delete(o.runs, event.RunID)
		return
	}
	o.runs[event.RunID] = rs
}

func metaAttributes(event Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int("stategraph.step", event.Step)}
	if event.NodeID != "" {
		attrs = append(attrs, attribute.String("stategraph.node_id", event.NodeID))
	}
	for key, value := range event.Meta {
		attrs = append(attrs, toAttribute("stategraph."+key, value))
	}
	return attrs
}

func setMeta(span trace.Span, meta map[string]interface{}) {
	for key, value := range meta {
		span.SetAttributes(toAttribute("stategraph."+key, value))
	}
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case time.Duration:
		return attribute.Int64(key, v.Milliseconds())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
