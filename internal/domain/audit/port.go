package audit

import "context"

// Sink receives audit events. Sink failures must never fail the operation
// that produced the event; callers log and move on.
type Sink interface {
	Emit(ctx context.Context, e *Event) error
}

// NopSink drops every event. Used when no broker is configured.
type NopSink struct{}

func (NopSink) Emit(context.Context, *Event) error { return nil }
