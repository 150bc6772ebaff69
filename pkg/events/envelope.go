// Package events provides the audit-blackboard infrastructure for the
// reconciliation pipeline. Every state transition (gate check, round entry,
// round result, arbitration) is wrapped in an Envelope and handed to an
// EventSink; the pipeline never reads events back.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope wraps a pipeline event with metadata for routing, deduplication,
// and correlation. The payload schema varies by Type.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type routes the event, e.g. "reconciliation.gate_check".
	Type string `json:"type"`

	// Source names the emitting component, e.g. "reconciliation-engine".
	Source string `json:"source"`

	// Version enables payload schema evolution. Starts at "1.0.0".
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey lets sinks drop duplicates produced by retried
	// activities. Derived from workflow identity and event content.
	IdempotencyKey string `json:"idempotency_key"`

	// SubmissionID correlates all events of one exam submission.
	SubmissionID string `json:"submission_id"`

	// WorkflowID and RunID identify the orchestrating workflow execution,
	// empty when the pipeline runs as a plain library call.
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`

	// Payload is the event body as JSON.
	Payload json.RawMessage `json:"payload"`
}

// EventSink receives envelopes for downstream persistence or reporting.
// Implementations must treat duplicate idempotency keys as no-ops and should
// return quickly; event delivery is best-effort and must never fail the
// grading pipeline.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards all events. Used in tests and when auditing is
// disabled.
type NoOpEventSink struct{}

// Append implements EventSink.
func (NoOpEventSink) Append(context.Context, Envelope) error { return nil }

// NewNoOpEventSink returns a sink that discards everything.
func NewNoOpEventSink() EventSink { return NoOpEventSink{} }
