// Package activity provides shared infrastructure for Temporal activity
// implementations: workflow context extraction, panic-safe logging, and
// best-effort event emission. Activities built on it work unchanged in plain
// unit tests, where no Temporal context exists.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-concord/pkg/events"
)

// WorkflowContext carries the workflow execution identity an activity runs
// under, with generated fallbacks for non-Temporal test contexts.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
}

// Base bundles the event sink and context helpers every reconciliation
// activity needs. The zero value is usable in tests: events are dropped and
// logging is silent.
type Base struct {
	eventSink events.EventSink
}

// NewBase creates activity infrastructure around the given sink. A nil sink
// disables event emission.
func NewBase(sink events.EventSink) Base { return Base{eventSink: sink} }

// GetWorkflowContext extracts workflow identity from the activity context.
// Outside a Temporal activity (plain tests), activity.GetInfo panics; the
// recover path substitutes stable test identifiers instead.
func (b Base) GetWorkflowContext(ctx context.Context) WorkflowContext {
	var wf WorkflowContext

	func() {
		defer func() {
			if recover() != nil {
				wf.WorkflowID = "test-workflow"
				wf.RunID = "test-run-" + uuid.NewString()[:8]
				wf.ActivityID = "test-activity"
			}
		}()

		info := activity.GetInfo(ctx)
		wf.WorkflowID = info.WorkflowExecution.ID
		wf.RunID = info.WorkflowExecution.RunID
		wf.ActivityID = info.ActivityID
	}()

	return wf
}

// EmitEventSafe appends an envelope to the sink with a short bounded retry.
// Events matter for auditability but never for correctness, so failures are
// logged and swallowed.
func (b Base) EmitEventSafe(ctx context.Context, envelope events.Envelope, description string) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, "event emission cancelled", "event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}
		return
	}

	SafeLogError(ctx, "failed to emit "+description,
		"event_type", envelope.Type, "error", lastErr)
}

// RecordHeartbeat records activity progress; ignored outside Temporal.
func (b Base) RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}

// SafeLog logs through the Temporal activity logger when one exists and is a
// no-op in plain test contexts.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError is SafeLog at ERROR level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}
