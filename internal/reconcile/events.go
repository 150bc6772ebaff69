package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-concord/pkg/events"
)

const (
	eventSource  = "reconciliation-engine"
	eventVersion = "1.0.0"
)

// eventEmitter writes state-transition envelopes to the audit blackboard.
// Delivery is best-effort: a failing sink never fails the question.
type eventEmitter struct {
	sink         events.EventSink
	submissionID string
}

func newEventEmitter(sink events.EventSink) *eventEmitter {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	return &eventEmitter{sink: sink}
}

// forSubmission returns a copy that stamps envelopes with the submission id.
func (e *eventEmitter) forSubmission(submissionID string) *eventEmitter {
	return &eventEmitter{sink: e.sink, submissionID: submissionID}
}

// emit wraps payload in an envelope and appends it. dedupeParts must identify
// the transition (question id, round, phase) so a retried activity reuses the
// same idempotency key.
func (e *eventEmitter) emit(ctx context.Context, eventType string, payload any, dedupeParts ...string) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	_ = e.sink.Append(ctx, events.Envelope{
		ID:             uuid.New().String(),
		Type:           eventType,
		Source:         eventSource,
		Version:        eventVersion,
		Timestamp:      time.Now().UTC(),
		IdempotencyKey: idempotencyKey(e.submissionID, eventType, dedupeParts),
		SubmissionID:   e.submissionID,
		Payload:        body,
	})
}

// idempotencyKey hashes the transition identity so retries of the same
// transition produce the same key while distinct transitions never collide.
func idempotencyKey(submissionID, eventType string, parts []string) string {
	h := sha256.New()
	h.Write([]byte(submissionID))
	h.Write([]byte{0})
	h.Write([]byte(eventType))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
