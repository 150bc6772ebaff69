package events

import (
	"context"
	"log/slog"
)

// SlogSink writes envelopes to a structured logger. It is the reference
// blackboard implementation; production deployments replace it with a
// persistence-backed sink.
type SlogSink struct{ logger *slog.Logger }

// NewSlogSink creates a sink logging at INFO level on the given logger.
// A nil logger falls back to slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Append implements EventSink by emitting one log record per envelope.
func (s *SlogSink) Append(ctx context.Context, e Envelope) error {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "blackboard event",
		slog.String("event_id", e.ID),
		slog.String("type", e.Type),
		slog.String("source", e.Source),
		slog.String("submission_id", e.SubmissionID),
		slog.String("idempotency_key", e.IdempotencyKey),
		slog.String("payload", string(e.Payload)),
	)
	return nil
}
