package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by domain validation and normalization.
var (
	// ErrInvalidRubricItem indicates a rubric item violating 0 <= score <= max.
	ErrInvalidRubricItem = errors.New("invalid rubric item")

	// ErrInvalidMaxScore indicates a question task with a non-positive expected
	// max score. Fatal for that single question only; exam-level aggregation
	// must continue with the remaining questions.
	ErrInvalidMaxScore = errors.New("expected max score must be positive")

	// ErrEmbeddingUnavailable indicates the embedding backend returned nothing
	// usable. The similarity gate recovers by failing closed (similarity 0).
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)

// AgentUnavailableError reports that a grader or arbitrator backend was
// unreachable or kept returning unusable output after retries. It is always
// recovered locally (zero-score stub or averaging fallback) and never
// propagated as a fatal pipeline error.
type AgentUnavailableError struct {
	Agent AgentRole
	Model string
	Cause error
}

func (e *AgentUnavailableError) Error() string {
	return fmt.Sprintf("agent %q (%s) unavailable: %v", e.Agent, e.Model, e.Cause)
}

func (e *AgentUnavailableError) Unwrap() error { return e.Cause }

// MalformedResultError reports agent output that could not be coerced into a
// valid rubric item: missing items, wrong id, non-numeric score. Recovered by
// ScoreGuard and engine synthesis rules; logged at warning level only.
type MalformedResultError struct {
	Agent  AgentRole
	Reason string
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("malformed result from agent %q: %s", e.Agent, e.Reason)
}
