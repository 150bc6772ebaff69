// Package agents defines the grading and arbitration ports the
// reconciliation engine depends on, plus LLM-backed implementations. The
// ports are fail-soft by contract: a grader that cannot reach its backend
// returns a zero-score stub, and an arbitrator degrades to the deterministic
// average of the two grader scores. A single agent failure never blocks the
// pipeline.
package agents

import (
	"context"
	"fmt"

	"github.com/ahrav/go-concord/internal/domain"
)

// GradeReply is one grader's raw output for a question, before ScoreGuard
// normalization. The item id is already forced to the question id; scores and
// denominators are whatever the model reported.
type GradeReply struct {
	Agent     domain.AgentRole
	ModelName string
	Item      domain.UnverifiedItem
}

// Grader grades one question. peerNotes, when non-empty, describes the other
// grader's current reasoning and biases the re-grade toward alignment.
// Implementations own their retry/backoff policy and must not fail for
// provider errors; context cancellation is the only reason to give up early,
// and even then a stub reply is returned.
type Grader interface {
	Role() domain.AgentRole
	ModelName() string
	Grade(ctx context.Context, task domain.QuestionTask, peerNotes string) GradeReply
}

// Decision is an arbitrator's ruling for one question.
type Decision struct {
	// Items holds the ruled rubric items, raw. Empty when the backend
	// replied with something unusable; the engine synthesizes a zero-score
	// item from Reason in that case.
	Items []domain.UnverifiedItem

	// Reason is the arbitrator's own justification.
	Reason string

	// CoincidesWith reports whether the final score happens to equal one
	// grader's score. Observability only; never drives control flow.
	CoincidesWith domain.Coincidence

	// Degraded marks the deterministic averaging fallback.
	Degraded bool
}

// Arbitrator independently decides a final score after the consensus budget
// is exhausted. Implementations must reason independently rather than echo a
// grader verbatim, and must degrade to FallbackAverage when the backend is
// unavailable - arbitration never fails the pipeline.
type Arbitrator interface {
	ModelName() string
	Arbitrate(ctx context.Context, task domain.QuestionTask, primary, secondary domain.AgentResult) Decision
}

// FallbackAverage is the dependency-free degraded mode: the rounded
// arithmetic mean of the two grader scores. Deterministic for identical
// inputs, shared by arbitrator implementations and the engine's budget-breach
// path.
func FallbackAverage(task domain.QuestionTask, primary, secondary domain.AgentResult, cause string) Decision {
	avg := domain.AverageScore(primary.Item.Score, secondary.Item.Score)
	return Decision{
		Items: []domain.UnverifiedItem{{
			ItemID:   task.QuestionID,
			MaxScore: float64(task.ExpectedMaxScore),
			Score:    float64(avg),
			Comment:  fmt.Sprintf("degraded: %s; averaged both graders (%d, %d)", cause, primary.Item.Score, secondary.Item.Score),
		}},
		Reason:        "degraded averaging: " + cause,
		CoincidesWith: coincidence(avg, primary.Item.Score, secondary.Item.Score),
		Degraded:      true,
	}
}

// coincidence backfills the observability signal when the arbitrator omits
// it. Primary wins the tie when the final equals both.
func coincidence(final, primaryScore, secondaryScore int) domain.Coincidence {
	switch {
	case final == primaryScore:
		return domain.CoincidesPrimary
	case final == secondaryScore:
		return domain.CoincidesSecondary
	default:
		return domain.CoincidesNone
	}
}
