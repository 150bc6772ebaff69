// Package domain defines the core data model for dual-grader exam
// reconciliation: rubric items, question tasks, agent results, and the
// terminal reconciliation outcomes produced per question. It also owns the
// numeric normalization rules (ScoreGuard) that make final scores auditable
// and stable under repeated runs.
//
// Reconciliation Model:
//   - Two independent graders score each question and justify the score.
//   - A similarity gate plus a score-gap check decides whether the gradings
//     count as consensus.
//   - Disagreements run bounded consensus rounds and finally escalate to an
//     independent arbitrator.
//
// Types in this package are plain values. They carry no I/O and no provider
// details; provenance is limited to agent role and model name.
package domain

import "fmt"

// AgentRole identifies which grader produced a result.
type AgentRole string

// The two grader roles required per question. Roles are fixed; adding a third
// grader is a pipeline topology change, not a new role value.
const (
	AgentPrimary   AgentRole = "primary"
	AgentSecondary AgentRole = "secondary"
)

// RubricItem is the scored unit of output for one question from one agent or
// from the final decision. Immutable once returned by an agent; ScoreGuard may
// produce a rescaled copy before the item enters the pipeline.
type RubricItem struct {
	// ItemID matches the question id the item grades.
	ItemID string `json:"item_id" validate:"required"`

	// MaxScore is the point value of the question. After normalization this
	// always equals the question's expected max score - agents never get to
	// silently change a question's point value.
	MaxScore int `json:"max_score" validate:"min=0"`

	// Score is the awarded points, an integer in [0, MaxScore]. Fractional
	// agent output is never surfaced downstream.
	Score int `json:"score" validate:"min=0"`

	// Comment is the agent's rationale for the score.
	Comment string `json:"comment"`
}

// Validate checks the rubric item invariant 0 <= Score <= MaxScore.
func (r RubricItem) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Score > r.MaxScore {
		return fmt.Errorf("%w: score %d exceeds max %d", ErrInvalidRubricItem, r.Score, r.MaxScore)
	}
	return nil
}

// AgentResult wraps one grader's rubric item with provenance. A new
// AgentResult replaces the previous one on each consensus round; no history is
// retained beyond what peer-note construction needs.
type AgentResult struct {
	Agent     AgentRole  `json:"agent" validate:"required,oneof=primary secondary"`
	ModelName string     `json:"model_name" validate:"required"`
	Item      RubricItem `json:"item"`
}

// Validate checks result provenance and the wrapped item.
func (a AgentResult) Validate() error {
	if err := validate.Struct(a); err != nil {
		return err
	}
	return a.Item.Validate()
}
