package domain

import "sort"

// OutcomeKind classifies how a question's final score was reached.
type OutcomeKind string

const (
	// DirectConsensus: the initial gradings passed the gate with no rounds.
	DirectConsensus OutcomeKind = "direct_consensus"
	// RoundConsensus: the gate passed after at least one consensus round.
	RoundConsensus OutcomeKind = "round_consensus"
	// Arbitration: the consensus budget was exhausted and an independent
	// arbitrator (or its degraded averaging mode) decided the score.
	Arbitration OutcomeKind = "arbitration"
)

// Coincidence is an observability-only signal reporting whether an
// arbitrator's final score happened to equal one grader's score.
type Coincidence string

const (
	CoincidesPrimary   Coincidence = "primary"
	CoincidesSecondary Coincidence = "secondary"
	CoincidesNone      Coincidence = "none"
)

// ReconciliationOutcome is the terminal artifact of one question's pipeline
// run. Exactly one outcome is emitted per question; immutable once emitted.
type ReconciliationOutcome struct {
	QuestionID string      `json:"question_id" validate:"required"`
	FinalScore int         `json:"final_score" validate:"min=0"`
	MaxScore   int         `json:"max_score" validate:"min=0"`
	Kind       OutcomeKind `json:"outcome_kind" validate:"required,oneof=direct_consensus round_consensus arbitration"`

	// Comment carries the rationale, decorated with the consensus or
	// arbitration marker. Downstream consumers render provenance from the
	// marker, not from Kind.
	Comment string `json:"comment"`
}

// Validate checks the outcome contract.
func (o ReconciliationOutcome) Validate() error { return validate.Struct(o) }

// ExamReport aggregates all reconciliation outcomes of one submission plus
// per-agent totals. Owned exclusively by the exam reconciler; it exists only
// for the duration of one submission's processing before handoff to the
// surrounding application.
type ExamReport struct {
	// Outcomes holds one entry per processed question, sorted by question id.
	Outcomes []ReconciliationOutcome `json:"outcomes"`

	// FinalTotal is the sum of all final scores.
	FinalTotal int `json:"final_total"`

	// PrimaryTotal and SecondaryTotal sum each grader's last normalized
	// per-question scores, for grader drift analysis.
	PrimaryTotal   int `json:"primary_total"`
	SecondaryTotal int `json:"secondary_total"`

	// Disjoint question-id partition by reconciliation path. ConsensusRound
	// lists every question that entered the loop at least once, regardless of
	// where it terminated; Arbitration questions are excluded from it.
	DirectConsensusIDs []string `json:"direct_consensus_ids"`
	ConsensusRoundIDs  []string `json:"consensus_round_ids"`
	ArbitrationIDs     []string `json:"arbitration_ids"`
}

// NeedsPromptReview reports whether any question left the direct-consensus
// path. The external prompt-autotune collaborator uses this as its trigger:
// a submission where every question gated straight through carries no signal
// that the grading instructions need revision.
func (r *ExamReport) NeedsPromptReview() bool {
	return len(r.ConsensusRoundIDs) > 0 || len(r.ArbitrationIDs) > 0
}

// SortQuestionIDs orders ids numerically when they carry a numeric prefix
// ("2" before "10"), falling back to lexical order. Exported for reuse by the
// exam reconciler and report consumers.
func SortQuestionIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, aok := leadingNumber(ids[i])
		b, bok := leadingNumber(ids[j])
		if aok && bok && a != b {
			return a < b
		}
		if aok != bok {
			return aok // numeric ids sort before non-numeric ones
		}
		return ids[i] < ids[j]
	})
}

// leadingNumber extracts the first run of digits in s.
func leadingNumber(s string) (int, bool) {
	n, seen := 0, false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			seen = true
			continue
		}
		if seen {
			break
		}
	}
	return n, seen
}
