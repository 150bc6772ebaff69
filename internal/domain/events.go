package domain

// Event types emitted by the reconciliation pipeline, one per state
// transition. Consumed by an external persistence/reporting layer (the audit
// blackboard); never read back by the pipeline.
const (
	EventGateCheck   = "reconciliation.gate_check"
	EventRoundEnter  = "reconciliation.round_enter"
	EventRoundResult = "reconciliation.round_result"
	EventArbitration = "reconciliation.arbitration"
)

// GateCheckEvent records a similarity-plus-gap gate evaluation.
type GateCheckEvent struct {
	QuestionID     string  `json:"question_id"`
	PrimaryScore   int     `json:"primary_score"`
	SecondaryScore int     `json:"secondary_score"`
	MaxScore       int     `json:"max_score"`
	Similarity     float64 `json:"similarity"`
	GapAbsolute    int     `json:"gap_absolute"`
	GapRatio       float64 `json:"gap_ratio"`
	Passed         bool    `json:"passed"`
}

// RoundEnterEvent records a question entering a consensus round, with the
// reason the gate rejected the current gradings.
type RoundEnterEvent struct {
	QuestionID string `json:"question_id"`
	Round      int    `json:"round"`
	Reason     string `json:"reason"`
}

// RoundResultEvent records the post-round gate re-evaluation.
type RoundResultEvent struct {
	QuestionID     string  `json:"question_id"`
	Round          int     `json:"round"`
	PrimaryScore   int     `json:"primary_score"`
	SecondaryScore int     `json:"secondary_score"`
	Similarity     float64 `json:"similarity"`
	GapRatio       float64 `json:"gap_ratio"`
	Passed         bool    `json:"passed"`
}

// ArbitrationEvent records escalation to the arbitrator and its decision.
type ArbitrationEvent struct {
	QuestionID    string      `json:"question_id"`
	FinalScore    int         `json:"final_score"`
	CoincidesWith Coincidence `json:"coincides_with"`
	Degraded      bool        `json:"degraded"`
}
