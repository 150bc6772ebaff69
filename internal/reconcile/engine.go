// Package reconcile implements the per-question reconciliation engine: the
// state machine that runs two independent graders through a similarity gate,
// a bounded consensus-retry loop, and an arbitration fallback, and emits
// exactly one terminal outcome per question.
//
// State flow:
//
//	Start → Graded → GateChecked → {DirectConsensus | ConsensusRound(n) | Arbitration} → Done
//
// The engine owns all transition and termination logic. It never retries
// agent calls (agents own their retry policies) and shares no mutable state
// between concurrent question pipelines.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-concord/internal/agents"
	"github.com/ahrav/go-concord/internal/config"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/gate"
	"github.com/ahrav/go-concord/pkg/events"
)

// Result is one question's terminal outcome plus the trace the exam layer
// needs for partitioning and per-agent totals.
type Result struct {
	Outcome domain.ReconciliationOutcome

	// EnteredRounds is true when the initial gate check failed, regardless
	// of where the pipeline terminated.
	EnteredRounds bool

	// Arbitrated is true when the outcome came from the arbitrator or its
	// degraded averaging mode.
	Arbitrated bool

	// Primary and Secondary are each grader's last normalized results.
	Primary   domain.AgentResult
	Secondary domain.AgentResult
}

// Engine reconciles one question at a time. Safe for concurrent use: all
// per-question state lives on the stack of Reconcile.
type Engine struct {
	cfg        config.Pipeline
	primary    agents.Grader
	secondary  agents.Grader
	arbitrator agents.Arbitrator
	gate       *gate.Gate
	emitter    *eventEmitter
	logger     *slog.Logger
}

// New wires an engine from its collaborators. sink may be nil to disable the
// audit blackboard.
func New(
	cfg config.Pipeline,
	primary, secondary agents.Grader,
	arbitrator agents.Arbitrator,
	g *gate.Gate,
	sink events.EventSink,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:        cfg,
		primary:    primary,
		secondary:  secondary,
		arbitrator: arbitrator,
		gate:       g,
		emitter:    newEventEmitter(sink),
		logger:     logger,
	}
}

// ForSubmission returns a shallow copy whose blackboard events carry the
// given submission id. The copy shares the embedding cache and agents.
func (e *Engine) ForSubmission(submissionID string) *Engine {
	clone := *e
	clone.emitter = e.emitter.forSubmission(submissionID)
	return &clone
}

// Reconcile runs the full state machine for one question. The returned error
// is non-nil only for configuration errors (invalid task); every agent or
// embedding failure is absorbed into the outcome per the degradation rules.
func (e *Engine) Reconcile(ctx context.Context, task domain.QuestionTask) (Result, error) {
	if err := task.Validate(); err != nil {
		return Result{}, err
	}

	if e.cfg.QuestionBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QuestionBudget)
		defer cancel()
	}

	// Start → Graded: both graders in parallel, no ordering dependency.
	primary, secondary := e.gradeBoth(ctx, task, "")

	// Graded → GateChecked.
	verdict, gapRatio, passed := e.checkGate(ctx, task, primary, secondary, 0)

	if passed {
		return e.consensusResult(task, primary, secondary, domain.DirectConsensus, false), nil
	}

	// GateChecked → ConsensusRound(n): bounded peer-aware re-grading.
	entered := false
	for round := 1; round <= e.cfg.MaxConsensusRounds; round++ {
		if ctx.Err() != nil {
			return e.degradedResult(ctx, task, primary, secondary, entered), nil
		}

		entered = true
		e.emitter.emit(ctx, domain.EventRoundEnter, domain.RoundEnterEvent{
			QuestionID: task.QuestionID,
			Round:      round,
			Reason:     gateFailureReason(verdict, gapRatio, e.cfg),
		}, task.QuestionID, fmt.Sprint(round))

		notes := peerNotes(primary, secondary)
		primary, secondary = e.gradeBoth(ctx, task, notes)

		verdict, gapRatio, passed = e.checkGate(ctx, task, primary, secondary, round)
		e.emitter.emit(ctx, domain.EventRoundResult, domain.RoundResultEvent{
			QuestionID:     task.QuestionID,
			Round:          round,
			PrimaryScore:   primary.Item.Score,
			SecondaryScore: secondary.Item.Score,
			Similarity:     verdict.AgreementScore,
			GapRatio:       gapRatio,
			Passed:         passed,
		}, task.QuestionID, fmt.Sprint(round), "result")

		if passed {
			return e.consensusResult(task, primary, secondary, domain.RoundConsensus, entered), nil
		}
	}

	// Consensus budget exhausted → Arbitration.
	if ctx.Err() != nil {
		return e.degradedResult(ctx, task, primary, secondary, entered), nil
	}
	decision := e.arbitrator.Arbitrate(ctx, task, primary, secondary)
	return e.arbitrationResult(ctx, task, primary, secondary, decision, entered), nil
}

// gradeBoth invokes both graders concurrently and normalizes their replies.
// Graders are fail-soft, so the only synchronization concern is the barrier:
// the engine does not proceed until both calls complete.
func (e *Engine) gradeBoth(ctx context.Context, task domain.QuestionTask, notes string) (domain.AgentResult, domain.AgentResult) {
	var primaryReply, secondaryReply agents.GradeReply

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		primaryReply = e.primary.Grade(gctx, task, notes)
		return nil
	})
	g.Go(func() error {
		secondaryReply = e.secondary.Grade(gctx, task, notes)
		return nil
	})
	_ = g.Wait() // graders never return errors

	return normalize(primaryReply, task), normalize(secondaryReply, task)
}

// checkGate evaluates the conjunctive consensus condition and emits the
// gate-check event. Similarity and score gap are independent conditions:
// both must hold, preventing false consensus on superficially similar but
// substantively different gradings.
func (e *Engine) checkGate(
	ctx context.Context,
	task domain.QuestionTask,
	primary, secondary domain.AgentResult,
	round int,
) (gate.Verdict, float64, bool) {
	verdict := e.gate.Evaluate(ctx, primary.Item.Comment, secondary.Item.Comment, e.cfg.SimilarityThreshold)
	gapAbs, gapRatio := domain.Gap(primary.Item.Score, secondary.Item.Score, task.ExpectedMaxScore)
	passed := verdict.Passed && gapRatio < e.cfg.GapRatioThreshold

	e.emitter.emit(ctx, domain.EventGateCheck, domain.GateCheckEvent{
		QuestionID:     task.QuestionID,
		PrimaryScore:   primary.Item.Score,
		SecondaryScore: secondary.Item.Score,
		MaxScore:       task.ExpectedMaxScore,
		Similarity:     verdict.AgreementScore,
		GapAbsolute:    gapAbs,
		GapRatio:       gapRatio,
		Passed:         passed,
	}, task.QuestionID, fmt.Sprint(round), "gate")

	e.logger.DebugContext(ctx, "gate checked",
		"question", task.QuestionID,
		"round", round,
		"similarity", verdict.AgreementScore,
		"gap_ratio", gapRatio,
		"passed", passed)

	return verdict, gapRatio, passed
}

// consensusResult builds the averaged terminal outcome for a passed gate.
func (e *Engine) consensusResult(
	task domain.QuestionTask,
	primary, secondary domain.AgentResult,
	kind domain.OutcomeKind,
	entered bool,
) Result {
	final := domain.AverageScore(primary.Item.Score, secondary.Item.Score)

	comment := "graders agree in meaning and score; taking the average"
	if kind == domain.RoundConsensus {
		comment = "agreement reached after peer review; taking the average"
	}

	return Result{
		Outcome: domain.ReconciliationOutcome{
			QuestionID: task.QuestionID,
			FinalScore: final,
			MaxScore:   task.ExpectedMaxScore,
			Kind:       kind,
			Comment:    domain.DecorateComment(comment, kind),
		},
		EnteredRounds: entered,
		Primary:       primary,
		Secondary:     secondary,
	}
}

// arbitrationResult converts an arbitrator decision into the terminal
// outcome. A ruling with no items never crashes the question: the engine
// synthesizes a zero-score item from the arbitrator's reason text.
func (e *Engine) arbitrationResult(
	ctx context.Context,
	task domain.QuestionTask,
	primary, secondary domain.AgentResult,
	decision agents.Decision,
	entered bool,
) Result {
	var raw domain.UnverifiedItem
	if len(decision.Items) > 0 {
		raw = decision.Items[0]
	} else {
		e.logger.WarnContext(ctx, "arbitrator returned no items, synthesizing zero-score outcome",
			"question", task.QuestionID)
		raw = domain.UnverifiedItem{
			ItemID:   task.QuestionID,
			MaxScore: float64(task.ExpectedMaxScore),
			Score:    0,
			Comment:  decision.Reason,
		}
	}
	item := domain.NormalizeItem(raw, task.ExpectedMaxScore)

	e.emitter.emit(ctx, domain.EventArbitration, domain.ArbitrationEvent{
		QuestionID:    task.QuestionID,
		FinalScore:    item.Score,
		CoincidesWith: decision.CoincidesWith,
		Degraded:      decision.Degraded,
	}, task.QuestionID, "arbitration")

	return Result{
		Outcome: domain.ReconciliationOutcome{
			QuestionID: task.QuestionID,
			FinalScore: item.Score,
			MaxScore:   task.ExpectedMaxScore,
			Kind:       domain.Arbitration,
			Comment:    domain.DecorateComment(item.Comment, domain.Arbitration),
		},
		EnteredRounds: entered,
		Arbitrated:    true,
		Primary:       primary,
		Secondary:     secondary,
	}
}

// degradedResult is the budget-breach path: deterministic averaging so the
// question still terminates with a usable score.
func (e *Engine) degradedResult(
	ctx context.Context,
	task domain.QuestionTask,
	primary, secondary domain.AgentResult,
	entered bool,
) Result {
	decision := agents.FallbackAverage(task, primary, secondary, "question budget exceeded")
	return e.arbitrationResult(ctx, task, primary, secondary, decision, entered)
}

// normalize applies ScoreGuard to a raw grader reply.
func normalize(reply agents.GradeReply, task domain.QuestionTask) domain.AgentResult {
	return domain.AgentResult{
		Agent:     reply.Agent,
		ModelName: reply.ModelName,
		Item:      domain.NormalizeItem(reply.Item, task.ExpectedMaxScore),
	}
}

// peerNotes describes the current disagreement for the re-grade prompt.
func peerNotes(primary, secondary domain.AgentResult) string {
	return fmt.Sprintf("- primary grader (score %d): %s\n- secondary grader (score %d): %s",
		primary.Item.Score, domain.StripPeerTags(primary.Item.Comment),
		secondary.Item.Score, domain.StripPeerTags(secondary.Item.Comment))
}

// gateFailureReason names which gate condition failed, for the audit trail.
func gateFailureReason(verdict gate.Verdict, gapRatio float64, cfg config.Pipeline) string {
	if !verdict.Passed {
		return fmt.Sprintf("semantic divergence: similarity %.2f below %.2f", verdict.AgreementScore, cfg.SimilarityThreshold)
	}
	return fmt.Sprintf("score gap: ratio %.2f at or above %.2f", gapRatio, cfg.GapRatioThreshold)
}
