// Package exam drives the per-question reconciliation engine across one whole
// submission: split the exam and answer documents into question blocks, run
// the intersection of their question ids through the engine under a bounded
// worker pool, and fold the outcomes into an ExamReport.
package exam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-concord/internal/config"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/reconcile"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Submission is one student's exam/answer pair plus the grading instruction.
type Submission struct {
	SubmissionID string `json:"submission_id" validate:"required"`
	ExamText     string `json:"exam_text" validate:"required"`
	AnswerText   string `json:"answer_text" validate:"required"`

	// Instruction is the grading instruction handed to every agent as the
	// system prompt, consumed as an opaque string.
	Instruction string `json:"instruction"`
}

// Validate checks the submission contract.
func (s Submission) Validate() error { return validate.Struct(s) }

// Reconciler runs the reconciliation pipeline for whole submissions. Safe for
// concurrent use across submissions.
type Reconciler struct {
	engine *reconcile.Engine
	cfg    config.Pipeline
	screen SecurityScreen
	logger *slog.Logger
}

// Option configures optional Reconciler collaborators.
type Option func(*Reconciler)

// WithSecurityScreen enables the pre-grading security check.
func WithSecurityScreen(s SecurityScreen) Option {
	return func(r *Reconciler) { r.screen = s }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// NewReconciler builds a submission-level reconciler around one engine.
func NewReconciler(engine *reconcile.Engine, cfg config.Pipeline, opts ...Option) *Reconciler {
	r := &Reconciler{engine: engine, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile grades one submission end to end. Question pipelines run
// concurrently, bounded by the configured worker pool; each question fails or
// succeeds independently and the report always covers every question in the
// exam/answer id intersection.
func (r *Reconciler) Reconcile(ctx context.Context, sub Submission) (*domain.ExamReport, error) {
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}

	if r.screen != nil {
		verdict, err := r.screen.Screen(ctx, sub.ExamText, sub.AnswerText)
		switch {
		case err != nil:
			r.logger.WarnContext(ctx, "security screen unavailable, proceeding unscreened",
				"submission_id", sub.SubmissionID, "error", err)
		case verdict.Attack:
			return nil, fmt.Errorf("%w: %s", ErrSubmissionBlocked, verdict.Reason)
		}
	}

	examBlocks := blocksByID(SplitQuestions(sub.ExamText))
	answerBlocks := blocksByID(SplitQuestions(sub.AnswerText))

	ids := make([]string, 0, len(examBlocks))
	for id := range examBlocks {
		if _, ok := answerBlocks[id]; ok {
			ids = append(ids, id)
		}
	}
	domain.SortQuestionIDs(ids)

	if len(ids) == 0 {
		r.logger.WarnContext(ctx, "no overlapping questions between exam and answers",
			"submission_id", sub.SubmissionID,
			"exam_questions", len(examBlocks),
			"answer_questions", len(answerBlocks))
		return &domain.ExamReport{}, nil
	}

	engine := r.engine.ForSubmission(sub.SubmissionID)
	results := make([]reconcile.Result, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.WorkerPoolSize)
	for i, id := range ids {
		g.Go(func() error {
			task := r.taskFor(sub, examBlocks[id], answerBlocks[id])
			res, err := engine.Reconcile(gctx, task)
			if err != nil {
				// A misconfigured question never takes down the submission:
				// it scores zero and the rest of the pool keeps going.
				r.logger.ErrorContext(gctx, "question reconciliation failed",
					"submission_id", sub.SubmissionID, "question", id, "error", err)
				res = failedResult(task, err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return buildReport(results), nil
}

// taskFor assembles the per-question task. The exam block's stated point
// value wins; the answer block is the backup, then the configured fallback.
func (r *Reconciler) taskFor(sub Submission, exam, answer QuestionBlock) domain.QuestionTask {
	points := exam.Points
	if points <= 0 {
		points = answer.Points
	}
	if points <= 0 {
		points = r.cfg.FallbackMaxScore
	}
	return domain.QuestionTask{
		QuestionID:       exam.ID,
		ExamText:         exam.Text,
		AnswerText:       answer.Text,
		ExpectedMaxScore: points,
		Instruction:      sub.Instruction,
	}
}

// failedResult is the zero-score terminal outcome for a question whose
// pipeline could not run at all. It lands in the arbitration partition so the
// prompt-review trigger still fires.
func failedResult(task domain.QuestionTask, err error) reconcile.Result {
	maxScore := task.ExpectedMaxScore
	if maxScore < 0 {
		maxScore = 0
	}
	return reconcile.Result{
		Outcome: domain.ReconciliationOutcome{
			QuestionID: task.QuestionID,
			FinalScore: 0,
			MaxScore:   maxScore,
			Kind:       domain.Arbitration,
			Comment:    domain.DecorateComment("reconciliation failed: "+err.Error(), domain.Arbitration),
		},
		Arbitrated: true,
	}
}

// buildReport folds per-question results, already in question-id order, into
// the submission report.
func buildReport(results []reconcile.Result) *domain.ExamReport {
	report := &domain.ExamReport{
		Outcomes: make([]domain.ReconciliationOutcome, 0, len(results)),
	}

	for _, res := range results {
		report.Outcomes = append(report.Outcomes, res.Outcome)
		report.FinalTotal += res.Outcome.FinalScore
		report.PrimaryTotal += res.Primary.Item.Score
		report.SecondaryTotal += res.Secondary.Item.Score

		id := res.Outcome.QuestionID
		switch res.Outcome.Kind {
		case domain.DirectConsensus:
			report.DirectConsensusIDs = append(report.DirectConsensusIDs, id)
		case domain.RoundConsensus:
			report.ConsensusRoundIDs = append(report.ConsensusRoundIDs, id)
		case domain.Arbitration:
			report.ArbitrationIDs = append(report.ArbitrationIDs, id)
		}
	}
	return report
}
