// Package workflow orchestrates exam reconciliation through Temporal. The
// workflow is a thin deterministic shell: validation, activity options, one
// activity call. All grading logic lives in the activity so it replays
// safely.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/exam"
)

// ReconcileExamActivityName is the registered name of the grading activity.
const ReconcileExamActivityName = "ReconcileExam"

// ReconcileExamWorkflow grades one submission and returns its report.
// Workflow code uses workflow-safe APIs only.
func ReconcileExamWorkflow(ctx workflow.Context, sub exam.Submission) (*domain.ExamReport, error) {
	// Version gate enables safe evolution of the workflow logic.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "reconcile-exam.v", workflow.DefaultVersion, currentVersion)

	if err := sub.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid submission",
			"Validation",
			err,
		)
	}

	// The activity runs every question of the submission, so its timeout must
	// cover the whole pool, not one question budget.
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				"Validation",
			},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var report domain.ExamReport
	if err := workflow.ExecuteActivity(ctx, ReconcileExamActivityName, sub).Get(ctx, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
