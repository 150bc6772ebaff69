package exam

import (
	"context"
	"fmt"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/pkg/activity"
)

// Activities exposes submission reconciliation as a Temporal activity.
// Heartbeats and workflow-context extraction come from the shared base, so
// the same code runs in plain unit tests with no Temporal runtime.
type Activities struct {
	activity.Base
	reconciler *Reconciler
}

// NewActivities binds the reconciler to activity infrastructure.
func NewActivities(base activity.Base, reconciler *Reconciler) *Activities {
	return &Activities{Base: base, reconciler: reconciler}
}

// ReconcileExam grades one submission. Registered with the worker under its
// method name.
func (a *Activities) ReconcileExam(ctx context.Context, sub Submission) (*domain.ExamReport, error) {
	wf := a.GetWorkflowContext(ctx)
	activity.SafeLog(ctx, "reconciling exam submission",
		"submission_id", sub.SubmissionID,
		"workflow_id", wf.WorkflowID)

	a.RecordHeartbeat(ctx, sub.SubmissionID)

	report, err := a.reconciler.Reconcile(ctx, sub)
	if err != nil {
		activity.SafeLogError(ctx, "exam reconciliation failed",
			"submission_id", sub.SubmissionID, "error", err)
		return nil, fmt.Errorf("reconcile submission %s: %w", sub.SubmissionID, err)
	}

	activity.SafeLog(ctx, "exam reconciled",
		"submission_id", sub.SubmissionID,
		"questions", len(report.Outcomes),
		"final_total", report.FinalTotal,
		"needs_prompt_review", report.NeedsPromptReview())
	return report, nil
}
