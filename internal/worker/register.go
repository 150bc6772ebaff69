// Package worker wires the reconciliation pipeline into a Temporal worker:
// dependency construction in setup.go, registration here.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-concord/internal/exam"
	"github.com/ahrav/go-concord/internal/workflow"
)

// RegisterAll registers the reconciliation workflow and its activities. Call
// once during worker startup before the worker runs; registration is not
// thread-safe.
func RegisterAll(w sdkworker.Worker, acts *exam.Activities) {
	w.RegisterWorkflow(workflow.ReconcileExamWorkflow)
	w.RegisterActivity(acts.ReconcileExam)
}
