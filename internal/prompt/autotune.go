package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahrav/go-concord/internal/domain"
)

// Tuner proposes a revised grading instruction from the current text and the
// reconciliation evidence. Implementations live outside this module,
// typically another LLM call.
type Tuner interface {
	ProposeRevision(ctx context.Context, current string, report *domain.ExamReport) (string, error)
}

// Autotune gates tuner invocations on reconciliation quality: a submission
// where every question gated straight through carries no signal that the
// instructions need work, so the tuner is never consulted for it.
type Autotune struct {
	store  *Store
	tuner  Tuner
	logger *slog.Logger
}

// NewAutotune wires the trigger.
func NewAutotune(store *Store, tuner Tuner, logger *slog.Logger) *Autotune {
	if logger == nil {
		logger = slog.Default()
	}
	return &Autotune{store: store, tuner: tuner, logger: logger}
}

// MaybeRevise asks the tuner for a revision when the report warrants one and
// stores it. The bool reports whether a new version was written.
func (a *Autotune) MaybeRevise(ctx context.Context, subject string, report *domain.ExamReport) (Record, bool, error) {
	current, _ := a.store.Get(subject)

	if !report.NeedsPromptReview() {
		a.logger.DebugContext(ctx, "all questions reached direct consensus, skipping prompt review",
			"subject", subject)
		return current, false, nil
	}

	proposed, err := a.tuner.ProposeRevision(ctx, current.Text, report)
	if err != nil {
		return current, false, fmt.Errorf("propose revision for %s: %w", subject, err)
	}

	proposed = strings.TrimSpace(proposed)
	if proposed == "" || proposed == current.Text {
		return current, false, nil
	}

	rec := a.store.CreateOrBump(subject, proposed)
	a.logger.InfoContext(ctx, "grading instruction revised",
		"subject", subject,
		"version", rec.Version,
		"consensus_round_questions", len(report.ConsensusRoundIDs),
		"arbitration_questions", len(report.ArbitrationIDs))
	return rec, true, nil
}
