package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/llm"
)

// LLMGrader grades questions through a chat-completion backend. Each instance
// is bound to one role and one model; the two required per question are
// separate instances with independent retry policies.
type LLMGrader struct {
	role     domain.AgentRole
	provider string
	model    string
	client   llm.Client
	retry    llm.RetryPolicy
	logger   *slog.Logger
}

// NewLLMGrader builds a grader for the given role. Model selection is
// explicit per instance; there is no process-wide model state.
func NewLLMGrader(role domain.AgentRole, provider, model string, client llm.Client, retry llm.RetryPolicy, logger *slog.Logger) *LLMGrader {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMGrader{
		role:     role,
		provider: provider,
		model:    model,
		client:   client,
		retry:    retry,
		logger:   logger,
	}
}

// Role implements Grader.
func (g *LLMGrader) Role() domain.AgentRole { return g.role }

// ModelName implements Grader.
func (g *LLMGrader) ModelName() string { return g.model }

// Grade implements Grader. Provider failures and unparseable output both
// collapse to a zero-score stub describing the unavailability; the sibling
// grader and the rest of the pipeline proceed regardless.
func (g *LLMGrader) Grade(ctx context.Context, task domain.QuestionTask, peerNotes string) GradeReply {
	reply := GradeReply{Agent: g.role, ModelName: g.model}

	var resp *llm.Response
	err := g.retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = g.client.Complete(ctx, llm.Request{
			Provider:     g.provider,
			Model:        g.model,
			SystemPrompt: task.Instruction,
			UserPrompt:   gradingPrompt(task, peerNotes),
			Temperature:  0.2,
		})
		return callErr
	})
	if err != nil {
		unavailable := &domain.AgentUnavailableError{Agent: g.role, Model: g.model, Cause: err}
		g.logger.WarnContext(ctx, "grader unavailable, returning zero-score stub",
			"agent", string(g.role), "model", g.model, "error", err)
		reply.Item = stubItem(task, unavailable.Error())
		return reply
	}

	item, err := ParseRubricItem(resp.Content, task.QuestionID)
	if err != nil {
		malformed := &domain.MalformedResultError{Agent: g.role, Reason: err.Error()}
		g.logger.WarnContext(ctx, "grader output malformed, returning zero-score stub",
			"agent", string(g.role), "model", g.model, "error", err)
		reply.Item = stubItem(task, malformed.Error())
		return reply
	}

	reply.Item = item
	return reply
}

// stubItem is the fail-soft zero-score rubric item.
func stubItem(task domain.QuestionTask, reason string) domain.UnverifiedItem {
	return domain.UnverifiedItem{
		ItemID:   task.QuestionID,
		MaxScore: float64(task.ExpectedMaxScore),
		Score:    0,
		Comment:  "grading unavailable: " + reason,
	}
}

// gradingPrompt renders the per-question grading request. The instruction
// travels as the system prompt; this is the user turn.
func gradingPrompt(task domain.QuestionTask, peerNotes string) string {
	prompt := fmt.Sprintf(`Grade only question %[1]s against its answer. Do not consider any other question.
The question is worth %[2]d points; set max_score to %[2]d.

Respond with JSON only, no surrounding text:
{"rubric": {"items": [{"item_id": %[1]q, "max_score": %[2]d, "score": <integer>, "comment": "<short justification>"}]}}

QUESTION:
%[3]s

STUDENT ANSWER:
%[4]s
`, task.QuestionID, task.ExpectedMaxScore, task.ExamText, task.AnswerText)

	if peerNotes != "" {
		prompt += fmt.Sprintf(`
PEER REVIEW NOTES:
%s
Your comment and your peer's differ as described above. Re-grade with the peer's
reasoning in mind: align your comment's meaning where you agree (rephrasing is
fine), and if you still disagree, state your evidence and mark the comment with
[divergent]; mark it with [aligned] if you now agree.
`, peerNotes)
	}

	return prompt
}
