package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/llm"
)

// LLMArbitrator adjudicates exhausted disagreements through an independent
// model. It sees both graders' results but is instructed to reason on its
// own and is forbidden from echoing either grader verbatim.
type LLMArbitrator struct {
	provider string
	model    string
	client   llm.Client
	retry    llm.RetryPolicy
	logger   *slog.Logger
}

// NewLLMArbitrator builds an arbitrator bound to one model.
func NewLLMArbitrator(provider, model string, client llm.Client, retry llm.RetryPolicy, logger *slog.Logger) *LLMArbitrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMArbitrator{
		provider: provider,
		model:    model,
		client:   client,
		retry:    retry,
		logger:   logger,
	}
}

// ModelName implements Arbitrator.
func (a *LLMArbitrator) ModelName() string { return a.model }

// Arbitrate implements Arbitrator. Backend unavailability and unparseable
// rulings both degrade to the deterministic average; a malformed-but-parsed
// ruling with no items is returned as-is so the engine can synthesize from
// the reason text.
func (a *LLMArbitrator) Arbitrate(ctx context.Context, task domain.QuestionTask, primary, secondary domain.AgentResult) Decision {
	var resp *llm.Response
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = a.client.Complete(ctx, llm.Request{
			Provider:     a.provider,
			Model:        a.model,
			SystemPrompt: task.Instruction,
			UserPrompt:   arbitrationPrompt(task, primary, secondary),
			Temperature:  0.1,
		})
		return callErr
	})
	if err != nil {
		a.logger.WarnContext(ctx, "arbitration backend unavailable, degrading to average",
			"model", a.model, "error", err)
		return FallbackAverage(task, primary, secondary, "arbitration backend unavailable")
	}

	decision, err := parseDecision(resp.Content, task.QuestionID)
	if err != nil {
		a.logger.WarnContext(ctx, "arbitration ruling unparseable, degrading to average",
			"model", a.model, "error", err)
		return FallbackAverage(task, primary, secondary, "arbitration ruling unparseable")
	}

	if decision.CoincidesWith == "" && len(decision.Items) > 0 {
		final := int(math.Round(decision.Items[0].Score))
		decision.CoincidesWith = coincidence(final, primary.Item.Score, secondary.Item.Score)
	}
	return decision
}

// parseDecision extracts an arbitration ruling from model text.
func parseDecision(raw string, questionID string) (Decision, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{Reason: stringValue(obj["reason"])}

	switch stringValue(obj["coincides_with"]) {
	case "primary":
		decision.CoincidesWith = domain.CoincidesPrimary
	case "secondary":
		decision.CoincidesWith = domain.CoincidesSecondary
	case "none":
		decision.CoincidesWith = domain.CoincidesNone
	}

	items := obj
	if rubric, ok := obj["final_rubric"].(map[string]any); ok {
		items = rubric
	}
	if list, ok := items["items"].([]any); ok && len(list) > 0 {
		if entry, ok := list[0].(map[string]any); ok {
			score, hasScore := entry["final_score"]
			if !hasScore {
				score = entry["score"]
			}
			decision.Items = []domain.UnverifiedItem{{
				ItemID:   questionID,
				MaxScore: ParseScore(entry["max_score"]),
				Score:    ParseScore(score),
				Comment:  stringValue(entry["comment"]),
			}}
			return decision, nil
		}
	}

	// A bare final_score with no item list still counts as a ruling.
	if score, ok := obj["final_score"]; ok {
		decision.Items = []domain.UnverifiedItem{{
			ItemID:  questionID,
			Score:   ParseScore(score),
			Comment: decision.Reason,
		}}
	}
	return decision, nil
}

// arbitrationPrompt renders the adjudication request with both graders'
// results attached for reference only.
func arbitrationPrompt(task domain.QuestionTask, primary, secondary domain.AgentResult) string {
	primaryJSON, _ := json.Marshal(primary)
	secondaryJSON, _ := json.Marshal(secondary)

	return fmt.Sprintf(`You are the final arbitration expert for one exam question. Two graders
disagree. Consider their results, but decide the score by reasoning
independently from the question and the student answer. You may cite either
grader's points; you must not copy either grader's comment or adopt a score
without your own justification. If your final score happens to equal one
grader's, say so in "coincides_with".

Respond with JSON only:
{"final_score": <integer>, "reason": "<short justification, never empty>",
 "coincides_with": "primary" | "secondary" | "none",
 "final_rubric": {"items": [{"item_id": %[1]q, "max_score": %[2]d, "final_score": <integer>, "comment": "<basis for the score>"}]}}

QUESTION (worth %[2]d points):
%[3]s

STUDENT ANSWER:
%[4]s

PRIMARY GRADER RESULT (reference only, do not copy):
%[5]s

SECONDARY GRADER RESULT (reference only, do not copy):
%[6]s
`, task.QuestionID, task.ExpectedMaxScore, task.ExamText, task.AnswerText, primaryJSON, secondaryJSON)
}
