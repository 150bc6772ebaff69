package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/llm"
)

// fakeLLM returns canned content or a canned error.
type fakeLLM struct {
	content string
	err     error
	lastReq llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content, Model: req.Model}, nil
}

func testTask() domain.QuestionTask {
	return domain.QuestionTask{
		QuestionID:       "1",
		ExamText:         "Explain binary search. (10 points)",
		AnswerText:       "It halves the interval each step.",
		ExpectedMaxScore: 10,
		Instruction:      "Grade strictly.",
	}
}

func agentResult(role domain.AgentRole, score int, comment string) domain.AgentResult {
	return domain.AgentResult{
		Agent:     role,
		ModelName: "m-" + string(role),
		Item:      domain.RubricItem{ItemID: "1", MaxScore: 10, Score: score, Comment: comment},
	}
}

func TestLLMGraderGrade(t *testing.T) {
	t.Run("parses a well-formed grading", func(t *testing.T) {
		backend := &fakeLLM{content: `{"rubric": {"items": [{"item_id": "1", "max_score": 10, "score": 8, "comment": "solid"}]}}`}
		g := NewLLMGrader(domain.AgentPrimary, llm.ProviderOpenAI, "gpt-4o", backend, llm.RetryPolicy{MaxAttempts: 1}, nil)

		reply := g.Grade(context.Background(), testTask(), "")

		assert.Equal(t, domain.AgentPrimary, reply.Agent)
		assert.Equal(t, float64(8), reply.Item.Score)
		assert.Equal(t, "Grade strictly.", backend.lastReq.SystemPrompt, "instruction travels as system prompt")
	})

	t.Run("provider failure returns zero-score stub", func(t *testing.T) {
		backend := &fakeLLM{err: errors.New("connection refused")}
		g := NewLLMGrader(domain.AgentSecondary, llm.ProviderAnthropic, "claude", backend, llm.RetryPolicy{MaxAttempts: 1}, nil)

		reply := g.Grade(context.Background(), testTask(), "")

		assert.Equal(t, float64(0), reply.Item.Score)
		assert.Equal(t, float64(10), reply.Item.MaxScore)
		assert.Contains(t, reply.Item.Comment, "grading unavailable")
	})

	t.Run("unparseable output returns zero-score stub", func(t *testing.T) {
		backend := &fakeLLM{content: "I refuse to answer in JSON."}
		g := NewLLMGrader(domain.AgentPrimary, llm.ProviderOpenAI, "gpt-4o", backend, llm.RetryPolicy{MaxAttempts: 1}, nil)

		reply := g.Grade(context.Background(), testTask(), "")
		assert.Equal(t, float64(0), reply.Item.Score)
	})

	t.Run("peer notes reach the prompt", func(t *testing.T) {
		backend := &fakeLLM{content: `{"items": [{"score": 7, "max_score": 10, "comment": "ok"}]}`}
		g := NewLLMGrader(domain.AgentPrimary, llm.ProviderOpenAI, "gpt-4o", backend, llm.RetryPolicy{MaxAttempts: 1}, nil)

		g.Grade(context.Background(), testTask(), "peer says the proof is incomplete")
		assert.Contains(t, backend.lastReq.UserPrompt, "peer says the proof is incomplete")
	})
}

func TestLLMArbitratorArbitrate(t *testing.T) {
	task := testTask()
	primary := agentResult(domain.AgentPrimary, 9, "complete and correct")
	secondary := agentResult(domain.AgentSecondary, 4, "misses the complexity bound")

	t.Run("parses an independent ruling", func(t *testing.T) {
		backend := &fakeLLM{content: `{"final_score": 7, "reason": "partially correct",
			"coincides_with": "none",
			"final_rubric": {"items": [{"item_id": "1", "max_score": 10, "final_score": 7, "comment": "correct idea, missing bound"}]}}`}
		a := NewLLMArbitrator(llm.ProviderGoogle, "gemini-1.5-pro", backend, llm.RetryPolicy{MaxAttempts: 1}, nil)

		d := a.Arbitrate(context.Background(), task, primary, secondary)

		require.Len(t, d.Items, 1)
		assert.Equal(t, float64(7), d.Items[0].Score)
		assert.Equal(t, domain.CoincidesNone, d.CoincidesWith)
		assert.False(t, d.Degraded)
	})

	t.Run("coincidence is backfilled when omitted", func(t *testing.T) {
		backend := &fakeLLM{content: `{"final_score": 9, "reason": "the answer is complete",
			"final_rubric": {"items": [{"item_id": "1", "max_score": 10, "final_score": 9, "comment": "complete"}]}}`}
		a := NewLLMArbitrator(llm.ProviderGoogle, "gemini-1.5-pro", backend, llm.RetryPolicy{MaxAttempts: 1}, nil)

		d := a.Arbitrate(context.Background(), task, primary, secondary)
		assert.Equal(t, domain.CoincidesPrimary, d.CoincidesWith)
	})

	t.Run("backend failure degrades to deterministic average", func(t *testing.T) {
		backend := &fakeLLM{err: errors.New("quota exceeded")}
		a := NewLLMArbitrator(llm.ProviderGoogle, "gemini-1.5-pro", backend, llm.RetryPolicy{MaxAttempts: 1}, nil)

		first := a.Arbitrate(context.Background(), task, primary, secondary)
		second := a.Arbitrate(context.Background(), task, primary, secondary)

		require.Len(t, first.Items, 1)
		assert.True(t, first.Degraded)
		assert.Equal(t, float64(7), first.Items[0].Score, "round((9+4)/2) = 7")
		assert.Contains(t, first.Items[0].Comment, "degraded")
		assert.Equal(t, first, second, "degraded mode is deterministic for identical inputs")
	})
}

func TestFallbackAverage(t *testing.T) {
	task := testTask()
	d := FallbackAverage(task, agentResult(domain.AgentPrimary, 8, "a"), agentResult(domain.AgentSecondary, 8, "b"), "budget breached")

	require.Len(t, d.Items, 1)
	assert.Equal(t, float64(8), d.Items[0].Score)
	assert.True(t, d.Degraded)
	assert.Equal(t, domain.CoincidesPrimary, d.CoincidesWith)
}
