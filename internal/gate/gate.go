// Package gate implements the similarity gate: the semantic-agreement check
// between two graders' rationale text. Agreement is embedding cosine
// similarity against a configured threshold. Score-gap closeness is checked
// separately by the engine; two agents can coincidentally land on the same
// score for different reasons, so rationale similarity is the primary signal.
package gate

import (
	"context"
	"log/slog"
	"math"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ahrav/go-concord/internal/domain"
)

// Verdict is the gate's output for one round. Recomputed every round; never
// persisted independently of the round that produced it.
type Verdict struct {
	// AgreementScore is the cosine similarity clamped to [0,1].
	AgreementScore float64 `json:"agreement_score"`

	// Passed reports AgreementScore >= threshold.
	Passed bool `json:"passed"`

	// Reason describes how the score was obtained, for the audit trail.
	Reason string `json:"reason"`
}

// Gate computes semantic agreement between grader rationales. Safe for
// concurrent use; embeddings are memoized per (model, content) pair.
type Gate struct {
	embed   chromem.EmbeddingFunc
	modelID string
	cache   *embedCache
	logger  *slog.Logger
}

// New creates a gate around an embedding function. modelID keys the memo
// cache so switching embedding backends never reuses stale vectors.
func New(embed chromem.EmbeddingFunc, modelID string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		embed:   embed,
		modelID: modelID,
		cache:   newEmbedCache(),
		logger:  logger,
	}
}

// Evaluate embeds both rationale blobs and compares them against the
// threshold. Empty text, embedding failures, and zero-length vectors all
// yield similarity 0.0: the gate fails closed, favoring extra consensus
// rounds over false agreement.
func (g *Gate) Evaluate(ctx context.Context, primaryComment, secondaryComment string, threshold float64) Verdict {
	va := g.embedding(ctx, primaryComment)
	vb := g.embedding(ctx, secondaryComment)

	sim := Cosine(va, vb)
	return Verdict{
		AgreementScore: sim,
		Passed:         sim >= threshold,
		Reason:         "embedding(" + g.modelID + ") cosine",
	}
}

// embedding returns the memoized vector for text, or nil on any failure.
func (g *Gate) embedding(ctx context.Context, text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if vec, ok := g.cache.get(g.modelID, text); ok {
		return vec
	}

	vec, err := g.embed(ctx, text)
	if err == nil && len(vec) == 0 {
		err = domain.ErrEmbeddingUnavailable
	}
	if err != nil {
		g.logger.WarnContext(ctx, "embedding failed, gate will fail closed",
			"model", g.modelID, "error", err)
		return nil
	}

	g.cache.put(g.modelID, text, vec)
	return vec
}

// Cosine computes cosine similarity clamped to [0,1]. Nil, empty, or
// mismatched-length vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	v := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
