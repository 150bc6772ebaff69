package gate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEmbedder returns fixed vectors per text and counts invocations.
type scriptedEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   atomic.Int64
}

func (s *scriptedEmbedder) embed(_ context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func TestCosine(t *testing.T) {
	t.Run("identical vectors score one", func(t *testing.T) {
		v := []float32{0.3, 0.4, 0.5}
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("negative similarity clamps to zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{-1, 0}))
	})

	t.Run("length mismatch scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{1}))
	})

	t.Run("nil vectors score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine(nil, []float32{1}))
	})
}

func TestGateEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("similar rationales pass the threshold", func(t *testing.T) {
		emb := &scriptedEmbedder{vectors: map[string][]float32{
			"good use of loops":      {1, 0.1},
			"loops used effectively": {1, 0.12},
		}}
		g := New(emb.embed, "test-model", nil)

		v := g.Evaluate(ctx, "good use of loops", "loops used effectively", 0.90)
		assert.True(t, v.Passed)
		assert.GreaterOrEqual(t, v.AgreementScore, 0.90)
	})

	t.Run("dissimilar rationales fail the threshold", func(t *testing.T) {
		emb := &scriptedEmbedder{vectors: map[string][]float32{
			"a": {1, 0},
			"b": {0.2, 1},
		}}
		g := New(emb.embed, "test-model", nil)

		v := g.Evaluate(ctx, "a", "b", 0.90)
		assert.False(t, v.Passed)
	})

	t.Run("embedding failure fails closed", func(t *testing.T) {
		emb := &scriptedEmbedder{err: errors.New("backend down")}
		g := New(emb.embed, "test-model", nil)

		v := g.Evaluate(ctx, "a", "b", 0.5)
		assert.Equal(t, 0.0, v.AgreementScore)
		assert.False(t, v.Passed)
	})

	t.Run("empty comment fails closed without calling the backend", func(t *testing.T) {
		emb := &scriptedEmbedder{vectors: map[string][]float32{"a": {1}}}
		g := New(emb.embed, "test-model", nil)

		v := g.Evaluate(ctx, "", "a", 0.5)
		assert.False(t, v.Passed)
		assert.Equal(t, int64(1), emb.calls.Load(), "only the non-empty side should be embedded")
	})

	t.Run("embeddings are memoized per content", func(t *testing.T) {
		emb := &scriptedEmbedder{vectors: map[string][]float32{
			"same": {1, 1},
		}}
		g := New(emb.embed, "test-model", nil)

		first := g.Evaluate(ctx, "same", "same", 0.9)
		require.True(t, first.Passed)
		g.Evaluate(ctx, "same", "same", 0.9)

		assert.Equal(t, int64(1), emb.calls.Load(), "identical text should hit the cache after the first call")
	})
}

func TestEmbedCacheKeying(t *testing.T) {
	c := newEmbedCache()
	c.put("model-a", "text", []float32{1})

	_, ok := c.get("model-b", "text")
	assert.False(t, ok, "cache must not serve vectors across embedding models")

	vec, ok := c.get("model-a", "text")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, vec)
}
