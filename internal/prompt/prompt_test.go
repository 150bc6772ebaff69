package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/domain"
)

type stubTuner struct {
	proposal string
	err      error
	calls    int
}

func (t *stubTuner) ProposeRevision(_ context.Context, _ string, _ *domain.ExamReport) (string, error) {
	t.calls++
	return t.proposal, t.err
}

func noisyReport() *domain.ExamReport {
	return &domain.ExamReport{ArbitrationIDs: []string{"3"}}
}

func TestStoreCreateOrBump(t *testing.T) {
	s := NewStore()

	first := s.CreateOrBump("algorithms", "Grade strictly.")
	assert.Equal(t, 1, first.Version)

	same := s.CreateOrBump("algorithms", "Grade strictly.")
	assert.Equal(t, 1, same.Version, "identical text never bumps")

	bumped := s.CreateOrBump("algorithms", "Grade strictly and cite the rubric.")
	assert.Equal(t, 2, bumped.Version)

	got, ok := s.Get("algorithms")
	require.True(t, ok)
	assert.Equal(t, bumped, got)

	_, ok = s.Get("history")
	assert.False(t, ok)
}

func TestAutotuneMaybeRevise(t *testing.T) {
	t.Run("quiet report never consults the tuner", func(t *testing.T) {
		tuner := &stubTuner{proposal: "anything"}
		a := NewAutotune(NewStore(), tuner, nil)

		_, revised, err := a.MaybeRevise(context.Background(), "algorithms",
			&domain.ExamReport{DirectConsensusIDs: []string{"1", "2"}})

		require.NoError(t, err)
		assert.False(t, revised)
		assert.Equal(t, 0, tuner.calls)
	})

	t.Run("noisy report stores the proposal", func(t *testing.T) {
		store := NewStore()
		store.CreateOrBump("algorithms", "Grade strictly.")
		a := NewAutotune(store, &stubTuner{proposal: "Grade strictly; quote the answer."}, nil)

		rec, revised, err := a.MaybeRevise(context.Background(), "algorithms", noisyReport())

		require.NoError(t, err)
		assert.True(t, revised)
		assert.Equal(t, 2, rec.Version)
		assert.Equal(t, "Grade strictly; quote the answer.", rec.Text)
	})

	t.Run("unchanged proposal is a no-op", func(t *testing.T) {
		store := NewStore()
		store.CreateOrBump("algorithms", "Grade strictly.")
		a := NewAutotune(store, &stubTuner{proposal: "Grade strictly."}, nil)

		rec, revised, err := a.MaybeRevise(context.Background(), "algorithms", noisyReport())

		require.NoError(t, err)
		assert.False(t, revised)
		assert.Equal(t, 1, rec.Version)
	})

	t.Run("tuner failure surfaces without touching the store", func(t *testing.T) {
		store := NewStore()
		store.CreateOrBump("algorithms", "Grade strictly.")
		a := NewAutotune(store, &stubTuner{err: errors.New("tuner down")}, nil)

		_, revised, err := a.MaybeRevise(context.Background(), "algorithms", noisyReport())

		assert.Error(t, err)
		assert.False(t, revised)
		got, _ := store.Get("algorithms")
		assert.Equal(t, 1, got.Version)
	})

	t.Run("empty proposal is discarded", func(t *testing.T) {
		a := NewAutotune(NewStore(), &stubTuner{proposal: "   "}, nil)
		_, revised, err := a.MaybeRevise(context.Background(), "algorithms", noisyReport())
		require.NoError(t, err)
		assert.False(t, revised)
	})
}
