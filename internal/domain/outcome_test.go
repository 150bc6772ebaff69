package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortQuestionIDs(t *testing.T) {
	t.Run("numeric ids sort numerically", func(t *testing.T) {
		ids := []string{"10", "2", "1"}
		SortQuestionIDs(ids)
		assert.Equal(t, []string{"1", "2", "10"}, ids)
	})

	t.Run("prefixed ids use their numeric component", func(t *testing.T) {
		ids := []string{"Q12", "Q3", "Q1"}
		SortQuestionIDs(ids)
		assert.Equal(t, []string{"Q1", "Q3", "Q12"}, ids)
	})

	t.Run("non-numeric ids sort after numeric, lexically", func(t *testing.T) {
		ids := []string{"bonus", "2", "appendix", "1"}
		SortQuestionIDs(ids)
		assert.Equal(t, []string{"1", "2", "appendix", "bonus"}, ids)
	})
}

func TestNeedsPromptReview(t *testing.T) {
	t.Run("all direct consensus carries no signal", func(t *testing.T) {
		r := &ExamReport{DirectConsensusIDs: []string{"1", "2"}}
		assert.False(t, r.NeedsPromptReview())
	})

	t.Run("a consensus round triggers review", func(t *testing.T) {
		r := &ExamReport{ConsensusRoundIDs: []string{"3"}}
		assert.True(t, r.NeedsPromptReview())
	})

	t.Run("arbitration triggers review", func(t *testing.T) {
		r := &ExamReport{ArbitrationIDs: []string{"4"}}
		assert.True(t, r.NeedsPromptReview())
	})
}
