package domain

import "math"

// UnverifiedItem is a rubric item as reported by an agent, before ScoreGuard
// normalization. Scores arrive as floats because models emit proportions,
// fractions, and decimals; MaxScore may be zero or missing when the model
// dropped the denominator entirely.
type UnverifiedItem struct {
	ItemID   string  `json:"item_id"`
	MaxScore float64 `json:"max_score"`
	Score    float64 `json:"score"`
	Comment  string  `json:"comment"`
}

// NormalizeItem coerces an agent-reported item onto the question's expected
// point scale and returns an integer-scored RubricItem.
//
// Agents frequently hallucinate their own denominator, so the rules are:
//   - missing/zero max: a score in [0,1] is read as a proportion of
//     expectedMax; anything else is an absolute value clamped to the scale
//   - wrong max: rescale by score/max before rounding
//   - matching max: round to nearest integer
//
// The returned item always satisfies 0 <= Score <= MaxScore == expectedMax.
func NormalizeItem(raw UnverifiedItem, expectedMax int) RubricItem {
	score := raw.Score

	switch {
	case raw.MaxScore <= 0:
		if score >= 0 && score <= 1 {
			score *= float64(expectedMax)
		}
	case int(math.Round(raw.MaxScore)) != expectedMax:
		score = score / raw.MaxScore * float64(expectedMax)
	}

	final := int(math.Round(score))
	if final < 0 {
		final = 0
	}
	if final > expectedMax {
		final = expectedMax
	}

	return RubricItem{
		ItemID:   raw.ItemID,
		MaxScore: expectedMax,
		Score:    final,
		Comment:  raw.Comment,
	}
}

// Gap returns the absolute score difference between two gradings and the
// difference as a ratio of the question's max score. The denominator is
// floored at 1 so zero-point questions cannot divide by zero.
func Gap(a, b, maxScore int) (absolute int, ratio float64) {
	absolute = a - b
	if absolute < 0 {
		absolute = -absolute
	}
	denom := maxScore
	if denom < 1 {
		denom = 1
	}
	return absolute, float64(absolute) / float64(denom)
}

// AverageScore returns the rounded arithmetic mean of two integer scores.
// Used for consensus outcomes and for the arbitrator's degraded mode.
func AverageScore(a, b int) int {
	return int(math.Round(float64(a+b) / 2.0))
}
