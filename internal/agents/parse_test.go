package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Run("plain JSON object", func(t *testing.T) {
		obj, err := ExtractJSON(`{"score": 8}`)
		require.NoError(t, err)
		assert.Equal(t, float64(8), obj["score"])
	})

	t.Run("object embedded in prose", func(t *testing.T) {
		obj, err := ExtractJSON("Here is my grading:\n```json\n{\"score\": 5}\n```\nDone.")
		require.NoError(t, err)
		assert.Equal(t, float64(5), obj["score"])
	})

	t.Run("sloppy JSON gets repaired", func(t *testing.T) {
		obj, err := ExtractJSON(`{'score': 7, "comment": "fine",}`)
		require.NoError(t, err)
		assert.Equal(t, float64(7), obj["score"])
	})

	t.Run("no object at all fails", func(t *testing.T) {
		_, err := ExtractJSON("I cannot grade this.")
		assert.Error(t, err)
	})
}

func TestParseRubricItem(t *testing.T) {
	t.Run("nested rubric shape", func(t *testing.T) {
		raw := `{"rubric": {"items": [{"item_id": "9", "max_score": 10, "score": 8, "comment": "good use of loops"}]}}`
		item, err := ParseRubricItem(raw, "1")
		require.NoError(t, err)
		assert.Equal(t, "1", item.ItemID, "item id is forced to the question id")
		assert.Equal(t, float64(10), item.MaxScore)
		assert.Equal(t, float64(8), item.Score)
		assert.Equal(t, "good use of loops", item.Comment)
	})

	t.Run("extra items are discarded", func(t *testing.T) {
		raw := `{"items": [{"score": 8, "max_score": 10, "comment": "a"}, {"score": 2, "max_score": 10, "comment": "b"}]}`
		item, err := ParseRubricItem(raw, "1")
		require.NoError(t, err)
		assert.Equal(t, float64(8), item.Score)
	})

	t.Run("flat shape with legacy field name", func(t *testing.T) {
		raw := `{"item_id": "1", "max_score": 10, "student_score": "3/4", "comment": "mostly right"}`
		item, err := ParseRubricItem(raw, "1")
		require.NoError(t, err)
		assert.InDelta(t, 0.75, item.Score, 1e-9)
	})

	t.Run("empty item list fails", func(t *testing.T) {
		_, err := ParseRubricItem(`{"rubric": {"items": []}}`, "1")
		assert.Error(t, err)
	})
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float", 7.5, 7.5},
		{"int", 7, 7},
		{"numeric string", "8", 8},
		{"fraction string reads as proportion", "3/4", 0.75},
		{"zero denominator fraction", "3/0", 0},
		{"string with units", "8 points", 8},
		{"garbage", "excellent", 0},
		{"nil", nil, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ParseScore(tc.in), 1e-9)
		})
	}
}
