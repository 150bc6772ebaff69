package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ahrav/go-concord/internal/domain"
)

// Best-effort JSON extraction from free-form model text. This is the parsing
// boundary: everything past it is a validated UnverifiedItem, and the engine
// never sees raw model output.

var (
	fractionPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)\s*$`)
	numberPattern   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// ExtractJSON pulls the first JSON object out of model text, repairing
// truncated or sloppy output (markdown fences, trailing commas, single
// quotes) before giving up.
func ExtractJSON(raw string) (map[string]any, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	candidate := raw[start : end+1]

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, fmt.Errorf("repair model JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, fmt.Errorf("decode repaired JSON: %w", err)
	}
	return obj, nil
}

// ParseRubricItem extracts exactly one rubric item for questionID from model
// output. Accepted shapes, most specific first:
//
//	{"rubric": {"items": [{...}]}}
//	{"items": [{...}]}
//	{"item_id": ..., "max_score": ..., "score": ..., "comment": ...}
//
// Extra items are discarded; the item id is forced to questionID.
func ParseRubricItem(raw string, questionID string) (domain.UnverifiedItem, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return domain.UnverifiedItem{}, err
	}

	entry := firstItem(obj)
	if entry == nil {
		return domain.UnverifiedItem{}, fmt.Errorf("model output has no rubric item")
	}

	item := domain.UnverifiedItem{
		ItemID:   questionID,
		MaxScore: ParseScore(entry["max_score"]),
		Comment:  stringValue(entry["comment"]),
	}
	score, ok := entry["score"]
	if !ok {
		score = entry["student_score"] // legacy field name some prompts elicit
	}
	item.Score = ParseScore(score)
	return item, nil
}

// firstItem digs the first rubric item map out of the accepted shapes.
func firstItem(obj map[string]any) map[string]any {
	if rubric, ok := obj["rubric"].(map[string]any); ok {
		obj = rubric
	}
	if items, ok := obj["items"].([]any); ok {
		if len(items) == 0 {
			return nil
		}
		entry, _ := items[0].(map[string]any)
		return entry
	}
	// Flat shape: the object itself is the item.
	if _, hasScore := obj["score"]; hasScore {
		return obj
	}
	if _, hasScore := obj["student_score"]; hasScore {
		return obj
	}
	return nil
}

// ParseScore coerces the score shapes models actually produce: numbers,
// numeric strings, fractions like "3/4" (read as a proportion), and strings
// with embedded digits like "8 points". Unparseable input scores zero.
func ParseScore(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case int:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	case string:
		s := strings.TrimSpace(x)
		if m := fractionPattern.FindStringSubmatch(s); m != nil {
			num, _ := strconv.ParseFloat(m[1], 64)
			den, _ := strconv.ParseFloat(m[2], 64)
			if den == 0 {
				return 0
			}
			return num / den
		}
		if m := numberPattern.FindString(s); m != "" {
			f, _ := strconv.ParseFloat(m, 64)
			return f
		}
	}
	return 0
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
