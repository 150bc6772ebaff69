package exam

import (
	"regexp"
	"strconv"
	"strings"
)

// QuestionBlock is one question's slice of an exam or answer document.
type QuestionBlock struct {
	// ID is the question number as written, digits only.
	ID string

	// Text is the block body, header included, trimmed.
	Text string

	// Points is the point value extracted from the block text, 0 when the
	// block does not state one.
	Points int
}

// questionHeader matches the question-number styles seen in real exams:
// "1.", "1)", "1:", "Q1.", "Question 1:". The number must start a line.
var questionHeader = regexp.MustCompile(`(?mi)^[ \t]*(?:q(?:uestion)?[ \t]*)?(\d+)[ \t]*[.):]`)

// pointPatterns extract a question's point value, tried in order. Exams write
// this many ways; the parenthesized form is the most reliable so it goes
// first.
var pointPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\([ \t]*(\d+)[ \t]*(?:points?|pts?|marks?)[ \t]*\)`),
	regexp.MustCompile(`(?i)(?:worth|score|max(?:imum)?(?:[ \t]+score)?)[ \t]*[:=]?[ \t]*(\d+)`),
	regexp.MustCompile(`(?i)\b(\d+)[ \t]*(?:points?|pts?|marks?)\b`),
}

// SplitQuestions partitions a document into per-question blocks. Each block
// runs from its header to the next header (or end of text). Text before the
// first header is dropped. When a question number repeats, the first
// occurrence wins.
func SplitQuestions(text string) []QuestionBlock {
	headers := questionHeader.FindAllStringSubmatchIndex(text, -1)
	if len(headers) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(headers))
	blocks := make([]QuestionBlock, 0, len(headers))
	for i, h := range headers {
		start := h[0]
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}

		id := text[h[2]:h[3]]
		if seen[id] {
			continue
		}
		seen[id] = true

		body := strings.TrimSpace(text[start:end])
		points, _ := ExtractPoints(body)
		blocks = append(blocks, QuestionBlock{ID: id, Text: body, Points: points})
	}
	return blocks
}

// ExtractPoints finds a question's stated point value in its text. The second
// return is false when no pattern matches.
func ExtractPoints(text string) (int, bool) {
	for _, p := range pointPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// blocksByID indexes blocks for intersection with the sibling document.
func blocksByID(blocks []QuestionBlock) map[string]QuestionBlock {
	out := make(map[string]QuestionBlock, len(blocks))
	for _, b := range blocks {
		out[b.ID] = b
	}
	return out
}
