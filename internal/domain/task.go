package domain

import "fmt"

// QuestionTask is the read-only input to one question's reconciliation
// pipeline. Created once when an exam is split into question blocks.
type QuestionTask struct {
	// QuestionID identifies the question within the submission.
	QuestionID string `json:"question_id" validate:"required"`

	// ExamText is the question text shown to the graders.
	ExamText string `json:"exam_text" validate:"required"`

	// AnswerText is the student's answer for this question.
	AnswerText string `json:"answer_text"`

	// ExpectedMaxScore is the question's resolved point value, checked
	// explicitly in Validate so a bad value maps to ErrInvalidMaxScore. The
	// pipeline never parses question text for scores itself.
	ExpectedMaxScore int `json:"expected_max_score"`

	// Instruction is the active grading prompt, treated as an opaque string.
	Instruction string `json:"instruction"`
}

// Validate checks the task for configuration errors before the pipeline runs.
func (t QuestionTask) Validate() error {
	if err := validate.Struct(t); err != nil {
		return err
	}
	if t.ExpectedMaxScore <= 0 {
		return fmt.Errorf("question %s: %w (got %d)", t.QuestionID, ErrInvalidMaxScore, t.ExpectedMaxScore)
	}
	return nil
}
