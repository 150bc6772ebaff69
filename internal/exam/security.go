package exam

import (
	"context"
	"errors"
)

// ErrSubmissionBlocked reports that the security screen classified a
// submission as a prompt-injection attempt. The submission never reaches the
// graders.
var ErrSubmissionBlocked = errors.New("submission blocked by security screen")

// ScreenVerdict is the security screen's classification of one submission.
type ScreenVerdict struct {
	Attack bool   `json:"attack"`
	Reason string `json:"reason"`
}

// SecurityScreen pre-checks a submission for adversarial content before any
// grader sees it. Implementations live outside this module (typically another
// LLM call); an Attack verdict hard-gates the whole submission. A transport
// error from the screen does not block: only a positive verdict does.
type SecurityScreen interface {
	Screen(ctx context.Context, examText, answerText string) (ScreenVerdict, error)
}
