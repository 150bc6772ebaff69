package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoContent indicates a well-formed provider response that carried no
// usable completion text.
var ErrNoContent = errors.New("provider response contained no content")

// ErrUnknownProvider indicates a request routed to a provider the client was
// not configured with.
var ErrUnknownProvider = errors.New("unknown provider")

// ProviderError carries a provider HTTP failure with enough context for
// retry classification.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is transient: rate limits and
// server-side errors retry, client errors do not.
func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Retryable classifies an arbitrary error for the retry policy. Typed
// provider errors decide for themselves; anything else (network failures,
// timeouts) is assumed transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	if errors.Is(err, ErrNoContent) || errors.Is(err, ErrUnknownProvider) {
		return false
	}
	return true
}
