// Package llm provides a minimal chat-completion client over the provider
// HTTP APIs the grading agents use. It normalizes requests and responses
// across providers; everything above it works with plain strings and never
// sees provider wire formats. Retry is deliberately absent here: the grading
// agents own their bounded-retry policies.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Request is a normalized completion request.
type Request struct {
	Provider     string
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Response is a normalized completion response.
type Response struct {
	Content    string
	Model      string
	TokensUsed int64
}

// Client issues completion requests. Implementations must be safe for
// concurrent use.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ProviderConfig holds per-provider endpoint and credentials.
type ProviderConfig struct {
	Endpoint string
	APIKey   string
	Headers  map[string]string
}

// Config configures the HTTP client. Retry is not a transport concern here:
// callers (the grading agents) own their bounded-retry policies.
type Config struct {
	HTTPTimeout time.Duration
	HTTPClient  *http.Client
	Providers   map[string]ProviderConfig
	Logger      *slog.Logger
}

// adapter translates between normalized requests and one provider's wire
// format.
type adapter interface {
	Name() string
	Build(ctx context.Context, cfg ProviderConfig, req Request) (*http.Request, error)
	Parse(resp *http.Response) (*Response, error)
}

type httpClient struct {
	http     *http.Client
	configs  map[string]ProviderConfig
	adapters map[string]adapter
	logger   *slog.Logger
}

// NewClient builds a client for the configured providers. Unconfigured
// providers are rejected per request with ErrUnknownProvider.
func NewClient(cfg Config) Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	adapters := map[string]adapter{
		ProviderOpenAI:    openAIAdapter{},
		ProviderAnthropic: anthropicAdapter{},
		ProviderGoogle:    googleAdapter{},
	}

	return &httpClient{
		http:     hc,
		configs:  cfg.Providers,
		adapters: adapters,
		logger:   logger,
	}
}

func (c *httpClient) Complete(ctx context.Context, req Request) (*Response, error) {
	ad, ok := c.adapters[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, req.Provider)
	}
	pcfg, ok := c.configs[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s not configured", ErrUnknownProvider, req.Provider)
	}

	httpReq, err := ad.Build(ctx, pcfg, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", req.Provider, err)
	}
	defer httpResp.Body.Close()

	resp, err := ad.Parse(httpResp)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "completion finished",
		"provider", req.Provider,
		"model", req.Model,
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens", resp.TokensUsed)
	return resp, nil
}
