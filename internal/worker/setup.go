package worker

import (
	"fmt"
	"log/slog"

	"github.com/ahrav/go-concord/internal/agents"
	"github.com/ahrav/go-concord/internal/config"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/exam"
	"github.com/ahrav/go-concord/internal/gate"
	"github.com/ahrav/go-concord/internal/llm"
	"github.com/ahrav/go-concord/internal/reconcile"
	"github.com/ahrav/go-concord/pkg/activity"
	"github.com/ahrav/go-concord/pkg/events"
)

// AgentSpec selects the backend for one agent role.
type AgentSpec struct {
	Provider string
	Model    string
}

func (s AgentSpec) validate(role string) error {
	if s.Provider == "" || s.Model == "" {
		return fmt.Errorf("%s agent needs both provider and model", role)
	}
	return nil
}

// Options carries everything Initialize needs to assemble the pipeline.
type Options struct {
	Pipeline config.Pipeline

	// Providers configures the completion backends by provider name.
	Providers map[string]llm.ProviderConfig

	Primary    AgentSpec
	Secondary  AgentSpec
	Arbitrator AgentSpec

	// EmbeddingAPIKey authenticates the similarity-gate embedding backend.
	// The model comes from Pipeline.EmbeddingModel.
	EmbeddingAPIKey string

	// Screen optionally pre-checks submissions for adversarial content.
	Screen exam.SecurityScreen

	// Sink receives audit events; nil falls back to the structured-log sink.
	Sink events.EventSink

	Logger *slog.Logger
}

// Initialize builds the full reconciliation dependency graph and returns the
// activities ready for registration. Returns the construction error rather
// than exiting so callers control startup failure handling.
func Initialize(opts Options) (*exam.Activities, error) {
	if err := opts.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	for role, spec := range map[string]AgentSpec{
		"primary":    opts.Primary,
		"secondary":  opts.Secondary,
		"arbitrator": opts.Arbitrator,
	} {
		if err := spec.validate(role); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = events.NewSlogSink(logger)
	}

	client := llm.NewClient(llm.Config{Providers: opts.Providers, Logger: logger})
	retry := llm.DefaultRetryPolicy()

	primary := agents.NewLLMGrader(domain.AgentPrimary, opts.Primary.Provider, opts.Primary.Model, client, retry, logger)
	secondary := agents.NewLLMGrader(domain.AgentSecondary, opts.Secondary.Provider, opts.Secondary.Model, client, retry, logger)
	arbitrator := agents.NewLLMArbitrator(opts.Arbitrator.Provider, opts.Arbitrator.Model, client, retry, logger)

	embedder := gate.NewOpenAIEmbedder(opts.EmbeddingAPIKey, opts.Pipeline.EmbeddingModel)
	similarityGate := gate.New(embedder, opts.Pipeline.EmbeddingModel, logger)

	engine := reconcile.New(opts.Pipeline, primary, secondary, arbitrator, similarityGate, sink, logger)

	examOpts := []exam.Option{exam.WithLogger(logger)}
	if opts.Screen != nil {
		examOpts = append(examOpts, exam.WithSecurityScreen(opts.Screen))
	}
	reconciler := exam.NewReconciler(engine, opts.Pipeline, examOpts...)

	return exam.NewActivities(activity.NewBase(sink), reconciler), nil
}
