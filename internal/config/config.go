// Package config holds the reconciliation pipeline configuration: gate
// thresholds, consensus-round budget, per-question wall-clock budget, and
// worker pool sizing. Configuration is an explicit object passed into
// constructors; the pipeline keeps no process-wide mutable state.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Gate and loop defaults. These are configuration inputs with stated
// defaults, not hardcoded constants; their optimal tuning is an open
// question left to operators.
const (
	DefaultSimilarityThreshold = 0.90
	DefaultGapRatioThreshold   = 0.30
	DefaultMaxConsensusRounds  = 2
	DefaultQuestionBudget      = 3 * time.Minute
	DefaultWorkerPoolSize      = 4
	DefaultFallbackMaxScore    = 10
)

// Pipeline configures one reconciliation run.
type Pipeline struct {
	// SimilarityThreshold is the minimum embedding cosine similarity between
	// the two graders' rationales for the gate to pass.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`

	// GapRatioThreshold is the exclusive upper bound on |scoreA-scoreB|/max
	// for the gate to pass. Gate criteria are conjunctive with similarity.
	GapRatioThreshold float64 `mapstructure:"gap_ratio_threshold"`

	// MaxConsensusRounds bounds the re-grade loop before arbitration.
	MaxConsensusRounds int `mapstructure:"max_consensus_rounds"`

	// QuestionBudget is the per-question wall-clock budget. A breach takes
	// the deterministic averaging path so the pipeline always terminates
	// with a usable score. Zero disables the budget.
	QuestionBudget time.Duration `mapstructure:"question_budget"`

	// WorkerPoolSize bounds concurrent question pipelines within one
	// submission, sized to external API rate limits.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`

	// FallbackMaxScore is the point value assumed when the splitter cannot
	// extract one from the question text.
	FallbackMaxScore int `mapstructure:"fallback_max_score"`

	// EmbeddingModel names the embedding backend, part of the memo cache key.
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// DefaultPipeline returns the stated default configuration.
func DefaultPipeline() Pipeline {
	return Pipeline{
		SimilarityThreshold: DefaultSimilarityThreshold,
		GapRatioThreshold:   DefaultGapRatioThreshold,
		MaxConsensusRounds:  DefaultMaxConsensusRounds,
		QuestionBudget:      DefaultQuestionBudget,
		WorkerPoolSize:      DefaultWorkerPoolSize,
		FallbackMaxScore:    DefaultFallbackMaxScore,
		EmbeddingModel:      "text-embedding-3-small",
	}
}

// Validate rejects configurations that could never reach a terminal state or
// that break the gate's semantics.
func (p Pipeline) Validate() error {
	if p.SimilarityThreshold < 0 || p.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %v outside [0,1]", p.SimilarityThreshold)
	}
	if p.GapRatioThreshold <= 0 {
		return fmt.Errorf("gap ratio threshold %v must be positive", p.GapRatioThreshold)
	}
	if p.MaxConsensusRounds < 0 {
		return fmt.Errorf("max consensus rounds %d must not be negative", p.MaxConsensusRounds)
	}
	if p.WorkerPoolSize < 1 {
		return fmt.Errorf("worker pool size %d must be at least 1", p.WorkerPoolSize)
	}
	return nil
}

// Load reads pipeline configuration from an optional YAML file and the
// environment. Environment keys keep their historical names
// (SIMILARITY_THRESHOLD, SCORE_GAP_RATIO, ...) so existing deployments carry
// over unchanged. Explicit environment values win over file values.
func Load(path string) (Pipeline, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("similarity_threshold", DefaultSimilarityThreshold)
	v.SetDefault("gap_ratio_threshold", DefaultGapRatioThreshold)
	v.SetDefault("max_consensus_rounds", DefaultMaxConsensusRounds)
	v.SetDefault("question_budget", DefaultQuestionBudget)
	v.SetDefault("worker_pool_size", DefaultWorkerPoolSize)
	v.SetDefault("fallback_max_score", DefaultFallbackMaxScore)
	v.SetDefault("embedding_model", "text-embedding-3-small")

	bindings := map[string]string{
		"similarity_threshold": "SIMILARITY_THRESHOLD",
		"gap_ratio_threshold":  "SCORE_GAP_RATIO",
		"max_consensus_rounds": "CONSENSUS_MAX_ROUNDS",
		"question_budget":      "QUESTION_WALL_BUDGET",
		"worker_pool_size":     "RECONCILE_WORKERS",
		"fallback_max_score":   "QUESTION_FALLBACK_SCORE",
		"embedding_model":      "EMBEDDING_MODEL_NAME",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Pipeline{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Pipeline{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("unmarshal pipeline config: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}
