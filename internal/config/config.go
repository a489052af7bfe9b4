package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/fixedassets/depflow/internal/common"
)

// Settings is the typed view of the viper configuration tree.
type Settings struct {
	DatabasePath     string
	MemoryPath       string
	TransferDefault  string
	LLM              LLMSettings
	Thresholds       ThresholdSettings
	Breaker          BreakerSettings
	TaxYear          int
	Workers          int
	TaxableIncome    float64
	BeginningBalance float64
	Tolerance        float64
	DeMinimis        float64
}

// LLMSettings configures the external classifier provider.
type LLMSettings struct {
	Provider       string
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	MaxRetries     int
	RetryDelay     time.Duration
	CacheTTL       time.Duration
	RateLimit      int
}

// ThresholdSettings holds the classification decision thresholds.
type ThresholdSettings struct {
	RuleMinScore     float64
	MemorySimilarity float64
	LowConfidence    float64
}

// BreakerSettings configures the external-service circuit breaker.
type BreakerSettings struct {
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	HalfOpenSuccesses int
}

// SetDefaults registers every default so partial config files work.
func SetDefaults() {
	viper.SetDefault("database.path", "$HOME/.local/share/depflow/depflow.db")
	viper.SetDefault("database.memory_path", "$HOME/.local/share/depflow/memory.db")

	viper.SetDefault("batch.tax_year", time.Now().Year())
	viper.SetDefault("batch.workers", 4)
	// Negative means unstated: the Section 179 income limit is not applied.
	viper.SetDefault("batch.taxable_income", -1.0)
	viper.SetDefault("batch.beginning_balance", 0.0)
	viper.SetDefault("batch.de_minimis", 0.0)

	viper.SetDefault("rollforward.tolerance", 0.01)
	viper.SetDefault("rollforward.transfer_default", "out")

	viper.SetDefault("classification.rule_min_score", 0.60)
	viper.SetDefault("classification.memory_similarity", 0.82)
	viper.SetDefault("classification.low_confidence", 0.50)

	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.recovery_timeout", "60s")
	viper.SetDefault("breaker.half_open_successes", 2)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.embedding_model", "text-embedding-3-small")
	viper.SetDefault("llm.max_retries", 5)
	viper.SetDefault("llm.retry_delay", "2s")
	viper.SetDefault("llm.cache_ttl", "15m")
	viper.SetDefault("llm.rate_limit", 60)
}

// Load materializes and validates the settings from viper.
func Load() (*Settings, error) {
	s := &Settings{
		DatabasePath:     ExpandPath(viper.GetString("database.path")),
		MemoryPath:       ExpandPath(viper.GetString("database.memory_path")),
		TaxYear:          viper.GetInt("batch.tax_year"),
		Workers:          viper.GetInt("batch.workers"),
		TaxableIncome:    viper.GetFloat64("batch.taxable_income"),
		BeginningBalance: viper.GetFloat64("batch.beginning_balance"),
		DeMinimis:        viper.GetFloat64("batch.de_minimis"),
		Tolerance:        viper.GetFloat64("rollforward.tolerance"),
		TransferDefault:  viper.GetString("rollforward.transfer_default"),
		Thresholds: ThresholdSettings{
			RuleMinScore:     viper.GetFloat64("classification.rule_min_score"),
			MemorySimilarity: viper.GetFloat64("classification.memory_similarity"),
			LowConfidence:    viper.GetFloat64("classification.low_confidence"),
		},
		Breaker: BreakerSettings{
			FailureThreshold:  viper.GetInt("breaker.failure_threshold"),
			RecoveryTimeout:   viper.GetDuration("breaker.recovery_timeout"),
			HalfOpenSuccesses: viper.GetInt("breaker.half_open_successes"),
		},
		LLM: LLMSettings{
			Provider:       viper.GetString("llm.provider"),
			APIKey:         viper.GetString("llm.api_key"),
			Model:          viper.GetString("llm.model"),
			EmbeddingModel: viper.GetString("llm.embedding_model"),
			BaseURL:        viper.GetString("llm.base_url"),
			MaxRetries:     viper.GetInt("llm.max_retries"),
			RetryDelay:     viper.GetDuration("llm.retry_delay"),
			CacheTTL:       viper.GetDuration("llm.cache_ttl"),
			RateLimit:      viper.GetInt("llm.rate_limit"),
		},
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks cross-field constraints.
func (s *Settings) Validate() error {
	if s.TaxYear < 1987 {
		return fmt.Errorf("%w: batch.tax_year %d predates the current depreciation system",
			common.ErrInvalidConfig, s.TaxYear)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("%w: batch.workers must be positive", common.ErrInvalidConfig)
	}
	if s.Thresholds.MemorySimilarity < 0 || s.Thresholds.MemorySimilarity > 1 {
		return fmt.Errorf("%w: classification.memory_similarity must be in [0,1]", common.ErrInvalidConfig)
	}
	if s.Thresholds.LowConfidence < 0 || s.Thresholds.LowConfidence > 1 {
		return fmt.Errorf("%w: classification.low_confidence must be in [0,1]", common.ErrInvalidConfig)
	}
	switch s.TransferDefault {
	case "in", "out":
	default:
		return fmt.Errorf("%w: rollforward.transfer_default must be \"in\" or \"out\"", common.ErrInvalidConfig)
	}
	return nil
}
