package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/fixedassets/depflow/internal/breaker"
	"github.com/fixedassets/depflow/internal/classify"
	"github.com/fixedassets/depflow/internal/config"
	"github.com/fixedassets/depflow/internal/llm"
	"github.com/fixedassets/depflow/internal/memory"
	"github.com/fixedassets/depflow/internal/service"
	"github.com/fixedassets/depflow/internal/storage"
)

// initStorage opens the record store and runs pending migrations.
func initStorage(ctx context.Context, settings *config.Settings) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// buildOrchestrator assembles the classification pipeline from the
// configuration: overrides and rules always, semantic memory and the
// external classifier only when configured.
func buildOrchestrator(settings *config.Settings, logger *slog.Logger) (*classify.Orchestrator, func(), error) {
	var overrideEntries []classify.OverrideEntry
	if err := viper.UnmarshalKey("classification.overrides", &overrideEntries); err != nil {
		return nil, nil, fmt.Errorf("failed to parse classification.overrides: %w", err)
	}
	overrides := classify.NewOverrideRegistry(overrideEntries, logger)

	var customRules []classify.Rule
	if err := viper.UnmarshalKey("classification.rules", &customRules); err != nil {
		return nil, nil, fmt.Errorf("failed to parse classification.rules: %w", err)
	}
	ruleSet := append(classify.DefaultRules(), customRules...)
	rules := classify.NewRuleMatcher(ruleSet, settings.Thresholds.RuleMinScore, logger)

	cleanup := func() {}

	var mem classify.Memory
	var external service.ExternalClassifier
	if settings.LLM.APIKey != "" {
		store, err := memory.Open(settings.MemoryPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open semantic memory: %w", err)
		}
		mem = store

		circuit := breaker.New(breaker.Config{
			FailureThreshold:  settings.Breaker.FailureThreshold,
			RecoveryTimeout:   settings.Breaker.RecoveryTimeout,
			HalfOpenSuccesses: settings.Breaker.HalfOpenSuccesses,
		}, logger)

		classifier, err := llm.NewClassifier(llm.Config{
			Provider:       settings.LLM.Provider,
			APIKey:         settings.LLM.APIKey,
			Model:          settings.LLM.Model,
			EmbeddingModel: settings.LLM.EmbeddingModel,
			BaseURL:        settings.LLM.BaseURL,
			MaxRetries:     settings.LLM.MaxRetries,
			RetryDelay:     settings.LLM.RetryDelay,
			CacheTTL:       settings.LLM.CacheTTL,
			RateLimit:      settings.LLM.RateLimit,
		}, circuit, logger)
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to create external classifier: %w", err)
		}
		external = classifier

		cleanup = func() {
			_ = classifier.Close()
			_ = store.Close()
		}
	} else {
		logger.Warn("no LLM API key configured; memory and external tiers disabled")
	}

	thresholds := classify.Thresholds{
		MemorySimilarity: settings.Thresholds.MemorySimilarity,
		LowConfidence:    settings.Thresholds.LowConfidence,
	}
	return classify.NewOrchestrator(overrides, rules, mem, external, thresholds, logger), cleanup, nil
}
