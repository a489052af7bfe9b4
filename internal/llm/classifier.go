package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/fixedassets/depflow/internal/breaker"
	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/service"
	"github.com/fixedassets/depflow/internal/tables"
)

// Config holds configuration for the external classifier.
type Config struct {
	Provider       string
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	MaxRetries     int
	RetryDelay     time.Duration
	CacheTTL       time.Duration
	RateLimit      int
	Temperature    float64
	MaxTokens      int
}

// Classifier implements service.ExternalClassifier over a provider client,
// composed with the retry policy and the circuit breaker at this one call
// site.
type Classifier struct {
	client      Client
	circuit     *breaker.CircuitBreaker
	cache       *gocache.Cache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewClassifier creates the external classifier.
func NewClassifier(cfg Config, circuit *breaker.CircuitBreaker, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var client Client
	var err error
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		client, err = newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return newClassifierWithClient(cfg, client, circuit, logger), nil
}

// newClassifierWithClient wires an explicit client; tests use it with fakes.
func newClassifierWithClient(cfg Config, client Client, circuit *breaker.CircuitBreaker, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 5 // initial try plus 4 retries
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = 2 * time.Second
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	if circuit == nil {
		circuit = breaker.New(breaker.DefaultConfig(), logger)
	}

	return &Classifier{
		client:      client,
		circuit:     circuit,
		cache:       gocache.New(cacheTTL, 5*time.Minute),
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		retryOpts:   retryOpts,
	}
}

// ClassifyDescription requests a classification for a normalized
// description. Retries with backoff happen inside the breaker-guarded call,
// so the breaker records one outcome per classification attempt.
func (c *Classifier) ClassifyDescription(ctx context.Context, description string) (service.ClassifierResponse, error) {
	cacheKey := "class:" + description
	if cached, found := c.cache.Get(cacheKey); found {
		if resp, ok := cached.(service.ClassifierResponse); ok {
			c.logger.Debug("classification cache hit", "description", description)
			return resp, nil
		}
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return service.ClassifierResponse{}, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildClassificationPrompt(description)

	var response ClassificationResponse
	err := c.circuit.Execute(ctx, func(ctx context.Context) error {
		return common.WithRetry(ctx, func() error {
			resp, err := c.client.Classify(ctx, prompt)
			if err != nil {
				c.logger.Warn("classification attempt failed",
					"description", description,
					"error", err)
				return err
			}
			response = resp
			return nil
		}, c.retryOpts)
	})
	if err != nil {
		return service.ClassifierResponse{}, err
	}

	class, err := tables.ClassByName(response.ClassName)
	if err != nil {
		return service.ClassifierResponse{}, common.NewServiceError(common.CategoryOther,
			fmt.Errorf("provider returned unknown class %q", response.ClassName))
	}

	result := service.ClassifierResponse{
		ClassName:  class.Name,
		Method:     string(class.Method),
		Life:       class.GDSLife,
		Confidence: response.Confidence,
		Reason:     response.Reason,
	}
	c.cache.SetDefault(cacheKey, result)

	c.logger.Info("description classified externally",
		"description", description,
		"class", result.ClassName,
		"confidence", result.Confidence)

	return result, nil
}

// EmbedDescription returns the embedding vector for a description, through
// the same breaker and retry policy as classification calls.
func (c *Classifier) EmbedDescription(ctx context.Context, description string) ([]float32, error) {
	cacheKey := "embed:" + description
	if cached, found := c.cache.Get(cacheKey); found {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	var embedding []float32
	err := c.circuit.Execute(ctx, func(ctx context.Context) error {
		return common.WithRetry(ctx, func() error {
			vec, err := c.client.Embed(ctx, description)
			if err != nil {
				c.logger.Warn("embedding attempt failed",
					"description", description,
					"error", err)
				return err
			}
			embedding = vec
			return nil
		}, c.retryOpts)
	})
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(cacheKey, embedding)
	return embedding, nil
}

// Close releases the rate limiter's refill goroutine.
func (c *Classifier) Close() error {
	if c.rateLimiter != nil {
		c.rateLimiter.Close()
	}
	return nil
}

// buildClassificationPrompt lists the catalog so the provider answers with
// a known class name.
func buildClassificationPrompt(description string) string {
	var classList strings.Builder
	for _, class := range tables.AllClasses() {
		fmt.Fprintf(&classList, "- %s (%g-year %s)\n", class.Name, class.GDSLife, class.Method)
	}

	return fmt.Sprintf(`Classify this fixed-asset description into exactly one MACRS asset class from the list below.

Asset Classes:
%s
Asset Description: %s

Respond in this exact format:
CLASS: <class name from the list>
CONFIDENCE: <0.0-1.0>
REASON: <one sentence explaining the choice>

Pick the closest class even when unsure, and lower the confidence accordingly.`,
		classList.String(),
		description)
}
