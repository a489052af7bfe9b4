package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fixedassets/depflow/internal/common"
)

// openAIClient implements the Client interface for OpenAI-compatible APIs.
type openAIClient struct {
	httpClient     *http.Client
	apiKey         string
	model          string
	embeddingModel string
	baseURL        string
	temperature    float64
	maxTokens      int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key: %w", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 200
	}

	return &openAIClient{
		apiKey:         cfg.APIKey,
		model:          model,
		embeddingModel: embeddingModel,
		baseURL:        strings.TrimRight(baseURL, "/"),
		temperature:    temperature,
		maxTokens:      maxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Classify sends a classification request.
func (c *openAIClient) Classify(ctx context.Context, prompt string) (ClassificationResponse, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a fixed-asset tax classifier. Respond only in the exact format requested.",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	body, err := c.post(ctx, "/chat/completions", requestBody)
	if err != nil {
		return ClassificationResponse{}, err
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return ClassificationResponse{}, common.NewServiceError(common.CategoryOther,
			fmt.Errorf("failed to parse response: %w", err))
	}
	if len(response.Choices) == 0 {
		return ClassificationResponse{}, common.NewServiceError(common.CategoryOther,
			fmt.Errorf("no choices in response"))
	}

	return parseClassification(response.Choices[0].Message.Content)
}

// Embed requests an embedding vector for the input text.
func (c *openAIClient) Embed(ctx context.Context, input string) ([]float32, error) {
	requestBody := map[string]any{
		"model": c.embeddingModel,
		"input": input,
	}

	body, err := c.post(ctx, "/embeddings", requestBody)
	if err != nil {
		return nil, err
	}

	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, common.NewServiceError(common.CategoryOther,
			fmt.Errorf("failed to parse embedding response: %w", err))
	}
	if len(response.Data) == 0 {
		return nil, common.NewServiceError(common.CategoryOther,
			fmt.Errorf("no embedding in response"))
	}
	return response.Data[0].Embedding, nil
}

// post sends one JSON request and maps HTTP failures onto the
// machine-readable error categories.
func (c *openAIClient) post(ctx context.Context, path string, requestBody any) ([]byte, error) {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.NewServiceError(common.CategoryNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewServiceError(common.CategoryNetwork,
			fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, common.NewServiceError(common.CategoryAuth,
			fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(body)))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, common.NewServiceError(common.CategoryRateLimit,
			fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(body)))
	case resp.StatusCode >= 500:
		return nil, common.NewServiceError(common.CategoryNetwork,
			fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(body)))
	default:
		return nil, common.NewServiceError(common.CategoryOther,
			fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(body)))
	}
}

func truncate(body []byte) string {
	const maxLen = 512
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
