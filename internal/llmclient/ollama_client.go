// internal/llmclient/ollama_client.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/config"
)

// OllamaClient implements schemas.LLMClient against a local Ollama server's
// /api/generate endpoint.
type OllamaClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMConfig
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequestPayload struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponsePayload struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllamaClient initializes the client.
func NewOllamaClient(cfg config.LLMConfig, logger *zap.Logger) (*OllamaClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("ollama endpoint is required")
	}

	return &OllamaClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/") + "/api/generate",
		config:   cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llm_client.ollama"),
	}, nil
}

// Generate sends the prompts to the Ollama server and returns the generated
// content, retrying transient failures with exponential backoff.
func (c *OllamaClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	payload := ollamaRequestPayload{
		Model:  c.config.Model,
		Prompt: req.UserPrompt,
		System: req.SystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: float64(req.Options.Temperature),
			NumPredict:  c.config.MaxTokens,
		},
	}
	if req.Options.ForceJSONFormat {
		payload.Format = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var responseContent string

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		startTime := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		duration := time.Since(startTime)

		if err != nil {
			c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			c.logger.Error("Ollama returned error status", zap.Int("status", resp.StatusCode), zap.String("response", string(respBody)))
			err := fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(respBody))
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
				return err // Transient, retry.
			default:
				return backoff.Permanent(err)
			}
		}

		var responsePayload ollamaResponsePayload
		if err := json.Unmarshal(respBody, &responsePayload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if responsePayload.Response == "" {
			return backoff.Permanent(fmt.Errorf("ollama returned empty response"))
		}

		c.logger.Info("LLM generation complete (Ollama)",
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", responsePayload.PromptEvalCount),
			zap.Int("completion_tokens", responsePayload.EvalCount),
		)

		responseContent = responsePayload.Response
		return nil
	}

	if err = backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}

	return responseContent, nil
}
