package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/kmufti7/insightforge-bi-assistant/internal/common/errors"
	httpclient "github.com/kmufti7/insightforge-bi-assistant/internal/common/http"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/metrics"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// OpenAIClient calls an OpenAI-style chat completions endpoint. All error
// responses, auth, rate limit or transport, surface uniformly as
// GENERATION_FAILED; deadline expiry as GENERATION_TIMEOUT.
type OpenAIClient struct {
	config Config
	client *httpclient.Client
	logger logger.Logger
}

func NewOpenAIClient(config Config, log logger.Logger) *OpenAIClient {
	return &OpenAIClient{
		config: config,
		// No client-level timeout, the per-call context carries the deadline.
		client: httpclient.NewClient(0),
		logger: log.With(map[string]interface{}{"component": "openai"}),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, _ := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})

	start := time.Now()
	answer, err := c.send(ctx, body)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequests.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.GenerationRequests.WithLabelValues("ok").Inc()
	return answer, nil
}

func (c *OpenAIClient) send(ctx context.Context, body []byte) (string, error) {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", apperrors.NewGenerationTimeoutError(c.config.Timeout)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+"/v1/chat/completions", bytes.NewBuffer(body))
		if err != nil {
			return "", apperrors.NewGenerationFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return "", apperrors.NewGenerationTimeoutError(c.config.Timeout)
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil

			c.logger.Warn("generation request failed", map[string]interface{}{
				"attempt": attempt + 1,
				"error":   lastErr.Error(),
			})
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", apperrors.NewGenerationTimeoutError(c.config.Timeout)
		}
		return "", apperrors.NewGenerationFailedError(lastErr)
	}

	if resp == nil {
		return "", apperrors.NewGenerationFailedError(fmt.Errorf("no successful response after retries"))
	}
	defer resp.Body.Close()

	var apiResponse chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", apperrors.NewGenerationFailedError(fmt.Errorf("decode error: %w", err))
	}

	if apiResponse.Error != nil {
		return "", apperrors.NewGenerationFailedError(fmt.Errorf("api error: %s", apiResponse.Error.Message))
	}
	if len(apiResponse.Choices) == 0 {
		return "", apperrors.NewGenerationFailedError(fmt.Errorf("empty choices in response"))
	}

	answer := strings.TrimSpace(apiResponse.Choices[0].Message.Content)
	if answer == "" {
		return "", apperrors.NewGenerationFailedError(fmt.Errorf("blank completion text"))
	}

	return answer, nil
}
