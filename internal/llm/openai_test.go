package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kmufti7/insightforge-bi-assistant/internal/common/errors"
	"github.com/kmufti7/insightforge-bi-assistant/internal/common/logger"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "gpt-3.5-turbo",
		Temperature: 0.3,
		MaxTokens:   600,
		Timeout:     5 * time.Second,
		MaxRetries:  1,
	}
}

func completionJSON(content string) string {
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func testPrompt() Prompt {
	return Prompt{
		System: "You are an analyst.",
		User:   "STATISTICAL CONTEXT:\nTotal Revenue: $350.00\n\nQUESTION: total revenue?",
	}
}

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.Equal(t, 0.3, req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Contains(t, req.Messages[1].Content, "Total Revenue")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionJSON("The total revenue is $350.00."))
	}))
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), logger.NewTestLogger(t))

	answer, err := client.Generate(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "The total revenue is $350.00.", answer)
}

func TestGenerate_RetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionJSON("Recovered answer."))
	}))
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), logger.NewTestLogger(t))

	answer, err := client.Generate(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "Recovered answer.", answer)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerate_UniformFailureMapping(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "auth error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "api error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"error":{"message":"model overloaded","type":"server_error"}}`)
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[]}`)
			},
		},
		{
			name: "blank completion",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, completionJSON("   "))
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewOpenAIClient(testConfig(server.URL), logger.NewTestLogger(t))

			_, err := client.Generate(context.Background(), testPrompt())
			require.Error(t, err)

			var stdErr *apperrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, apperrors.ErrCodeGenerationFailed, stdErr.Code)
			assert.True(t, stdErr.Retryable)
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 100 * time.Millisecond
	client := NewOpenAIClient(cfg, logger.NewTestLogger(t))

	_, err := client.Generate(context.Background(), testPrompt())
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeGenerationTimeout, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	// Point at a closed port, transport error maps like any other failure.
	client := NewOpenAIClient(testConfig("http://127.0.0.1:1"), logger.NewTestLogger(t))

	_, err := client.Generate(context.Background(), testPrompt())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeGenerationFailed, apperrors.CodeOf(err))
}
