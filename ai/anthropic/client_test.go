package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/hts"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		APIKey:  "sk-ant-test",
		BaseURL: server.URL,
		Model:   "claude-3-5-sonnet-20241022",
		Timeout: 5 * time.Second,
	}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return client
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{Model: "claude-3-5-sonnet-20241022"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))

	_, err = New(Config{APIKey: "k"}, nil)
	assert.True(t, errors.IsConfig(err))

	_, err = New(Config{APIKey: "k", Model: "m", BaseURL: "ftp://example.com"}, nil)
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))

		var body struct {
			Model       string  `json:"model"`
			MaxTokens   int64   `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-sonnet-20241022", body.Model)
		assert.Equal(t, int64(500), body.MaxTokens)
		assert.Equal(t, 0.2, body.Temperature)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		require.Len(t, body.Messages[0].Content, 1)
		assert.Equal(t, "classify this", body.Messages[0].Content[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [
				{"type": "text", "text": "{\"hts_code\": \"6912.00.4810\","},
				{"type": "text", "text": " \"confidence\": 0.91}"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 412, "output_tokens": 88}
		}`))
	})

	completion, err := client.Complete(context.Background(), hts.CompletionRequest{
		Prompt:      "classify this",
		MaxTokens:   500,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"hts_code": "6912.00.4810", "confidence": 0.91}`, completion.Text)
	assert.Equal(t, "claude-3-5-sonnet-20241022", completion.Model)
	assert.Equal(t, int64(412), completion.InputTokens)
	assert.Equal(t, int64(88), completion.OutputTokens)
}

func TestComplete_APIErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	_, err := client.Complete(context.Background(), hts.CompletionRequest{Prompt: "x", MaxTokens: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 529")
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_FeedsClassifierFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_02", "type": "message", "role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "I can't determine a code for this product."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 300, "output_tokens": 12}
		}`))
	})

	classifier := hts.NewClassifier(client, hts.ClassifierConfig{MaxTokens: 500, Temperature: 0.2}, nil)
	outcome := classifier.Classify(context.Background(), hts.Request{ProductID: 7, Name: "Mystery item"})

	assert.Equal(t, hts.FailureNoJSON, outcome.Failure)
	assert.Equal(t, hts.Fallback(), outcome.Result)
	assert.Equal(t, int64(300), outcome.Usage.InputTokens)
}

func TestCalculateCost(t *testing.T) {
	cost := CalculateCost("claude-3-5-sonnet-20241022", 1_000_000, 100_000)
	assert.InDelta(t, 4.50, cost, 1e-9)

	assert.Equal(t, UnknownModelCost, CalculateCost("unknown-model", 10, 10))

	p, ok := GetPricing("claude-3-5-haiku-20241022")
	require.True(t, ok)
	assert.Equal(t, 0.80, p.Input)

	_, ok = GetPricing("gpt-4o")
	assert.False(t, ok)
}
