package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/chronolog/internal/domain"
)

func newTestCompleter(t *testing.T, handler http.HandlerFunc) *OpenAICompleter {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAICompleter("test-key", "").WithEndpoint(server.URL, server.Client())
}

func TestComplete_Success(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 0.3, req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "system prompt", req.Messages[0].Content)
		assert.Equal(t, "user prompt", req.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` + "```json\\n[]\\n```" + `"},"finish_reason":"stop"}]}`))
	})

	content, err := c.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "```json\n[]\n```", content)
}

func TestComplete_APIError(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrService)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestComplete_UnparseableErrorBody(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrService)
	assert.Contains(t, err.Error(), "Status: 502")
}

func TestComplete_NoChoices(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrDecoding)
}

func TestComplete_TransportErrorAndCancel(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, "s", "u")
	assert.ErrorIs(t, err, domain.ErrService)
	assert.ErrorIs(t, err, context.Canceled)
}
