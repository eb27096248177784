package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content, finish string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "qwen3-32b",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
	})
	return string(body)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL: srv.URL + "/v1/",
		APIKey:  "secret",
		Model:   "qwen3-32b",
		Timeout: 5 * time.Second,
	})
}

func conversation() []Message {
	return []Message{
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleUser, Content: "I had a rough day"},
	}
}

func TestClient_Complete_Success(t *testing.T) {
	var got capturedRequest
	var auth, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("  That sounds heavy. Want to talk about it?  \n", "stop")))
	})

	text, err := c.Complete(context.Background(), conversation())
	require.NoError(t, err)
	assert.Equal(t, "That sounds heavy. Want to talk about it?", text)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "qwen3-32b", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestClient_Complete_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind string
		wantCode string
	}{
		{
			name:     "modelarts moderation envelope",
			status:   http.StatusBadRequest,
			body:     `{"error_code":"ModelArts.81011","error_msg":"Input text May contain sensitive information"}`,
			wantKind: "moderation",
			wantCode: "ModelArts.81011",
		},
		{
			name:     "openai shaped moderation code",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":"ModelArts.81011","message":"blocked","type":"x"}}`,
			wantKind: "moderation",
			wantCode: "ModelArts.81011",
		},
		{
			name:     "provider 5xx",
			status:   http.StatusBadGateway,
			body:     `{"error_code":"ModelArts.4203","error_msg":"upstream busy"}`,
			wantKind: "transient",
			wantCode: "ModelArts.4203",
		},
		{
			name:     "throttled with plain body",
			status:   http.StatusTooManyRequests,
			body:     `slow down`,
			wantKind: "transient",
			wantCode: "AI_UNAVAILABLE",
		},
		{
			name:     "bad key",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"code":"invalid_api_key","message":"bad key","type":"auth"}}`,
			wantKind: "fatal",
			wantCode: "invalid_api_key",
		},
		{
			name:     "content filter finish reason",
			status:   http.StatusOK,
			body:     completion("", "content_filter"),
			wantKind: "moderation",
			wantCode: DefaultModerationCode,
		},
		{
			name:     "empty reply",
			status:   http.StatusOK,
			body:     completion("   ", "stop"),
			wantKind: "fatal",
			wantCode: "AI_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Complete(context.Background(), conversation())
			require.Error(t, err)

			var f Failure
			require.True(t, errors.As(err, &f), "error should be a Failure: %v", err)
			assert.Equal(t, tt.wantKind, kindOf(f))
			assert.Equal(t, tt.wantCode, f.Code())
		})
	}
}

func TestClient_Complete_EmptyReplyWrapsInvalidResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completion("", "stop")))
	})
	_, err := c.Complete(context.Background(), conversation())
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Contains(t, err.Error(), "invalid AI response format")
}

func TestClient_Complete_TimeoutIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, conversation())
	var tr *Transient
	require.ErrorAs(t, err, &tr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func kindOf(f Failure) string {
	switch f.(type) {
	case *ModerationRejected:
		return "moderation"
	case *Transient:
		return "transient"
	case *Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}
