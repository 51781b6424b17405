package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_OpenStreamsBody(t *testing.T) {
	var gotAuth, gotAccept string
	var gotBody chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test")
	body, err := c.Open(context.Background(), &Request{
		Model:    "gpt-4o",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: [DONE]\n\n", string(data))

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "text/event-stream", gotAccept)
	assert.Equal(t, "gpt-4o", gotBody.Model)
	assert.True(t, gotBody.Stream, "requests must always ask for a stream")
}

func TestClient_NonSuccessStatusReturnsBodyAsDiagnostics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test")
	body, err := c.Open(context.Background(), &Request{Model: "gpt-4o"})
	assert.Nil(t, body)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusTooManyRequests, serr.StatusCode)
	assert.Contains(t, serr.Body, "rate limited")
}

func TestClient_ContextCancellationAbortsRead(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL, "")
	body, err := c.Open(ctx, &Request{Model: "gpt-4o"})
	require.NoError(t, err)
	defer body.Close()

	cancel()
	buf := make([]byte, 64)
	_, err = body.Read(buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ToolsEncodedAsFunctions(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	body, err := c.Open(context.Background(), &Request{
		Model: "gpt-4o",
		Tools: []ToolDef{{Name: "write_file", Parameters: json.RawMessage(`{"type":"object"}`)}},
	})
	require.NoError(t, err)
	body.Close()

	tools, ok := raw["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "function", tool["type"])
	assert.Equal(t, "write_file", tool["function"].(map[string]any)["name"])
}
