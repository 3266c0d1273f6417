package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-research-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"pong"}}]}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf_test", srv.URL, "meta-llama/Llama-3.1-8B-Instruct")
	reply, err := p.Generate(context.Background(), "ping", llm.WithJSON(), llm.WithMaxTokens(64))

	require.NoError(t, err)
	assert.Equal(t, "pong", reply)
	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", got.Model)
	assert.Equal(t, 64, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestHuggingFaceErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusUnauthorized, `{"error":"bad token"}`, "status 401"},
		{"error body", http.StatusOK, `{"error":{"message":"model loading"}}`, "model loading"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "empty choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHuggingFaceProvider("k", srv.URL, "m").Generate(context.Background(), "hi")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
