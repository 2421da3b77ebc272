package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mathviz-ai/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "microsoft/Phi-4-reasoning", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "solve it", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, 0.4, req.Temperature)
		assert.Equal(t, 4000, req.MaxTokens)

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: "the answer is 1/3"}},
			},
		})
	}))
	defer server.Close()

	provider := NewAzureProvider(server.URL, "test-token", "microsoft/Phi-4-reasoning")
	out, err := provider.Generate(context.Background(), "solve it", "integrate x^2",
		llm.WithTemperature(0.4),
		llm.WithMaxTokens(4000),
	)
	require.NoError(t, err)
	assert.Equal(t, "the answer is 1/3", out)
}

func TestChatMapsModelRoleToAssistant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "assistant", req.Messages[0].Role)

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: "ok"}},
			},
		})
	}))
	defer server.Close()

	provider := NewAzureProvider(server.URL, "token", "model")
	_, err := provider.Chat(context.Background(), []llm.Message{
		{Role: "model", Content: "earlier reply"},
		{Role: "user", Content: "follow up"},
	})
	require.NoError(t, err)
}

func TestChatAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewAzureProvider(server.URL, "bad", "model")
	_, err := provider.Generate(context.Background(), "sys", "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "azure auth failed")
}

func TestChatRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewAzureProvider(server.URL, "token", "model")
	_, err := provider.Generate(context.Background(), "sys", "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer server.Close()

	provider := NewAzureProvider(server.URL, "token", "model")
	_, err := provider.Generate(context.Background(), "sys", "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
