package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLLMAnalyze(t *testing.T) {
	var gotReq ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ollamaResponse{
			Model:    gotReq.Model,
			Response: `{"security_stars": 4}`,
			Done:     true,
		})
	}))
	defer srv.Close()

	c, err := NewLocalLLMClient(LocalLLMConfig{BaseURL: srv.URL, Model: "codellama"})
	require.NoError(t, err)

	out, err := c.Analyze(context.Background(), "audit this contract")
	require.NoError(t, err)

	assert.Equal(t, `{"security_stars": 4}`, out)
	assert.Equal(t, "codellama", gotReq.Model)
	assert.Equal(t, "audit this contract", gotReq.Prompt)
	assert.False(t, gotReq.Stream)
	assert.InDelta(t, 0.1, gotReq.Options.Temperature, 1e-9)
}

func TestLocalLLMAnalyzeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Error: "model not found"})
	}))
	defer srv.Close()

	c, err := NewLocalLLMClient(LocalLLMConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestLocalLLMAnalyzeNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewLocalLLMClient(LocalLLMConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestLocalLLMDefaults(t *testing.T) {
	c, err := NewLocalLLMClient(LocalLLMConfig{})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", c.baseURL)
	assert.Equal(t, "llama2", c.model)
	assert.Equal(t, "Local LLM (llama2)", c.GetName())
}
