// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

func TestOpenAIBackend_Generate(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Consider the base case."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 7, "total_tokens": 12}
		}`))
	}))
	defer srv.Close()

	b, err := NewOpenAIBackend(OpenAIConfig{APIKey: "sk-test", Model: "gpt-test", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)

	gen, err := b.Generate(context.Background(), "Think.", 0.7, 128)
	require.NoError(t, err)
	assert.Equal(t, "Consider the base case.", gen.Text)
	assert.Equal(t, 12, gen.TokenCount)
	assert.Equal(t, "openai:gpt-test", b.Name())
	assert.Equal(t, "gpt-test", gotBody["model"])
	assert.EqualValues(t, 128, gotBody["max_tokens"])
}

func TestOpenAIBackend_RequiresKey(t *testing.T) {
	_, err := NewOpenAIBackend(OpenAIConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOllamaBackend_Generate(t *testing.T) {
	var req ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model:           "llama-test",
			Response:        "Split the problem.",
			Done:            true,
			PromptEvalCount: 4,
			EvalCount:       6,
		})
	}))
	defer srv.Close()

	b, err := NewOllamaBackend(OllamaConfig{BaseURL: srv.URL + "/", Model: "llama-test"}, nil)
	require.NoError(t, err)

	gen, err := b.Generate(context.Background(), "Think.", 0.2, 50)
	require.NoError(t, err)
	assert.Equal(t, "Split the problem.", gen.Text)
	assert.Equal(t, 10, gen.TokenCount)
	assert.False(t, req.Stream)
	assert.EqualValues(t, 50, req.Options["num_predict"])
}

func TestOllamaBackend_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer srv.Close()

	b, err := NewOllamaBackend(OllamaConfig{BaseURL: srv.URL, Model: "nope"}, nil)
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), "Think.", 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull nope")
}

func TestOllamaBackend_EmptyPrompt(t *testing.T) {
	b, err := NewOllamaBackend(OllamaConfig{BaseURL: "http://localhost:1"}, nil)
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), "", 0, 0)
	assert.True(t, errors.Is(err, ErrEmptyPrompt))
}

func TestLangChainBackend_Generate(t *testing.T) {
	model := fake.NewFakeLLM([]string{"A langchain thought."})
	counter := func(_, text string) int { return len(text) }

	b := NewLangChainBackend(model, "fake", nil, WithTokenCounter(counter))

	gen, err := b.Generate(context.Background(), "Think.", 0.3, 20)
	require.NoError(t, err)
	assert.Equal(t, "A langchain thought.", gen.Text)
	assert.Equal(t, len("Think.")+len("A langchain thought."), gen.TokenCount)
	assert.Equal(t, "langchain:fake", b.Name())
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BackendConfig
		wantErr  error
		wantName string
	}{
		{name: "mock", cfg: BackendConfig{Provider: ProviderMock}, wantName: "mock"},
		{name: "ollama", cfg: BackendConfig{Provider: ProviderOllama, BaseURL: "http://localhost:11434", Model: "m"}, wantName: "ollama:m"},
		{name: "openai without key", cfg: BackendConfig{Provider: ProviderOpenAI}, wantErr: ErrMissingAPIKey},
		{name: "unknown", cfg: BackendConfig{Provider: "bard"}, wantErr: ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.cfg, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, b.Name())
		})
	}
}
