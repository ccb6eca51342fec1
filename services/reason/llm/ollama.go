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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.reason.llm")

// OllamaConfig configures OllamaBackend.
type OllamaConfig struct {
	// BaseURL of the Ollama server, e.g. "http://localhost:11434". Required.
	BaseURL string

	// Model defaults to "llama3.2".
	Model string

	// Timeout per request. Default: 5m.
	Timeout time.Duration
}

// OllamaBackend calls the Ollama /api/generate endpoint directly.
type OllamaBackend struct {
	httpClient *http.Client
	baseURL    string
	model      string
	logger     *slog.Logger
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllamaBackend creates an Ollama backend.
func NewOllamaBackend(cfg OllamaConfig, logger *slog.Logger) (*OllamaBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama: base url not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
		logger.Warn("Ollama model not set, defaulting", slog.String("model", cfg.Model))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	logger.Info("Initializing Ollama backend", slog.String("base_url", baseURL), slog.String("model", cfg.Model))
	return &OllamaBackend{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		model:      cfg.Model,
		logger:     logger,
	}, nil
}

// Name implements Backend.
func (o *OllamaBackend) Name() string {
	return "ollama:" + o.model
}

// Generate implements Backend.
func (o *OllamaBackend) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Generation, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	ctx, span := tracer.Start(ctx, "OllamaBackend.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))

	options := map[string]any{"temperature": temperature}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("ollama call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && strings.Contains(errResp.Error, "not found") {
			return nil, fmt.Errorf("model %q not found, run 'ollama pull %s'", o.model, o.model)
		}
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, Preview(string(respBody), 200))
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("parse ollama response: %w", err)
	}
	if out.Response == "" {
		return nil, fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}

	tokens := out.PromptEvalCount + out.EvalCount
	if tokens == 0 {
		tokens = EstimateTokens(prompt) + EstimateTokens(out.Response)
	}
	span.SetAttributes(attribute.Int("llm.tokens", tokens))
	o.logger.Debug("Ollama response received", slog.Int("tokens", tokens))

	return &Generation{Text: out.Response, TokenCount: tokens}, nil
}
