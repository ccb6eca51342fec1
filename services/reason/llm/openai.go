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
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OpenAIConfig configures OpenAIBackend.
type OpenAIConfig struct {
	// APIKey is required.
	APIKey string

	// Model defaults to "gpt-4o-mini".
	Model string

	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string

	// SystemPrompt is sent as the system message when non-empty.
	SystemPrompt string
}

// OpenAIBackend generates text through the OpenAI chat completions API.
type OpenAIBackend struct {
	client       *openai.Client
	model        string
	systemPrompt string
	logger       *slog.Logger
}

// NewOpenAIBackend creates an OpenAI backend.
//
// Outputs:
//   - *OpenAIBackend: Ready to use backend.
//   - error: ErrMissingAPIKey if cfg.APIKey is empty.
func NewOpenAIBackend(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
		logger.Warn("OpenAI model not set, defaulting", slog.String("model", cfg.Model))
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Info("Initializing OpenAI backend", slog.String("model", cfg.Model))
	return &OpenAIBackend{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		logger:       logger,
	}, nil
}

// Name implements Backend.
func (o *OpenAIBackend) Name() string {
	return "openai:" + o.model
}

// Generate implements Backend.
func (o *OpenAIBackend) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Generation, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	ctx, span := tracer.Start(ctx, "OpenAIBackend.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Float64("llm.temperature", temperature),
	)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if o.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: float32(temperature),
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Debug("OpenAI call failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		span.SetStatus(codes.Error, "empty response")
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	text := resp.Choices[0].Message.Content
	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = EstimateTokens(prompt) + EstimateTokens(text)
	}
	span.SetAttributes(attribute.Int("llm.tokens", tokens))

	o.logger.Debug("OpenAI response received",
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)),
		slog.Int("tokens", tokens))
	return &Generation{Text: text, TokenCount: tokens}, nil
}
