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

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TokenCounter counts the tokens of text for a model.
type TokenCounter func(model, text string) int

// LangChainBackend adapts any langchaingo llms.Model to Backend.
type LangChainBackend struct {
	model     llms.Model
	modelName string
	counter   TokenCounter
	logger    *slog.Logger
}

// LangChainOption configures a LangChainBackend.
type LangChainOption func(*LangChainBackend)

// WithTokenCounter replaces the default llms.CountTokens counter.
func WithTokenCounter(counter TokenCounter) LangChainOption {
	return func(b *LangChainBackend) {
		b.counter = counter
	}
}

// NewLangChainBackend wraps model. modelName feeds token counting and Name.
func NewLangChainBackend(model llms.Model, modelName string, logger *slog.Logger, opts ...LangChainOption) *LangChainBackend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &LangChainBackend{
		model:     model,
		modelName: modelName,
		counter:   llms.CountTokens,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewLangChainOllamaBackend builds a LangChainBackend over the langchaingo
// Ollama client.
func NewLangChainOllamaBackend(serverURL, model string, logger *slog.Logger) (*LangChainBackend, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain ollama client: %w", err)
	}
	return NewLangChainBackend(client, model, logger), nil
}

// Name implements Backend.
func (b *LangChainBackend) Name() string {
	return "langchain:" + b.modelName
}

// Generate implements Backend.
func (b *LangChainBackend) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (*Generation, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	ctx, span := tracer.Start(ctx, "LangChainBackend.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", b.modelName))

	callOpts := []llms.CallOption{llms.WithTemperature(temperature)}
	if maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(maxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, b.model, prompt, callOpts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("langchain generate: %w", err)
	}
	if text == "" {
		return nil, fmt.Errorf("langchain: %w", ErrEmptyResponse)
	}

	tokens := b.counter(b.modelName, prompt) + b.counter(b.modelName, text)
	span.SetAttributes(attribute.Int("llm.tokens", tokens))
	b.logger.Debug("LangChain response received", slog.Int("tokens", tokens))

	return &Generation{Text: text, TokenCount: tokens}, nil
}
