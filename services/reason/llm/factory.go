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
	"fmt"
	"log/slog"
	"time"
)

// Provider names accepted by NewBackend.
const (
	ProviderOpenAI          = "openai"
	ProviderOllama          = "ollama"
	ProviderLangChainOllama = "langchain-ollama"
	ProviderMock            = "mock"
)

// BackendConfig selects and configures a generation backend.
type BackendConfig struct {
	Provider     string           `yaml:"provider" json:"provider" validate:"required,oneof=openai ollama langchain-ollama mock"`
	Model        string           `yaml:"model" json:"model"`
	BaseURL      string           `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	APIKey       string           `yaml:"-" json:"-"`
	SystemPrompt string           `yaml:"system_prompt" json:"system_prompt"`
	Timeout      time.Duration    `yaml:"timeout" json:"timeout"`
	Resilience   ResilienceConfig `yaml:"resilience" json:"resilience"`
}

// NewBackend builds the configured backend. Real providers are wrapped in a
// ResilientBackend; the mock provider is returned bare.
func NewBackend(cfg BackendConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		inner Backend
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		inner, err = NewOpenAIBackend(OpenAIConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			BaseURL:      cfg.BaseURL,
			SystemPrompt: cfg.SystemPrompt,
		}, logger)
	case ProviderOllama:
		inner, err = NewOllamaBackend(OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	case ProviderLangChainOllama:
		inner, err = NewLangChainOllamaBackend(cfg.BaseURL, cfg.Model, logger)
	case ProviderMock:
		return NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewResilientBackend(inner, cfg.Resilience, logger), nil
}
