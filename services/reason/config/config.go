// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the reason service configuration.
//
// Values are resolved with priority env > file > defaults. The file may be
// YAML or JSON. The result is validated with struct tags and a few
// cross-field rules before use.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianReason/pkg/logging"
	"github.com/AleutianAI/AleutianReason/services/reason/cot"
	"github.com/AleutianAI/AleutianReason/services/reason/llm"
	"github.com/AleutianAI/AleutianReason/services/reason/telemetry"
	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// FullConfig is the complete configuration of the CLI and server.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after Load.
type FullConfig struct {
	Search    SearchConfig      `yaml:"search" json:"search"`
	Reasoning ReasoningConfig   `yaml:"reasoning" json:"reasoning"`
	Backend   llm.BackendConfig `yaml:"backend" json:"backend"`
	Storage   StorageConfig     `yaml:"storage" json:"storage"`
	Server    ServerConfig      `yaml:"server" json:"server"`
	Telemetry telemetry.Config  `yaml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig     `yaml:"logging" json:"logging"`
}

// SearchConfig holds the default tree search parameters.
type SearchConfig struct {
	Strategy         string           `yaml:"strategy" json:"strategy" validate:"required"`
	MaxDepth         int              `yaml:"max_depth" json:"max_depth" validate:"gte=0,lte=32"`
	BranchingFactor  int              `yaml:"branching_factor" json:"branching_factor" validate:"gte=0,lte=16"`
	PruningThreshold float64          `yaml:"pruning_threshold" json:"pruning_threshold" validate:"gte=0,lte=1"`
	BeamWidth        int              `yaml:"beam_width" json:"beam_width" validate:"gte=0,lte=64"`
	Concurrency      int              `yaml:"concurrency" json:"concurrency" validate:"gte=1,lte=64"`
	RootScore        float64          `yaml:"root_score" json:"root_score" validate:"gte=0,lte=1"`
	Temperature      float64          `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens        int              `yaml:"max_tokens" json:"max_tokens" validate:"gte=1"`
	Budget           tot.BudgetConfig `yaml:"budget" json:"budget"`
}

// Options converts the config into search options.
func (c SearchConfig) Options() (tot.SearchOptions, error) {
	strategy, err := tot.ParseStrategy(c.Strategy)
	if err != nil {
		return tot.SearchOptions{}, err
	}
	return tot.SearchOptions{
		Strategy:         strategy,
		MaxDepth:         c.MaxDepth,
		BranchingFactor:  c.BranchingFactor,
		PruningThreshold: c.PruningThreshold,
		BeamWidth:        c.BeamWidth,
		Budget:           c.Budget,
	}, nil
}

// ReasoningConfig holds chain-of-thought settings.
type ReasoningConfig struct {
	Samples           int           `yaml:"samples" json:"samples" validate:"gte=1,lte=64"`
	Temperature       float64       `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	SampleTemperature float64       `yaml:"sample_temperature" json:"sample_temperature" validate:"gte=0,lte=2"`
	MaxTokens         int           `yaml:"max_tokens" json:"max_tokens" validate:"gte=1"`
	Concurrency       int           `yaml:"concurrency" json:"concurrency" validate:"gte=1,lte=64"`
	Examples          []cot.Example `yaml:"examples" json:"examples"`
}

// StorageConfig selects where run history is kept.
type StorageConfig struct {
	// Path is the badger directory. "~" expands to the home directory.
	Path string `yaml:"path" json:"path"`

	// InMemory keeps history in memory only.
	InMemory bool `yaml:"in_memory" json:"in_memory"`

	// Disabled turns run history off.
	Disabled bool `yaml:"disabled" json:"disabled"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr" json:"addr" validate:"required,hostname_port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"gte=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"gte=0"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" json:"max_body_bytes" validate:"gte=0"`
	MaxSamples     int           `yaml:"max_samples" json:"max_samples" validate:"gte=1"`
	MaxNodes       int           `yaml:"max_nodes" json:"max_nodes" validate:"gte=0"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" json:"format" validate:"oneof=auto text json"`
	Dir    string `yaml:"dir" json:"dir"`
}

// LoggerConfig converts to a logging.Config for service.
func (c LoggingConfig) LoggerConfig(service string) logging.Config {
	level, _ := logging.ParseLevel(c.Level)
	return logging.Config{
		Level:   level,
		LogDir:  c.Dir,
		Service: service,
		Format:  logging.Format(c.Format),
	}
}

// Default returns the default configuration: a local Ollama backend,
// breadth-first search of depth 3 and history under ~/.aleutian/reason.
func Default() FullConfig {
	return FullConfig{
		Search: SearchConfig{
			Strategy:         string(tot.StrategyBFS),
			MaxDepth:         3,
			BranchingFactor:  3,
			PruningThreshold: 0.3,
			BeamWidth:        3,
			Concurrency:      8,
			RootScore:        tot.DefaultRootScore,
			Temperature:      0.7,
			MaxTokens:        256,
			Budget: tot.BudgetConfig{
				MaxNodes:  200,
				TimeLimit: 5 * time.Minute,
			},
		},
		Reasoning: ReasoningConfig{
			Samples:           5,
			Temperature:       0,
			SampleTemperature: 0.7,
			MaxTokens:         512,
			Concurrency:       4,
		},
		Backend: llm.BackendConfig{
			Provider:   llm.ProviderOllama,
			Model:      "llama3.2",
			BaseURL:    "http://localhost:11434",
			Timeout:    5 * time.Minute,
			Resilience: llm.DefaultResilienceConfig(),
		},
		Storage: StorageConfig{
			Path: "~/.aleutian/reason/runs",
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8090",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   10 * time.Minute,
			RequestTimeout: 10 * time.Minute,
			MaxBodyBytes:   1 << 20,
			MaxSamples:     20,
			MaxNodes:       1000,
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads configuration with priority env > file > defaults.
//
// Inputs:
//   - path: YAML or JSON file. Empty or missing means defaults.
//
// Outputs:
//   - FullConfig: The merged configuration.
//   - error: Non-nil if the file is unreadable or invalid, or if the merged
//     configuration fails validation.
func Load(path string) (FullConfig, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	applyEnv(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *FullConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

// applyEnv overrides cfg from the environment. Unparseable numbers are
// ignored.
func applyEnv(cfg *FullConfig, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				*dst = i
			}
		}
	}
	float := func(key string, dst *float64) {
		if v := getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	// Search
	str("REASON_STRATEGY", &cfg.Search.Strategy)
	num("REASON_MAX_DEPTH", &cfg.Search.MaxDepth)
	num("REASON_BRANCHING_FACTOR", &cfg.Search.BranchingFactor)
	float("REASON_PRUNING_THRESHOLD", &cfg.Search.PruningThreshold)
	num("REASON_BEAM_WIDTH", &cfg.Search.BeamWidth)
	num("REASON_CONCURRENCY", &cfg.Search.Concurrency)
	num("REASON_MAX_NODES", &cfg.Search.Budget.MaxNodes)
	num("REASON_MAX_LLM_CALLS", &cfg.Search.Budget.MaxLLMCalls)
	num("REASON_MAX_TOKENS", &cfg.Search.Budget.MaxTokens)
	duration("REASON_TIME_LIMIT", &cfg.Search.Budget.TimeLimit)

	// Reasoning
	num("REASON_SAMPLES", &cfg.Reasoning.Samples)

	// Backend
	str("REASON_PROVIDER", &cfg.Backend.Provider)
	str("REASON_MODEL", &cfg.Backend.Model)
	str("REASON_BASE_URL", &cfg.Backend.BaseURL)
	str("OPENAI_API_KEY", &cfg.Backend.APIKey)
	if cfg.Backend.Provider == llm.ProviderOllama || cfg.Backend.Provider == llm.ProviderLangChainOllama {
		if getenv("REASON_BASE_URL") == "" {
			str("OLLAMA_BASE_URL", &cfg.Backend.BaseURL)
		}
	}
	float("REASON_REQUESTS_PER_SECOND", &cfg.Backend.Resilience.RequestsPerSecond)
	num("REASON_MAX_ATTEMPTS", &cfg.Backend.Resilience.Retry.MaxAttempts)

	// Storage
	str("REASON_STORAGE_PATH", &cfg.Storage.Path)
	boolean("REASON_STORAGE_IN_MEMORY", &cfg.Storage.InMemory)
	boolean("REASON_STORAGE_DISABLED", &cfg.Storage.Disabled)

	// Server
	str("REASON_ADDR", &cfg.Server.Addr)
	duration("REASON_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	// Telemetry
	str("REASON_TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)
	str("REASON_METRIC_EXPORTER", &cfg.Telemetry.MetricExporter)
	str("REASON_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	float("REASON_TRACE_SAMPLE_RATE", &cfg.Telemetry.SampleRate)

	// Logging
	str("REASON_LOG_LEVEL", &cfg.Logging.Level)
	str("REASON_LOG_FORMAT", &cfg.Logging.Format)
	str("REASON_LOG_DIR", &cfg.Logging.Dir)
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
//
// Outputs:
//   - error: Wraps ErrInvalidConfig and names every failing field.
func (c FullConfig) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if _, err := tot.ParseStrategy(c.Search.Strategy); err != nil && c.Search.Strategy != "" {
		problems = append(problems, err.Error())
	}
	if c.Backend.Provider == llm.ProviderOpenAI && c.Backend.APIKey == "" {
		problems = append(problems, "backend.api_key is required for the openai provider (set OPENAI_API_KEY)")
	}
	if !c.Storage.Disabled && !c.Storage.InMemory && strings.TrimSpace(c.Storage.Path) == "" {
		problems = append(problems, "storage.path is required unless storage is in memory or disabled")
	}
	if c.Reasoning.Samples > c.Server.MaxSamples {
		problems = append(problems, fmt.Sprintf("reasoning.samples (%d) exceeds server.max_samples (%d)", c.Reasoning.Samples, c.Server.MaxSamples))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
