// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReason/pkg/logging"
	"github.com/AleutianAI/AleutianReason/services/reason/llm"
	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.Search.Options()
	require.NoError(t, err)
	assert.Equal(t, tot.StrategyBFS, opts.Strategy)
	assert.Equal(t, 3, opts.MaxDepth)
	assert.Equal(t, 200, opts.Budget.MaxNodes)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Search, cfg.Search)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reason.yaml")
	data := `
search:
  strategy: beam
  max_depth: 4
  beam_width: 2
  budget:
    max_nodes: 50
    time_limit: 30s
backend:
  provider: mock
server:
  addr: "0.0.0.0:9000"
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "beam", cfg.Search.Strategy)
	assert.Equal(t, 4, cfg.Search.MaxDepth)
	assert.Equal(t, 2, cfg.Search.BeamWidth)
	assert.Equal(t, 3, cfg.Search.BranchingFactor, "unset fields keep defaults")
	assert.Equal(t, 50, cfg.Search.Budget.MaxNodes)
	assert.Equal(t, 30*time.Second, cfg.Search.Budget.TimeLimit)
	assert.Equal(t, llm.ProviderMock, cfg.Backend.Provider)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.LoggerConfig("reason").Level)
}

func TestLoad_JSONFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reason.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"search": {"strategy": "dfs", "max_depth": 2}, "reasoning": {"samples": 3}}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dfs", cfg.Search.Strategy)
	assert.Equal(t, 2, cfg.Search.MaxDepth)
	assert.Equal(t, 3, cfg.Reasoning.Samples)
}

func TestLoad_Unparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unterminated"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reason.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  strategy: dfs\n"), 0o600))

	t.Setenv("REASON_STRATEGY", "best-first")
	t.Setenv("REASON_MAX_DEPTH", "5")
	t.Setenv("REASON_TIME_LIMIT", "90s")
	t.Setenv("REASON_PROVIDER", "ollama")
	t.Setenv("REASON_BASE_URL", "")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("REASON_STORAGE_IN_MEMORY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "best-first", cfg.Search.Strategy)
	assert.Equal(t, 5, cfg.Search.MaxDepth)
	assert.Equal(t, 90*time.Second, cfg.Search.Budget.TimeLimit)
	assert.Equal(t, "http://gpu-box:11434", cfg.Backend.BaseURL)
	assert.True(t, cfg.Storage.InMemory)

	opts, err := cfg.Search.Options()
	require.NoError(t, err)
	assert.Equal(t, tot.StrategyBestFirst, opts.Strategy)
}

func TestApplyEnv_IgnoresGarbage(t *testing.T) {
	env := map[string]string{
		"REASON_MAX_DEPTH":         "deep",
		"REASON_PRUNING_THRESHOLD": "high",
		"REASON_TIME_LIMIT":        "soon",
		"OPENAI_API_KEY":           "sk-test",
	}
	cfg := Default()
	applyEnv(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, 3, cfg.Search.MaxDepth)
	assert.Equal(t, 0.3, cfg.Search.PruningThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Search.Budget.TimeLimit)
	assert.Equal(t, "sk-test", cfg.Backend.APIKey)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FullConfig)
		want   string
	}{
		{"unknown strategy", func(c *FullConfig) { c.Search.Strategy = "random" }, "unknown search strategy"},
		{"threshold above one", func(c *FullConfig) { c.Search.PruningThreshold = 1.5 }, "PruningThreshold"},
		{"negative budget", func(c *FullConfig) { c.Search.Budget.MaxNodes = -1 }, "MaxNodes"},
		{"unknown provider", func(c *FullConfig) { c.Backend.Provider = "bard" }, "Provider"},
		{"openai without key", func(c *FullConfig) {
			c.Backend.Provider = llm.ProviderOpenAI
			c.Backend.APIKey = ""
		}, "OPENAI_API_KEY"},
		{"bad base url", func(c *FullConfig) { c.Backend.BaseURL = "not a url" }, "BaseURL"},
		{"bad log level", func(c *FullConfig) { c.Logging.Level = "loud" }, "Level"},
		{"bad exporter", func(c *FullConfig) { c.Telemetry.TraceExporter = "zipkin" }, "TraceExporter"},
		{"bad addr", func(c *FullConfig) { c.Server.Addr = "nowhere" }, "Addr"},
		{"missing storage path", func(c *FullConfig) { c.Storage.Path = "" }, "storage.path"},
		{"too many samples", func(c *FullConfig) { c.Reasoning.Samples = 50 }, "max_samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_StorageAlternatives(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = ""
	cfg.Storage.InMemory = true
	assert.NoError(t, cfg.Validate())

	cfg.Storage.InMemory = false
	cfg.Storage.Disabled = true
	assert.NoError(t, cfg.Validate())
}
