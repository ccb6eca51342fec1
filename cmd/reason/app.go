// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReason/pkg/logging"
	"github.com/AleutianAI/AleutianReason/pkg/ux"
	"github.com/AleutianAI/AleutianReason/services/reason/config"
	"github.com/AleutianAI/AleutianReason/services/reason/cot"
	"github.com/AleutianAI/AleutianReason/services/reason/llm"
	"github.com/AleutianAI/AleutianReason/services/reason/storage"
	"github.com/AleutianAI/AleutianReason/services/reason/telemetry"
	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

// globalOptions are the persistent root flags.
type globalOptions struct {
	configPath string
	jsonOut    bool
	plain      bool
	provider   string
	model      string
	logLevel   string
	logFormat  string
	noSave     bool
}

// app holds everything one command invocation needs. Fields a command did
// not ask for stay nil.
type app struct {
	cfg     config.FullConfig
	logger  *logging.Logger
	out     *ux.Printer
	jsonOut bool

	backend llm.Backend
	db      *storage.DB
	store   *storage.RunStore

	shutdownTelemetry func(context.Context) error
}

type appNeeds struct {
	backend bool
	store   bool
}

// newApp loads configuration, applies flag overrides and opens what the
// command needs. Callers must Close the app.
func newApp(cmd *cobra.Command, opts *globalOptions, service string, needs appNeeds) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Backend.Provider = opts.provider
	}
	if flags.Changed("model") {
		cfg.Backend.Model = opts.model
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}
	if opts.noSave {
		cfg.Storage.Disabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := cfg.Logging.LoggerConfig(service)
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.New(logCfg)

	mode := ux.Mode("")
	switch {
	case opts.jsonOut:
		mode = ux.ModeMachine
	case opts.plain:
		mode = ux.ModePlain
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		out:     ux.NewPrinter(cmd.OutOrStdout(), mode),
		jsonOut: opts.jsonOut,
	}

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdownTelemetry = shutdown

	if needs.backend {
		a.backend, err = llm.NewBackend(cfg.Backend, logger.Slog())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create backend: %w", err)
		}
	}

	if needs.store && !cfg.Storage.Disabled {
		if err := a.openStore(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openStore() error {
	var (
		db  *storage.DB
		err error
	)
	if a.cfg.Storage.InMemory {
		db, err = storage.OpenInMemory()
	} else {
		dbCfg := storage.DefaultConfig(a.cfg.Storage.Path)
		dbCfg.Logger = a.logger.Slog()
		db, err = storage.Open(dbCfg)
	}
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	a.db = db
	a.store = storage.NewRunStore(db, a.logger.Slog())
	return nil
}

// searcher builds a Searcher from the search configuration.
func (a *app) searcher() (*tot.Searcher, error) {
	s := a.cfg.Search
	return tot.NewSearcher(a.backend,
		tot.WithLogger(a.logger.Slog()),
		tot.WithConcurrency(s.Concurrency),
		tot.WithRootScore(s.RootScore),
		tot.WithGenerationParams(s.Temperature, s.MaxTokens),
	)
}

// reasoner builds a Reasoner from the reasoning configuration.
func (a *app) reasoner() (*cot.Reasoner, error) {
	r := a.cfg.Reasoning
	return cot.NewReasoner(a.backend,
		cot.WithLogger(a.logger.Slog()),
		cot.WithExamples(r.Examples...),
		cot.WithTemperature(r.Temperature),
		cot.WithSampleTemperature(r.SampleTemperature),
		cot.WithMaxTokens(r.MaxTokens),
		cot.WithConcurrency(r.Concurrency),
	)
}

// save stores run if history is enabled. Failures are logged.
func (a *app) save(ctx context.Context, run *storage.Run) string {
	if a.store == nil {
		return ""
	}
	id, err := a.store.Save(ctx, run)
	if err != nil {
		a.logger.Warn("Failed to save run", slog.String("error", err.Error()))
		return ""
	}
	return id
}

// Close releases storage, flushes telemetry and closes the log file.
func (a *app) Close() {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.shutdownTelemetry(ctx))
		cancel()
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Shutdown incomplete", slog.String("error", err.Error()))
	}
	_ = a.logger.Close()
}

// writer returns the command output destination.
func (a *app) writer() io.Writer {
	return a.out.Writer()
}
