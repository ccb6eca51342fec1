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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReason/services/reason/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reason HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts, "reason-server", appNeeds{backend: true, store: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}

			searcher, err := a.searcher()
			if err != nil {
				return err
			}
			reasoner, err := a.reasoner()
			if err != nil {
				return err
			}

			handlers := server.NewHandlers(server.Deps{
				Backend:  a.backend,
				Searcher: searcher,
				Reasoner: reasoner,
				Store:    a.store,
				Search:   a.cfg.Search,
				Samples:  a.cfg.Reasoning.Samples,
				Limits:   a.cfg.Server,
				Logger:   a.logger.Slog(),
			})
			router := server.NewRouter(handlers, a.cfg.Server, a.cfg.Telemetry.ServiceName)

			a.logger.Info("Starting reason server",
				"addr", a.cfg.Server.Addr,
				"backend", a.backend.Name(),
				"history", a.store != nil)
			return server.NewServer(router, a.cfg.Server, a.logger.Slog()).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, e.g. 127.0.0.1:8090")
	return cmd
}
