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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReason/services/reason/storage"
)

var errHistoryDisabled = errors.New("run history is disabled")

func newRunsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openHistory(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(a.writer(), runs)
			}
			renderRunList(a.out, runs)
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openHistory(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(a.writer(), run)
			}
			renderRun(a.out, run)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openHistory(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.out.Success(fmt.Sprintf("Deleted run %s", args[0]))
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func openHistory(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	a, err := newApp(cmd, opts, "reason-cli", appNeeds{store: true})
	if err != nil {
		return nil, err
	}
	if a.store == nil {
		a.Close()
		return nil, errHistoryDisabled
	}
	return a, nil
}

// runKindLabel is the list label of a run kind.
func runKindLabel(k storage.Kind) string {
	switch k {
	case storage.KindSearch:
		return "tree"
	case storage.KindChain:
		return "chain"
	case storage.KindConsistency:
		return "vote"
	default:
		return string(k)
	}
}
