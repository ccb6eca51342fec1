// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianReason/services/reason/cot"
	"github.com/AleutianAI/AleutianReason/services/reason/tot"
)

// Kind names the type of a stored run.
type Kind string

const (
	KindSearch      Kind = "search"
	KindChain       Kind = "chain"
	KindConsistency Kind = "consistency"
)

const (
	runPrefix   = "run/"
	indexPrefix = "idx/"
)

// Run is one stored reasoning run. Exactly one of the result fields is set,
// matching Kind.
type Run struct {
	ID          string                 `json:"id"`
	Kind        Kind                   `json:"kind"`
	Question    string                 `json:"question"`
	CreatedAt   time.Time              `json:"created_at"`
	Search      *tot.SearchResult      `json:"search,omitempty"`
	Chain       *cot.ChainResult       `json:"chain,omitempty"`
	Consistency *cot.ConsistencyResult `json:"consistency,omitempty"`
}

// SearchRun wraps a tree search result. The run id is the search run id.
func SearchRun(res *tot.SearchResult) *Run {
	return &Run{ID: res.RunID, Kind: KindSearch, Question: res.Question, CreatedAt: res.StartedAt, Search: res}
}

// ChainRun wraps a single reasoning chain.
func ChainRun(res *cot.ChainResult) *Run {
	return &Run{Kind: KindChain, Question: res.Question, Chain: res}
}

// ConsistencyRun wraps a self-consistency vote.
func ConsistencyRun(res *cot.ConsistencyResult) *Run {
	return &Run{Kind: KindConsistency, Question: res.Question, Consistency: res}
}

// Summary is the list view of a Run.
type Summary struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
	Strategy  string    `json:"strategy,omitempty"`
	Score     float64   `json:"score,omitempty"`
	Answer    string    `json:"answer,omitempty"`
	Nodes     int       `json:"nodes,omitempty"`
	Solved    bool      `json:"solved,omitempty"`
}

// Summary condenses the run.
func (r *Run) Summary() Summary {
	s := Summary{ID: r.ID, Kind: r.Kind, Question: r.Question, CreatedAt: r.CreatedAt}
	switch {
	case r.Search != nil:
		s.Strategy = string(r.Search.Strategy)
		s.Score = r.Search.BestPath.Score
		s.Nodes = r.Search.NodeCount
		s.Solved = r.Search.BestPath.IsSolution
	case r.Consistency != nil:
		s.Answer = r.Consistency.Answer
		s.Score = r.Consistency.Ratio
	case r.Chain != nil:
		s.Answer = r.Chain.Answer
	}
	return s
}

// RunStore persists runs.
//
// Keys: "run/<id>" holds the JSON run, "idx/<created unix nanos>/<id>" is an
// empty marker ordering runs by creation time.
//
// Thread Safety: Safe for concurrent use.
type RunStore struct {
	db     *DB
	logger *slog.Logger
}

// NewRunStore creates a store over db. A nil logger uses slog.Default().
func NewRunStore(db *DB, logger *slog.Logger) *RunStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunStore{db: db, logger: logger}
}

// Save stores run. A missing id or creation time is filled in. Saving an
// existing id replaces the run and its history index entry.
//
// Outputs:
//   - string: The run id.
//   - error: Encoding or database failure.
func (s *RunStore) Save(ctx context.Context, run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	err = s.db.update(ctx, func(txn *badger.Txn) error {
		// A re-save with a new CreatedAt must not leave the old index entry.
		item, err := txn.Get(runKey(run.ID))
		switch {
		case err == nil:
			var prior Run
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prior) }); err != nil {
				return fmt.Errorf("decode existing run: %w", err)
			}
			if !prior.CreatedAt.Equal(run.CreatedAt) {
				if err := txn.Delete(indexKey(prior.CreatedAt, run.ID)); err != nil {
					return err
				}
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := txn.Set(runKey(run.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(run.CreatedAt, run.ID), nil)
	})
	if err != nil {
		return "", fmt.Errorf("save run %s: %w", run.ID, err)
	}

	s.logger.Debug("Run saved", slog.String("run_id", run.ID), slog.String("kind", string(run.Kind)), slog.Int("bytes", len(data)))
	return run.ID, nil
}

// Get loads the run with id.
//
// Outputs:
//   - error: ErrNotFound for an unknown id.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	return &run, nil
}

// List returns summaries newest first. limit <= 0 returns all runs.
func (s *RunStore) List(ctx context.Context, limit int) ([]Summary, error) {
	var ids []string
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = []byte(indexPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(indexPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(indexPrefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := string(it.Item().Key())
			if i := strings.LastIndexByte(key, '/'); i >= 0 {
				ids = append(ids, key[i+1:])
			}
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		run, err := s.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Skipping unreadable run", slog.String("run_id", id), slog.String("error", err.Error()))
			continue
		}
		summaries = append(summaries, run.Summary())
	}
	return summaries, nil
}

// Delete removes the run with id.
//
// Outputs:
//   - error: ErrNotFound for an unknown id.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.update(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete(runKey(id)); err != nil {
			return err
		}
		return txn.Delete(indexKey(run.CreatedAt, id))
	})
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

// indexKey zero-pads the timestamp so byte order is time order.
func indexKey(created time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", indexPrefix, created.UnixNano(), id))
}
