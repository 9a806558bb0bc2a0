//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package roundsync implements the round synchronization that runs
// consistency checks over opened values at batch boundaries.
package roundsync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/evaluator"
	"github.com/ArrowSides/fresco/metrics"
	"github.com/ArrowSides/fresco/protocol"
)

// Checker drains the opened values of pool and appends the
// consistency check over them to the builder b. It returns the
// number of values the check covers. The check computation fails
// with a consistency error if the values don't verify.
type Checker[P protocol.ResourcePool] func(b *builder.Builder[P], pool P) (
	int, error)

// Synchronizer runs consistency checks when a batch contains gates
// that require a check, when the number of pending opened values
// exceeds the threshold, and when the evaluation finishes.
type Synchronizer[P protocol.ResourcePool] struct {
	check     Checker[P]
	config    *env.Config
	threshold int
	log       zerolog.Logger
	metrics   metrics.Collector

	required bool
	checks   int
	checked  int
	stats    evaluator.Stats
}

var _ protocol.RoundSynchronization[protocol.ResourcePool] = &Synchronizer[protocol.ResourcePool]{}

// New creates a new synchronizer running the check.
func New[P protocol.ResourcePool](check Checker[P],
	config *env.Config) *Synchronizer[P] {

	return &Synchronizer[P]{
		check:     check,
		config:    config,
		threshold: config.GetOpenThreshold(),
		log: config.GetLogger().With().
			Str("component", "roundsync").Logger(),
		metrics: config.GetMetrics(),
	}
}

// Checks returns the number of consistency checks run.
func (s *Synchronizer[P]) Checks() int {
	return s.checks
}

// Checked returns the number of opened values checked.
func (s *Synchronizer[P]) Checked() int {
	return s.checked
}

// Stats returns the evaluation statistics of the checks.
func (s *Synchronizer[P]) Stats() evaluator.Stats {
	return s.stats
}

// BeforeBatch implements protocol.RoundSynchronization.BeforeBatch.
func (s *Synchronizer[P]) BeforeBatch(ctx context.Context,
	batch []protocol.Gate[P], pool P, sess protocol.Session) error {

	s.required = false
	for _, g := range batch {
		if protocol.NeedsCheck(g) {
			s.required = true
			break
		}
	}
	if s.required && pool.OpenedValues().HasPending() {
		return s.run(ctx, pool, sess, "before output")
	}
	return nil
}

// AfterBatch implements protocol.RoundSynchronization.AfterBatch.
func (s *Synchronizer[P]) AfterBatch(ctx context.Context, gates int,
	pool P, sess protocol.Session) error {

	required := s.required
	s.required = false

	opened := pool.OpenedValues()
	if !opened.HasPending() {
		return nil
	}
	if required {
		return s.run(ctx, pool, sess, "output")
	}
	if opened.Exceeds(s.threshold) {
		return s.run(ctx, pool, sess, "threshold")
	}
	return nil
}

// FinishedEval implements protocol.RoundSynchronization.FinishedEval.
func (s *Synchronizer[P]) FinishedEval(ctx context.Context, pool P,
	sess protocol.Session) error {

	if pool.OpenedValues().HasPending() {
		return s.run(ctx, pool, sess, "final")
	}
	return nil
}

func (s *Synchronizer[P]) run(ctx context.Context, pool P,
	sess protocol.Session, reason string) error {

	start := time.Now()

	b := builder.NewSequential[P]()
	values, err := s.check(b, pool)
	if err != nil {
		return protocol.Wrap(protocol.KindConstruction, "check", err)
	}
	root, err := b.Build()
	if err != nil {
		return err
	}

	// The check itself opens values that are not checked again.
	ev := evaluator.New[P](None[P]{}, s.config)
	stats, err := ev.Eval(ctx, root, pool, sess)
	s.checks++
	s.checked += values
	s.stats.Add(stats)
	s.metrics.CheckCompleted(values, err == nil)

	if err != nil {
		s.log.Warn().Err(err).Str("reason", reason).Int("values", values).
			Msg("consistency check failed")
		return err
	}
	s.log.Debug().Str("reason", reason).Int("values", values).
		Int("batches", stats.Batches).Dur("elapsed", time.Since(start)).
		Msg("consistency check passed")
	return nil
}

// None is a round synchronization that does nothing. It is used for
// evaluating the consistency checks themselves.
type None[P protocol.ResourcePool] struct{}

// BeforeBatch implements protocol.RoundSynchronization.BeforeBatch.
func (None[P]) BeforeBatch(ctx context.Context, batch []protocol.Gate[P],
	pool P, sess protocol.Session) error {
	return nil
}

// AfterBatch implements protocol.RoundSynchronization.AfterBatch.
func (None[P]) AfterBatch(ctx context.Context, gates int, pool P,
	sess protocol.Session) error {
	return nil
}

// FinishedEval implements protocol.RoundSynchronization.FinishedEval.
func (None[P]) FinishedEval(ctx context.Context, pool P,
	sess protocol.Session) error {
	return nil
}
