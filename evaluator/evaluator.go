//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package evaluator implements the batched evaluation of computation
// graphs. The evaluator advances all ready gates one round per batch,
// flushes the network between batches, and lets the round
// synchronization run consistency checks at batch boundaries.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/metrics"
	"github.com/ArrowSides/fresco/protocol"
)

// Stats contains evaluation statistics.
type Stats struct {
	// Batches is the number of evaluated batches.
	Batches int
	// Gates is the number of gates evaluated to completion.
	Gates int
	// Rounds is the number of gate rounds advanced.
	Rounds int
}

func (s Stats) String() string {
	return fmt.Sprintf("batches=%d, gates=%d, rounds=%d",
		s.Batches, s.Gates, s.Rounds)
}

// Add adds the argument stats to s.
func (s *Stats) Add(o Stats) {
	s.Batches += o.Batches
	s.Gates += o.Gates
	s.Rounds += o.Rounds
}

// Evaluator evaluates computation graphs.
type Evaluator[P protocol.ResourcePool] struct {
	sync        protocol.RoundSynchronization[P]
	batchSize   int
	parallelism int
	log         zerolog.Logger
	metrics     metrics.Collector
}

// New creates a new evaluator with the round synchronization rs.
func New[P protocol.ResourcePool](rs protocol.RoundSynchronization[P],
	config *env.Config) *Evaluator[P] {

	return &Evaluator[P]{
		sync:        rs,
		batchSize:   config.GetBatchSize(),
		parallelism: config.GetParallelism(),
		log: config.GetLogger().With().
			Str("component", "evaluator").Logger(),
		metrics: config.GetMetrics(),
	}
}

// BatchSize returns the maximum number of gates in a batch.
func (e *Evaluator[P]) BatchSize() int {
	return e.batchSize
}

// Eval evaluates the computation of the producer root. The gates of
// a batch run concurrently but every party schedules them in the
// same order and every gate sends before it receives, so the batch
// can't deadlock. Any error aborts the evaluation.
func (e *Evaluator[P]) Eval(ctx context.Context, root builder.Producer[P],
	pool P, sess protocol.Session) (Stats, error) {

	var stats Stats

	var wp *workerpool.WorkerPool
	if e.parallelism > 1 {
		wp = workerpool.New(e.parallelism)
		defer wp.Stop()
	}

	var active []*builder.Node[P]
	for {
		if err := ctx.Err(); err != nil {
			return stats, protocol.Wrap(protocol.KindTransport, "eval", err)
		}
		batch, err := root.Next(e.batchSize, active)
		if err != nil {
			return stats, protocol.Wrap(protocol.KindConstruction, "eval", err)
		}
		if len(batch) == 0 {
			if root.Done() {
				break
			}
			return stats, protocol.Errorf(protocol.KindConstruction, "eval",
				"computation stalled: no gate ready")
		}

		gates := make([]protocol.Gate[P], len(batch))
		for idx, n := range batch {
			if n.Tag == 0 {
				n.Tag = sess.NextTag()
			}
			gates[idx] = n.Gate
		}

		err = e.sync.BeforeBatch(ctx, gates, pool, sess)
		if err != nil {
			return stats, err
		}

		err = e.advance(ctx, wp, batch, pool, sess)
		if err != nil {
			e.log.Debug().Err(err).Int("batch", stats.Batches).
				Msg("batch failed")
			return stats, err
		}
		if err := sess.Flush(); err != nil {
			return stats, protocol.Wrap(protocol.KindTransport, "flush", err)
		}

		active = active[:0]
		var done int
		for _, n := range batch {
			if n.State() == builder.Done {
				done++
			} else {
				active = append(active, n)
			}
		}
		stats.Batches++
		stats.Rounds += len(batch)
		stats.Gates += done

		e.metrics.BatchEvaluated(len(batch))
		e.metrics.GatesCompleted(done)
		e.log.Debug().Int("batch", stats.Batches).Int("gates", len(batch)).
			Int("done", done).Msg("batch evaluated")

		err = e.sync.AfterBatch(ctx, len(batch), pool, sess)
		if err != nil {
			return stats, err
		}
	}

	if err := e.sync.FinishedEval(ctx, pool, sess); err != nil {
		return stats, err
	}
	return stats, nil
}

func (e *Evaluator[P]) advance(ctx context.Context, wp *workerpool.WorkerPool,
	batch []*builder.Node[P], pool P, sess protocol.Session) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if wp == nil || len(batch) == 1 {
		for _, n := range batch {
			if err := e.step(ctx, n, pool, sess); err != nil {
				return err
			}
		}
		return nil
	}

	// The worker pool runs the gates in submission order.
	var wg sync.WaitGroup
	errs := make([]error, len(batch))
	for idx, n := range batch {
		wg.Add(1)
		wp.Submit(func() {
			defer wg.Done()
			err := e.step(ctx, n, pool, sess)
			if err != nil {
				errs[idx] = err
				cancel()
			}
		})
	}
	wg.Wait()

	return firstError(errs)
}

func (e *Evaluator[P]) step(ctx context.Context, n *builder.Node[P], pool P,
	sess protocol.Session) (err error) {

	defer func() {
		if r := recover(); r != nil {
			err = protocol.Recovered(protocol.KindProtocol, "advance", r)
		}
	}()
	round := n.Round()
	return n.Advance(round, pool, sess.Gate(ctx, n.Tag, round))
}

// firstError returns the first error that is not caused by the batch
// cancellation.
func firstError(errs []error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
		if canceled == nil {
			canceled = err
		}
	}
	return canceled
}
