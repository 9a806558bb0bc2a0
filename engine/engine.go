//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package engine runs secure computations: it constructs the
// application's computation graph, evaluates it with the suite's
// round synchronization, and returns the application's output once
// all opened values have been checked.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/evaluator"
	"github.com/ArrowSides/fresco/p2p"
	"github.com/ArrowSides/fresco/protocol"
)

// Application constructs a computation into the root builder b and
// returns its output.
type Application[P protocol.ResourcePool, T any] func(b *builder.Builder[P],
	pool P) protocol.Deferred[T]

type aborter interface {
	Abort() error
}

type statser interface {
	Stats() p2p.IOStats
}

// Run runs the application app with the pool and the session. The
// output is returned only after the final consistency check has
// passed. On error the session is closed and the error carries its
// protocol.Kind.
func Run[P protocol.ResourcePool, T any](ctx context.Context,
	config *env.Config, suite protocol.Suite[P], app Application[P, T],
	pool P, sess protocol.Session) (T, error) {

	return RunTimed(ctx, config, suite, app, pool, sess, nil)
}

// RunTimed runs the application like Run and records the phases of
// the run to timing. The timing can be nil.
func RunTimed[P protocol.ResourcePool, T any](ctx context.Context,
	config *env.Config, suite protocol.Suite[P], app Application[P, T],
	pool P, sess protocol.Session, timing *Timing) (result T, err error) {

	runID := uuid.New()
	log := config.GetLogger().With().
		Str("run", runID.String()).
		Int("party", pool.PartyID()).
		Logger()

	start := time.Now()
	log.Info().Int("parties", pool.NumParties()).Msg("run started")

	defer func() {
		if err == nil {
			log.Info().Dur("elapsed", time.Since(start)).Msg("run finished")
			return
		}
		err = protocol.Wrap(protocol.KindProtocol, "run", err)
		log.Warn().Err(err).Str("kind", protocol.KindOf(err).String()).
			Msg("run failed")

		if a, ok := sess.(aborter); ok {
			a.Abort()
		}
		if cerr := sess.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("session close failed")
		}
		var zero T
		result = zero
	}()

	if pool.PartyID() != sess.ID() || pool.NumParties() != sess.NumParties() {
		return result, protocol.Errorf(protocol.KindConstruction, "run",
			"pool party %d/%d does not match session party %d/%d",
			pool.PartyID(), pool.NumParties(), sess.ID(), sess.NumParties())
	}

	b := builder.NewSequential[P]()
	out, err := construct(b, pool, app)
	if err != nil {
		return result, err
	}
	root, err := b.Build()
	if err != nil {
		return result, err
	}
	if timing != nil {
		timing.Sample("Build", nil)
	}

	ev := evaluator.New[P](suite.NewRoundSynchronization(), config)
	stats, err := ev.Eval(ctx, root, pool, sess)
	if err != nil {
		return result, err
	}
	if timing != nil {
		var cols []string
		if s, ok := sess.(statser); ok {
			cols = append(cols, FileSize(s.Stats().Sum()).String())
		}
		timing.Sample("Eval", cols)
	}
	log.Debug().Str("stats", stats.String()).Msg("evaluation done")

	err = resolve(out, &result)
	return result, err
}

func construct[P protocol.ResourcePool, T any](b *builder.Builder[P], pool P,
	app Application[P, T]) (out protocol.Deferred[T], err error) {

	defer func() {
		if r := recover(); r != nil {
			err = protocol.Recovered(protocol.KindConstruction, "construct", r)
		}
	}()
	if app == nil {
		return nil, protocol.Errorf(protocol.KindConstruction, "construct",
			"nil application")
	}
	out = app(b, pool)
	if out == nil {
		return nil, protocol.Errorf(protocol.KindConstruction, "construct",
			"application returned no output")
	}
	return out, nil
}

func resolve[T any](out protocol.Deferred[T], result *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = protocol.Recovered(protocol.KindConstruction, "output", r)
		}
	}()
	*result = out.Out()
	return nil
}
