//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"fmt"
	"io"
	"sort"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/drbg"
	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/protocol"
	"github.com/ArrowSides/fresco/roundsync"
)

// SeedSize is the size of the coin-tossing seed share in bytes.
const SeedSize = 32

var (
	_ roundsync.Checker[*ResourcePool] = MacCheck
)

// MacCheck drains the opened values of the pool and appends the
// batched MAC check over them to the builder b. The parties toss a
// common seed, derive random coefficients r_j from it, and each
// party computes
//
//	σ = Σ r_j·mac_j - α·Σ r_j·v_j
//
// from its MAC shares mac_j, its MAC key share α, and the opened
// values v_j. The σ values are exchanged with commitments and the
// check passes if they sum to zero.
func MacCheck(b *builder.Builder[*ResourcePool], pool *ResourcePool) (
	int, error) {

	records := pool.Store().Drain()
	if len(records) == 0 {
		return 0, nil
	}
	// Gates of a batch push their records concurrently. The records
	// of one gate are pushed together in a fixed order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Tag < records[j].Tag
	})

	seedShare := make([]byte, SeedSize)
	if _, err := io.ReadFull(pool.Rand(), seedShare); err != nil {
		return 0, err
	}
	coin, err := newCommitGate(pool.Rand(), seedShare)
	if err != nil {
		return 0, err
	}
	seeds := builder.Append[*ResourcePool, [][]byte](b, coin)

	sigmas := builder.Then(b, seeds,
		func(b *builder.Builder[*ResourcePool],
			seeds [][]byte) protocol.Deferred[[][]byte] {

			seed, err := combineSeeds(seeds)
			if err != nil {
				panic(err)
			}
			sigma, err := computeSigma(pool, records, seed)
			if err != nil {
				panic(err)
			}
			g, err := newCommitGate(pool.Rand(), sigma.Bytes())
			if err != nil {
				panic(err)
			}
			return builder.Append[*ResourcePool, [][]byte](b, g)
		})

	builder.Then(b, sigmas,
		func(b *builder.Builder[*ResourcePool],
			sigmas [][]byte) protocol.Deferred[bool] {

			return builder.Append[*ResourcePool, bool](b, &verifyGate{
				sigmas: sigmas,
				values: len(records),
			})
		})

	return len(records), nil
}

// combineSeeds computes the common seed from the parties' seed
// shares.
func combineSeeds(shares [][]byte) ([]byte, error) {
	seed := make([]byte, SeedSize)
	for idx, share := range shares {
		if len(share) != SeedSize {
			return nil, protocol.Errorf(protocol.KindProtocol, "mac check",
				"party %d: invalid seed share length %d", idx+1, len(share))
		}
		for i := range seed {
			seed[i] ^= share[i]
		}
	}
	return seed, nil
}

// computeSigma computes the party's σ over the opened records with
// coefficients derived from the seed.
func computeSigma(pool *ResourcePool, records []Opened,
	seed []byte) (field.Element, error) {

	mod := pool.Modulus()
	rand := drbg.New(seed)

	macs := mod.Zero()
	values := mod.Zero()
	for _, rec := range records {
		r, err := mod.Sample(rand)
		if err != nil {
			return field.Element{}, err
		}
		macs = macs.Add(r.Mul(rec.Share.MAC))
		values = values.Add(r.Mul(rec.Value))
	}
	return macs.Sub(pool.MacKeyShare().Mul(values)), nil
}

// verifyGate verifies that the parties' σ values sum to zero.
type verifyGate struct {
	sigmas [][]byte
	values int
	out    bool
}

func (g *verifyGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	sum := pool.Modulus().Zero()
	for idx, data := range g.sigmas {
		sigma, err := pool.Modulus().Decode(data)
		if err != nil {
			return protocol.Done, protocol.Wrap(protocol.KindProtocol,
				"mac check", fmt.Errorf("party %d: %w", idx+1, err))
		}
		sum = sum.Add(sigma)
	}
	if !sum.IsZero() {
		return protocol.Done, &protocol.Error{
			Kind: protocol.KindConsistency,
			Op:   "mac check",
			Err: fmt.Errorf("%d opened values: %w", g.values,
				protocol.ErrCheckFailed),
		}
	}
	g.out = true
	return protocol.Done, nil
}

func (g *verifyGate) Out() bool {
	return g.out
}
