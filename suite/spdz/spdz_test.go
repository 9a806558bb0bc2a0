//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/drbg"
	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/evaluator"
	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/p2p"
	"github.com/ArrowSides/fresco/protocol"
	"github.com/ArrowSides/fresco/roundsync"
)

var testSeed = []byte("spdz test seed")

type result[T any] struct {
	out  T
	pool *ResourcePool
	sync *roundsync.Synchronizer[*ResourcePool]
	err  error
}

// run evaluates the application with n parties connected with
// pipes.
func run[T any](t *testing.T, n int, config env.Config,
	f func(b *builder.Builder[*ResourcePool],
		pool *ResourcePool) protocol.Deferred[T],
	setup func(pool *ResourcePool)) []result[T] {

	mesh := p2p.PipeMesh(n)
	results := make([]result[T], n)

	var wg sync.WaitGroup
	for id := 1; id <= n; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r := &results[id-1]

			cfg := config
			cfg.Rand = drbg.New([]byte(fmt.Sprintf("party %d", id)))
			if cfg.ReceiveTimeout == 0 {
				cfg.ReceiveTimeout = 10 * time.Second
			}

			suite := NewSuite(field.P256(), &cfg)
			r.pool, r.err = suite.NewResourcePool(id, n, testSeed)
			if r.err != nil {
				return
			}
			if setup != nil {
				setup(r.pool)
			}
			sess, err := p2p.NewSession(id, mesh[id], &cfg)
			if err != nil {
				r.err = err
				return
			}

			b := builder.NewSequential[*ResourcePool]()
			out := f(b, r.pool)
			root, err := b.Build()
			if err != nil {
				r.err = err
				sess.Abort()
				return
			}
			r.sync = suite.NewRoundSynchronization().(*roundsync.Synchronizer[*ResourcePool])
			_, r.err = evaluator.New[*ResourcePool](r.sync, &cfg).Eval(
				context.Background(), root, r.pool, sess)
			if r.err != nil {
				sess.Abort()
				return
			}
			r.out = out.Out()
			r.err = sess.Close()
		}(id)
	}
	wg.Wait()

	return results
}

func input(pool *ResourcePool, owner int, v int64) *big.Int {
	if pool.PartyID() != owner {
		return nil
	}
	return big.NewInt(v)
}

func sumApp(b *builder.Builder[*ResourcePool],
	pool *ResourcePool) protocol.Deferred[*big.Int] {

	num := NewNumeric(b, pool)
	x := num.Input(input(pool, 1, 3), 1)
	y := num.Input(input(pool, 2, 4), 2)
	return num.Open(num.Add(x, y))
}

func TestAdd(t *testing.T) {
	results := run(t, 2, env.Config{}, sumApp, nil)
	for _, r := range results {
		require.NoError(t, r.err)
		assert.Equal(t, int64(7), r.out.Int64())

		// Every opened value was checked.
		assert.False(t, r.pool.Store().HasPending())
		assert.Equal(t, uint64(1), r.pool.Store().Drained())
		assert.Equal(t, 1, r.sync.Checks())
	}
}

func TestKnownConstants(t *testing.T) {
	f := func(b *builder.Builder[*ResourcePool],
		pool *ResourcePool) protocol.Deferred[*big.Int] {

		num := NewNumeric(b, pool)
		return num.Open(num.Add(num.Known(big.NewInt(3)),
			num.Known(big.NewInt(4))))
	}
	results := run(t, 2, env.Config{}, f, nil)
	for _, r := range results {
		require.NoError(t, r.err)
		assert.Equal(t, int64(7), r.out.Int64())
		assert.Equal(t, 0, r.pool.Store().Pending())
		assert.Equal(t, uint64(1), r.pool.Store().Drained())
	}
}

func TestArithmetic(t *testing.T) {
	// ((x*y + z)*3 + 2) - x + 10
	f := func(b *builder.Builder[*ResourcePool],
		pool *ResourcePool) protocol.Deferred[*big.Int] {

		num := NewNumeric(b, pool)
		x := num.Input(input(pool, 1, 5), 1)
		y := num.Input(input(pool, 2, 7), 2)
		z := num.Input(input(pool, 3, 11), 3)

		v := num.Add(num.Mult(x, y), z)
		v = num.AddKnown(num.MultKnown(v, big.NewInt(3)), big.NewInt(2))
		v = num.Sub(v, x)
		v = num.Add(v, num.Known(big.NewInt(10)))
		return num.Open(v)
	}
	results := run(t, 3, env.Config{}, f, nil)
	for _, r := range results {
		require.NoError(t, r.err)
		assert.Equal(t, int64(145), r.out.Int64())
		assert.False(t, r.pool.Store().HasPending())

		// Two values of the multiplication and the output.
		assert.Equal(t, uint64(3), r.pool.Store().Drained())
	}
}

func TestParallelMult(t *testing.T) {
	const count = 40

	f := func(b *builder.Builder[*ResourcePool],
		pool *ResourcePool) protocol.Deferred[[]*big.Int] {

		var fs []func(b *builder.Builder[*ResourcePool]) protocol.Deferred[*big.Int]
		for i := 0; i < count; i++ {
			i := i
			fs = append(fs, func(b *builder.Builder[*ResourcePool]) protocol.Deferred[*big.Int] {
				num := NewNumeric(b, pool)
				x := num.Input(input(pool, 1, int64(i)), 1)
				y := num.Input(input(pool, 2, int64(i+1)), 2)
				return num.Open(num.Mult(x, y))
			})
		}
		return builder.Collect(b, fs...)
	}
	// Gates of a batch run concurrently and push their opened values
	// in a different order on each party.
	results := run(t, 2, env.Config{
		BatchSize:     16,
		OpenThreshold: 10,
		Parallelism:   8,
	}, f, nil)
	for _, r := range results {
		require.NoError(t, r.err)
		require.Len(t, r.out, count)
		for i, v := range r.out {
			assert.Equal(t, int64(i*(i+1)), v.Int64())
		}
		assert.False(t, r.pool.Store().HasPending())
		assert.Equal(t, uint64(3*count), r.pool.Store().Drained())
		assert.Greater(t, r.sync.Checks(), 1)
	}
}

func TestThenOnOpenedValue(t *testing.T) {
	// The second input is scaled by the opened first input.
	f := func(b *builder.Builder[*ResourcePool],
		pool *ResourcePool) protocol.Deferred[*big.Int] {

		num := NewNumeric(b, pool)
		x := num.Open(num.Input(input(pool, 1, 6), 1))
		return builder.Then(b, x,
			func(b *builder.Builder[*ResourcePool],
				x *big.Int) protocol.Deferred[*big.Int] {

				num := NewNumeric(b, pool)
				y := num.Input(input(pool, 2, 7), 2)
				return num.Open(num.MultKnown(y, x))
			})
	}
	results := run(t, 2, env.Config{}, f, nil)
	for _, r := range results {
		require.NoError(t, r.err)
		assert.Equal(t, int64(42), r.out.Int64())
		assert.Equal(t, 2, r.sync.Checks())
	}
}

func lessThanApp(x, y int64, numBits int) func(
	b *builder.Builder[*ResourcePool],
	pool *ResourcePool) protocol.Deferred[*big.Int] {

	return func(b *builder.Builder[*ResourcePool],
		pool *ResourcePool) protocol.Deferred[*big.Int] {

		num := NewNumeric(b, pool)
		bits := num.InputBits(input(pool, 2, y), 2, numBits)
		a := num.Open(num.Input(input(pool, 1, x), 1))
		return num.Open(num.LessThanOpen(a, bits))
	}
}

func TestLessThanOpen(t *testing.T) {
	tests := []struct {
		x, y    int64
		numBits int
		n       int
		lt      int64
	}{
		{x: 0, y: 13, numBits: 8, n: 2, lt: 1},
		{x: 5, y: 13, numBits: 8, n: 2, lt: 1},
		{x: 12, y: 13, numBits: 8, n: 2, lt: 1},
		{x: 13, y: 13, numBits: 8, n: 2, lt: 0},
		{x: 14, y: 13, numBits: 8, n: 2, lt: 0},
		{x: 255, y: 13, numBits: 8, n: 2, lt: 0},
		{x: 254, y: 255, numBits: 8, n: 2, lt: 1},
		{x: 256, y: 255, numBits: 8, n: 2, lt: 0},
		{x: 0, y: 0, numBits: 1, n: 2, lt: 0},
		{x: 0, y: 1, numBits: 1, n: 2, lt: 1},
		{x: 3, y: 6, numBits: 3, n: 3, lt: 1},
		{x: 6, y: 3, numBits: 3, n: 3, lt: 0},
	}
	for _, test := range tests {
		name := fmt.Sprintf("%d<%d/%d", test.x, test.y, test.numBits)
		t.Run(name, func(t *testing.T) {
			results := run(t, test.n, env.Config{},
				lessThanApp(test.x, test.y, test.numBits), nil)
			for _, r := range results {
				require.NoError(t, r.err)
				assert.Equal(t, test.lt, r.out.Int64())
				assert.False(t, r.pool.Store().HasPending())
			}
		})
	}
}

func TestLessThanOpenErrors(t *testing.T) {
	pool := NewResourcePool(1, 2, field.P256(), nil, nil)
	b := builder.NewSequential[*ResourcePool]()
	num := NewNumeric(b, pool)

	assert.Panics(t, func() {
		num.InputBits(big.NewInt(1), 1, 0)
	})
	assert.Panics(t, func() {
		num.InputBits(big.NewInt(4), 1, 2)
	})
	assert.Panics(t, func() {
		num.InputBits(nil, 1, 2)
	})
	assert.Panics(t, func() {
		num.LessThanOpen(nil, nil)
	})
}

func TestCorruptedRecord(t *testing.T) {
	// Every party records an opened value that does not match its
	// shares.
	setup := func(pool *ResourcePool) {
		mod := pool.Modulus()
		pool.Store().Push(Opened{
			Share: KnownShare(mod.FromInt64(5), pool.PartyID(),
				pool.MacKeyShare()),
			Value: mod.FromInt64(6),
		})
	}
	// Every party detects the failure from its own check even though
	// the first party to fail aborts its connections.
	for _, n := range []int{2, 3} {
		for i := 0; i < 10; i++ {
			results := run(t, n, env.Config{}, sumApp, setup)
			for id, r := range results {
				require.Error(t, r.err, "party %d", id+1)
				assert.Equal(t, protocol.KindConsistency,
					protocol.KindOf(r.err), "party %d/%d: %v", id+1, n, r.err)
				assert.True(t, errors.Is(r.err, protocol.ErrCheckFailed))
				assert.Nil(t, r.out)
			}
		}
	}
}

func TestValidRecord(t *testing.T) {
	setup := func(pool *ResourcePool) {
		mod := pool.Modulus()
		pool.Store().Push(Opened{
			Share: KnownShare(mod.FromInt64(5), pool.PartyID(),
				pool.MacKeyShare()),
			Value: mod.FromInt64(5),
		})
	}
	results := run(t, 3, env.Config{}, sumApp, setup)
	for _, r := range results {
		require.NoError(t, r.err)
		assert.Equal(t, int64(7), r.out.Int64())
		assert.Equal(t, uint64(2), r.pool.Store().Drained())
	}
}

func TestMissingInput(t *testing.T) {
	f := func(b *builder.Builder[*ResourcePool],
		pool *ResourcePool) protocol.Deferred[*big.Int] {

		num := NewNumeric(b, pool)
		return num.Open(num.Input(nil, pool.PartyID()))
	}
	pool := NewResourcePool(1, 2, field.P256(), nil, nil)
	b := builder.NewSequential[*ResourcePool]()
	assert.Panics(t, func() {
		f(b, pool)
	})
}

func TestSupplier(t *testing.T) {
	const n = 3
	mod := field.P256()

	var suppliers []*DummySupplier
	alpha := mod.Zero()
	for id := 1; id <= n; id++ {
		s, err := NewDummySupplier(mod, id, n, testSeed)
		require.NoError(t, err)
		suppliers = append(suppliers, s)
		alpha = alpha.Add(s.MacKeyShare())
	}

	reconstruct := func(shares []Share) field.Element {
		value := mod.Zero()
		mac := mod.Zero()
		for _, s := range shares {
			value = value.Add(s.Value)
			mac = mac.Add(s.MAC)
		}
		assert.True(t, mac.Equal(alpha.Mul(value)), "invalid MAC")
		return value
	}

	for i := 0; i < 10; i++ {
		var as, bs, cs []Share
		for _, s := range suppliers {
			tr := s.NextTriple()
			as = append(as, tr.A)
			bs = append(bs, tr.B)
			cs = append(cs, tr.C)
		}
		a := reconstruct(as)
		b := reconstruct(bs)
		c := reconstruct(cs)
		assert.True(t, c.Equal(a.Mul(b)))

		var masks []Share
		var value field.Element
		for _, s := range suppliers {
			m := s.NextInputMask(2)
			masks = append(masks, m.Mask)
			if s.id == 2 {
				value = m.Value
			} else {
				assert.True(t, m.Value.IsZero())
			}
		}
		assert.True(t, reconstruct(masks).Equal(value))
	}
}

func TestShareArithmetic(t *testing.T) {
	mod := field.P256()
	s, err := NewDummySupplier(mod, 1, 1, testSeed)
	require.NoError(t, err)
	alpha := s.MacKeyShare()

	x := KnownShare(mod.FromInt64(10), 1, alpha)
	y := KnownShare(mod.FromInt64(4), 1, alpha)

	check := func(sh Share, expected int64) {
		assert.True(t, sh.Value.Equal(mod.FromInt64(expected)))
		assert.True(t, sh.MAC.Equal(alpha.Mul(sh.Value)))
	}
	check(x.Add(y), 14)
	check(x.Sub(y), 6)
	check(x.MulKnown(mod.FromInt64(3)), 30)
	check(x.AddKnown(mod.FromInt64(5), 1, alpha), 15)

	decoded, err := DecodeShare(mod, x.Bytes())
	require.NoError(t, err)
	check(decoded, 10)

	_, err = DecodeShare(mod, x.Value.Bytes())
	assert.Error(t, err)
}

func TestCommit(t *testing.T) {
	nonce := make([]byte, NonceSize)
	data := []byte("seed share")
	c := Commit(nonce, data)

	opening := append(append([]byte{}, nonce...), data...)
	out, err := VerifyOpening(c, opening)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	opening[len(opening)-1] ^= 1
	_, err = VerifyOpening(c, opening)
	assert.Equal(t, protocol.KindConsistency, protocol.KindOf(err))
	assert.ErrorIs(t, err, protocol.ErrCheckFailed)

	_, err = VerifyOpening(c, nonce[:10])
	assert.Equal(t, protocol.KindProtocol, protocol.KindOf(err))

	_, err = VerifyOpening(c[:5], opening)
	assert.Equal(t, protocol.KindProtocol, protocol.KindOf(err))
}

func TestSuite(t *testing.T) {
	suite := NewSuite(field.P256(), &env.Config{
		BatchSize: 128,
	})
	assert.Equal(t, 128, suite.BatchSize())

	_, err := suite.NewResourcePool(3, 2, testSeed)
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))
	_, err = suite.NewResourcePool(1, 2, nil)
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))

	pool, err := suite.NewResourcePool(2, 3, testSeed)
	require.NoError(t, err)
	assert.Equal(t, 2, pool.PartyID())
	assert.Equal(t, 3, pool.NumParties())
	assert.Equal(t, "P²", pool.String())
}
