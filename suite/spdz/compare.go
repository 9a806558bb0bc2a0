//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"math/big"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/protocol"
)

// Bits holds the shared bits of a value, least significant bit first.
type Bits = []protocol.Deferred[Share]

type pairFunc = func(b *builder.Builder[*ResourcePool]) protocol.Deferred[carryPair]

// carryPair holds the generate and propagate bits of a bit range in
// a binary addition. At most one of them is set.
type carryPair struct {
	g protocol.Deferred[Share]
	p protocol.Deferred[Share]
}

// SubFromKnown subtracts the shared value a from the public value c.
func (n *Numeric) SubFromKnown(c *big.Int,
	a protocol.Deferred[Share]) protocol.Deferred[Share] {

	return n.linear("sub from known", a, nil, c, false, opSubFromKnown)
}

// InputBits shares the bits of the private input v of the party
// owner. The bits are input in parallel and the result holds numBits
// shared bits, least significant bit first. The other parties call
// InputBits with a nil value.
func (n *Numeric) InputBits(v *big.Int, owner, numBits int) protocol.Deferred[Bits] {

	if numBits <= 0 {
		n.fail("invalid number of bits %d", numBits)
		return nil
	}
	if owner == n.pool.PartyID() {
		if v == nil {
			n.fail("missing input value of party %d", owner)
			return nil
		}
		if v.Sign() < 0 || v.BitLen() > numBits {
			n.fail("input %v does not fit in %d bits", v, numBits)
			return nil
		}
	}
	return builder.Par(n.b,
		func(par *builder.Builder[*ResourcePool]) protocol.Deferred[Bits] {
			num := NewNumeric(par, n.pool)
			bits := make(Bits, numBits)
			for i := range bits {
				var bit *big.Int
				if v != nil {
					bit = big.NewInt(int64(v.Bit(i)))
				}
				bits[i] = num.Input(bit, owner)
			}
			return protocol.Value(bits)
		})
}

// LessThanOpen computes the shared bit [a < y] for the public value
// a and the secret value y given as its shared bits. The value a is
// typically the result of an opening: the comparison is constructed
// once a is known, from the bits of a.
//
// The comparison computes the carry out of a + ^y + 1 which is set
// iff a >= y. The carry is combined from the generate and propagate
// bits of each bit position in a logarithmic number of levels.
func (n *Numeric) LessThanOpen(a protocol.Deferred[*big.Int],
	y protocol.Deferred[Bits]) protocol.Deferred[Share] {

	if a == nil || y == nil {
		n.fail("less than open: nil argument")
		return nil
	}
	return builder.Then(n.b, a,
		func(b *builder.Builder[*ResourcePool],
			av *big.Int) protocol.Deferred[Share] {

			return builder.Then(b, y,
				func(b *builder.Builder[*ResourcePool],
					bits Bits) protocol.Deferred[Share] {

					return NewNumeric(b, n.pool).lessThan(av, bits)
				})
		})
}

func (n *Numeric) lessThan(a *big.Int, bits Bits) protocol.Deferred[Share] {
	if len(bits) == 0 {
		n.fail("less than open: no bits")
		return nil
	}
	if a.Sign() < 0 {
		n.fail("less than open: negative value %v", a)
		return nil
	}
	if a.BitLen() > len(bits) {
		// y < 2^k <= a
		return n.Known(big.NewInt(0))
	}

	fs := make([]pairFunc, len(bits))
	for i, bit := range bits {
		set := a.Bit(i) == 1
		fs[i] = func(b *builder.Builder[*ResourcePool]) protocol.Deferred[carryPair] {

			num := NewNumeric(b, n.pool)
			neg := num.SubFromKnown(big.NewInt(1), bit)
			if set {
				return protocol.Value(carryPair{
					g: neg,
					p: bit,
				})
			}
			return protocol.Value(carryPair{
				g: num.Known(big.NewInt(0)),
				p: neg,
			})
		}
	}
	pairs := builder.Collect(n.b, fs...)

	carry := builder.Then(n.b, pairs,
		func(b *builder.Builder[*ResourcePool],
			pairs []carryPair) protocol.Deferred[carryPair] {

			return n.carry(b, pairs)
		})

	// With the carry in 1, the carry out is g + p.
	return builder.Then(n.b, carry,
		func(b *builder.Builder[*ResourcePool],
			c carryPair) protocol.Deferred[Share] {

			num := NewNumeric(b, n.pool)
			return num.SubFromKnown(big.NewInt(1), num.Add(c.g, c.p))
		})
}

// carry combines adjacent pairs until one pair covers all bits.
func (n *Numeric) carry(b *builder.Builder[*ResourcePool],
	pairs []carryPair) protocol.Deferred[carryPair] {

	if len(pairs) == 1 {
		return protocol.Value(pairs[0])
	}
	var fs []pairFunc
	for i := 0; i < len(pairs); i += 2 {
		lo := pairs[i]
		if i+1 == len(pairs) {
			fs = append(fs, func(b *builder.Builder[*ResourcePool]) protocol.Deferred[carryPair] {
				return protocol.Value(lo)
			})
			continue
		}
		hi := pairs[i+1]
		fs = append(fs, func(b *builder.Builder[*ResourcePool]) protocol.Deferred[carryPair] {

			num := NewNumeric(b, n.pool)
			t := num.Mult(hi.p, lo.g)
			return protocol.Value(carryPair{
				g: num.Add(hi.g, t),
				p: num.Mult(hi.p, lo.p),
			})
		})
	}
	next := builder.Collect(b, fs...)

	return builder.Then(b, next,
		func(b *builder.Builder[*ResourcePool],
			pairs []carryPair) protocol.Deferred[carryPair] {

			return n.carry(b, pairs)
		})
}
