//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"math/big"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/engine"
	"github.com/ArrowSides/fresco/protocol"
	"github.com/ArrowSides/fresco/suite/spdz"
)

type resourcePool = *spdz.ResourcePool

// Distance computes the squared Euclidean distance between the points
// of parties 1 and 2. The point (x, y) is this party's input; it is
// ignored by the other parties.
func Distance(x, y *big.Int) engine.Application[resourcePool, *big.Int] {
	return func(b *builder.Builder[resourcePool],
		p resourcePool) protocol.Deferred[*big.Int] {

		input := func(v *big.Int, owner int) func(
			b *builder.Builder[resourcePool]) protocol.Deferred[spdz.Share] {

			return func(b *builder.Builder[resourcePool]) protocol.Deferred[spdz.Share] {
				value := v
				if p.PartyID() != owner {
					value = nil
				}
				return spdz.NewNumeric(b, p).Input(value, owner)
			}
		}
		inputs := builder.Collect(b,
			input(x, 1), input(y, 1),
			input(x, 2), input(y, 2))

		return builder.Then(b, inputs,
			func(b *builder.Builder[resourcePool],
				in []spdz.Share) protocol.Deferred[*big.Int] {

				square := func(a, c spdz.Share) func(
					b *builder.Builder[resourcePool]) protocol.Deferred[spdz.Share] {

					return func(b *builder.Builder[resourcePool]) protocol.Deferred[spdz.Share] {
						num := spdz.NewNumeric(b, p)
						d := num.Sub(protocol.Value(a), protocol.Value(c))
						return num.Mult(d, d)
					}
				}
				squares := builder.Collect(b,
					square(in[0], in[2]), square(in[1], in[3]))

				return builder.Then(b, squares,
					func(b *builder.Builder[resourcePool],
						sq []spdz.Share) protocol.Deferred[*big.Int] {

						num := spdz.NewNumeric(b, p)
						return num.Open(num.Add(
							protocol.Value(sq[0]), protocol.Value(sq[1])))
					})
			})
	}
}
