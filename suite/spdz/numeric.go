//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"math/big"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/protocol"
)

// Numeric appends arithmetic gates to a builder. Preprocessed
// material is drawn from the pool's supplier when the gates are
// appended, so all parties must construct their computations in the
// same order.
type Numeric struct {
	b    *builder.Builder[*ResourcePool]
	pool *ResourcePool
}

// NewNumeric creates a numeric interface for the builder b.
func NewNumeric(b *builder.Builder[*ResourcePool],
	pool *ResourcePool) *Numeric {

	return &Numeric{
		b:    b,
		pool: pool,
	}
}

// Builder returns the builder of the numeric interface.
func (n *Numeric) Builder() *builder.Builder[*ResourcePool] {
	return n.b
}

// Known shares the public value v.
func (n *Numeric) Known(v *big.Int) protocol.Deferred[Share] {
	return builder.Append[*ResourcePool, Share](n.b, &knownGate{
		value: n.pool.Modulus().New(v),
	})
}

// Input shares the private input v of the party owner. The other
// parties call Input with a nil value.
func (n *Numeric) Input(v *big.Int, owner int) protocol.Deferred[Share] {
	if owner < 1 || owner > n.pool.NumParties() {
		n.fail("invalid input owner %d", owner)
		return nil
	}
	g := &inputGate{
		owner: owner,
	}
	if owner == n.pool.PartyID() {
		if v == nil {
			n.fail("missing input value of party %d", owner)
			return nil
		}
		g.value = n.pool.Modulus().New(v)
	}
	g.mask = n.pool.Supplier().NextInputMask(owner)
	return builder.Append[*ResourcePool, Share](n.b, g)
}

// Add adds the shared values a and b.
func (n *Numeric) Add(a, b protocol.Deferred[Share]) protocol.Deferred[Share] {
	return n.linear("add", a, b, nil, true, opAdd)
}

// Sub subtracts the shared value b from a.
func (n *Numeric) Sub(a, b protocol.Deferred[Share]) protocol.Deferred[Share] {
	return n.linear("sub", a, b, nil, true, opSub)
}

// AddKnown adds the public value c to the shared value a.
func (n *Numeric) AddKnown(a protocol.Deferred[Share],
	c *big.Int) protocol.Deferred[Share] {

	return n.linear("add known", a, nil, c, false, opAddKnown)
}

// MultKnown multiplies the shared value a with the public value c.
func (n *Numeric) MultKnown(a protocol.Deferred[Share],
	c *big.Int) protocol.Deferred[Share] {

	return n.linear("mult known", a, nil, c, false, opMultKnown)
}

// Mult multiplies the shared values a and b.
func (n *Numeric) Mult(a, b protocol.Deferred[Share]) protocol.Deferred[Share] {
	if a == nil || b == nil {
		n.fail("mult: nil argument")
		return nil
	}
	return builder.Append[*ResourcePool, Share](n.b, &multGate{
		x:      a,
		y:      b,
		triple: n.pool.Supplier().NextTriple(),
	})
}

// Open opens the shared value a to all parties.
func (n *Numeric) Open(a protocol.Deferred[Share]) protocol.Deferred[*big.Int] {
	if a == nil {
		n.fail("open: nil argument")
		return nil
	}
	return builder.Append[*ResourcePool, *big.Int](n.b, &openGate{
		x: a,
	})
}

func (n *Numeric) linear(name string, a, b protocol.Deferred[Share],
	c *big.Int, binary bool,
	op func(pool *ResourcePool, a, b Share, c field.Element) Share) protocol.Deferred[Share] {

	if a == nil || (binary && b == nil) {
		n.fail("%s: nil argument", name)
		return nil
	}
	g := &linearGate{
		name: name,
		a:    a,
		b:    b,
		c:    n.pool.Modulus().Zero(),
		op:   op,
	}
	if c != nil {
		g.c = n.pool.Modulus().New(c)
	}
	return builder.Append[*ResourcePool, Share](n.b, g)
}

func (n *Numeric) fail(format string, a ...interface{}) {
	panic(protocol.Errorf(protocol.KindConstruction, "numeric", format, a...))
}
