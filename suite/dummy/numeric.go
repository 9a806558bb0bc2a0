//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package dummy

import (
	"math/big"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/protocol"
)

// Numeric appends arithmetic gates to a builder.
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

// Known returns the public value v.
func (n *Numeric) Known(v *big.Int) protocol.Deferred[field.Element] {
	return builder.Append[*ResourcePool, field.Element](n.b, &knownGate{
		value: n.pool.Modulus().New(v),
	})
}

// Input inputs the private value v of the party owner. The other
// parties call Input with a nil value.
func (n *Numeric) Input(v *big.Int,
	owner int) protocol.Deferred[field.Element] {

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
	return builder.Append[*ResourcePool, field.Element](n.b, g)
}

// Add adds a and b.
func (n *Numeric) Add(a,
	b protocol.Deferred[field.Element]) protocol.Deferred[field.Element] {

	return n.local("add", a, b, true, field.Element.Add)
}

// Sub subtracts b from a.
func (n *Numeric) Sub(a,
	b protocol.Deferred[field.Element]) protocol.Deferred[field.Element] {

	return n.local("sub", a, b, true, field.Element.Sub)
}

// Mult multiplies a and b.
func (n *Numeric) Mult(a,
	b protocol.Deferred[field.Element]) protocol.Deferred[field.Element] {

	return n.local("mult", a, b, true, field.Element.Mul)
}

// AddKnown adds the public value c to a.
func (n *Numeric) AddKnown(a protocol.Deferred[field.Element],
	c *big.Int) protocol.Deferred[field.Element] {

	k := n.pool.Modulus().New(c)
	return n.local("add known", a, nil, false,
		func(a, b field.Element) field.Element {
			return a.Add(k)
		})
}

// MultKnown multiplies a with the public value c.
func (n *Numeric) MultKnown(a protocol.Deferred[field.Element],
	c *big.Int) protocol.Deferred[field.Element] {

	k := n.pool.Modulus().New(c)
	return n.local("mult known", a, nil, false,
		func(a, b field.Element) field.Element {
			return a.Mul(k)
		})
}

// Open releases the value a as an output.
func (n *Numeric) Open(
	a protocol.Deferred[field.Element]) protocol.Deferred[*big.Int] {

	if a == nil {
		n.fail("open: nil argument")
		return nil
	}
	return builder.Append[*ResourcePool, *big.Int](n.b, &openGate{
		x: a,
	})
}

func (n *Numeric) local(name string, a, b protocol.Deferred[field.Element],
	binary bool,
	op func(a, b field.Element) field.Element) protocol.Deferred[field.Element] {

	if a == nil || (binary && b == nil) {
		n.fail("%s: nil argument", name)
		return nil
	}
	return builder.Append[*ResourcePool, field.Element](n.b, &localGate{
		a:  a,
		b:  b,
		op: op,
	})
}

func (n *Numeric) fail(format string, a ...interface{}) {
	panic(protocol.Errorf(protocol.KindConstruction, "numeric", format, a...))
}
