//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package dummy

import (
	"fmt"
	"math/big"

	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/protocol"
)

var (
	_ protocol.NativeGate[*ResourcePool, field.Element] = &knownGate{}
	_ protocol.NativeGate[*ResourcePool, field.Element] = &inputGate{}
	_ protocol.NativeGate[*ResourcePool, field.Element] = &localGate{}
	_ protocol.NativeGate[*ResourcePool, *big.Int]      = &openGate{}
	_ protocol.RequiresCheck                            = &openGate{}
)

type knownGate struct {
	value field.Element
}

func (g *knownGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {
	return protocol.Done, nil
}

func (g *knownGate) Out() field.Element {
	return g.value
}

// inputGate broadcasts the owner's input in the clear.
type inputGate struct {
	owner int
	value field.Element
}

func (g *inputGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	if pool.PartyID() == g.owner {
		err := protocol.Broadcast(nw, g.value.Bytes())
		if err != nil {
			return protocol.InProgress, err
		}
		return protocol.Done, nil
	}
	data, err := nw.Receive(g.owner)
	if err != nil {
		return protocol.InProgress, err
	}
	g.value, err = pool.Modulus().Decode(data)
	if err != nil {
		return protocol.InProgress, protocol.Wrap(protocol.KindProtocol,
			"input", fmt.Errorf("party %d: %w", g.owner, err))
	}
	return protocol.Done, nil
}

func (g *inputGate) Out() field.Element {
	return g.value
}

// localGate computes a function of its inputs without communication.
type localGate struct {
	a   protocol.Deferred[field.Element]
	b   protocol.Deferred[field.Element]
	op  func(a, b field.Element) field.Element
	out field.Element
}

func (g *localGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	b := pool.Modulus().Zero()
	if g.b != nil {
		b = g.b.Out()
	}
	g.out = g.op(g.a.Out(), b)
	return protocol.Done, nil
}

func (g *localGate) Out() field.Element {
	return g.out
}

// openGate releases a value. Nothing is exchanged but the value is
// recorded for the agreement check.
type openGate struct {
	x   protocol.Deferred[field.Element]
	out *big.Int
}

func (g *openGate) RequiresCheck() {}

func (g *openGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	v := g.x.Out()
	pool.Store().Push(Opened{
		Tag:   nw.Tag(),
		Value: v,
	})
	g.out = v.BigInt()
	return protocol.Done, nil
}

func (g *openGate) Out() *big.Int {
	return g.out
}
