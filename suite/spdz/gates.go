//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"bytes"
	"fmt"
	"math/big"

	"golang.org/x/crypto/blake2b"

	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/protocol"
)

var (
	_ protocol.NativeGate[*ResourcePool, Share]    = &knownGate{}
	_ protocol.NativeGate[*ResourcePool, Share]    = &linearGate{}
	_ protocol.NativeGate[*ResourcePool, Share]    = &inputGate{}
	_ protocol.NativeGate[*ResourcePool, Share]    = &multGate{}
	_ protocol.NativeGate[*ResourcePool, *big.Int] = &openGate{}
	_ protocol.RequiresCheck                       = &openGate{}
)

// knownGate shares a public value.
type knownGate struct {
	value field.Element
	out   Share
}

func (g *knownGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	g.out = KnownShare(g.value, pool.PartyID(), pool.MacKeyShare())
	return protocol.Done, nil
}

func (g *knownGate) Out() Share {
	return g.out
}

// linearGate computes a local linear function of its inputs.
type linearGate struct {
	name string
	a    protocol.Deferred[Share]
	b    protocol.Deferred[Share]
	c    field.Element
	op   func(pool *ResourcePool, a, b Share, c field.Element) Share
	out  Share
}

func (g *linearGate) String() string {
	return g.name
}

func (g *linearGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	var a, b Share
	a = g.a.Out()
	if g.b != nil {
		b = g.b.Out()
	}
	g.out = g.op(pool, a, b, g.c)
	return protocol.Done, nil
}

func (g *linearGate) Out() Share {
	return g.out
}

func opAdd(pool *ResourcePool, a, b Share, c field.Element) Share {
	return a.Add(b)
}

func opSub(pool *ResourcePool, a, b Share, c field.Element) Share {
	return a.Sub(b)
}

func opAddKnown(pool *ResourcePool, a, b Share, c field.Element) Share {
	return a.AddKnown(c, pool.PartyID(), pool.MacKeyShare())
}

func opMultKnown(pool *ResourcePool, a, b Share, c field.Element) Share {
	return a.MulKnown(c)
}

func opSubFromKnown(pool *ResourcePool, a, b Share, c field.Element) Share {
	return KnownShare(c, pool.PartyID(), pool.MacKeyShare()).Sub(a)
}

// inputGate shares the owner's private input. The owner broadcasts
// the input masked with a preprocessed random mask. In the second
// round all parties broadcast the digest of the masked value they
// received and verify that everybody saw the same value.
type inputGate struct {
	owner  int
	value  field.Element
	mask   InputMask
	masked field.Element
	out    Share
}

func (g *inputGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	switch round {
	case 0:
		if pool.PartyID() == g.owner {
			g.masked = g.value.Sub(g.mask.Value)
			err := protocol.Broadcast(nw, g.masked.Bytes())
			if err != nil {
				return protocol.InProgress, err
			}
			return protocol.InProgress, nil
		}
		data, err := nw.Receive(g.owner)
		if err != nil {
			return protocol.InProgress, err
		}
		g.masked, err = pool.Modulus().Decode(data)
		if err != nil {
			return protocol.InProgress, protocol.Wrap(protocol.KindProtocol,
				"input", err)
		}
		return protocol.InProgress, nil

	case 1:
		digest := blake2b.Sum256(g.masked.Bytes())
		if err := protocol.Broadcast(nw, digest[:]); err != nil {
			return protocol.InProgress, err
		}
		all, err := protocol.ReceiveAll(nw, digest[:])
		if err != nil {
			return protocol.InProgress, err
		}
		for idx, d := range all {
			if !bytes.Equal(d, digest[:]) {
				return protocol.Done, protocol.Errorf(
					protocol.KindConsistency, "input",
					"broadcast validation failed: party %d saw a different value",
					idx+1)
			}
		}
		g.out = g.mask.Mask.AddKnown(g.masked, pool.PartyID(),
			pool.MacKeyShare())
		return protocol.Done, nil

	default:
		return protocol.Done, fmt.Errorf("invalid round %d", round)
	}
}

func (g *inputGate) Out() Share {
	return g.out
}

// multGate multiplies two shared values with a preprocessed triple
// (a, b, c). The parties open e = x - a and d = y - b and compute
// the product share as c + e*b + d*a + e*d.
type multGate struct {
	x      protocol.Deferred[Share]
	y      protocol.Deferred[Share]
	triple Triple
	out    Share
}

func (g *multGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	es := g.x.Out().Sub(g.triple.A)
	ds := g.y.Out().Sub(g.triple.B)

	opened, err := openValues(pool, nw, es.Value, ds.Value)
	if err != nil {
		return protocol.InProgress, err
	}
	e := opened[0]
	d := opened[1]

	pool.Store().Push(Opened{
		Tag:   nw.Tag(),
		Share: es,
		Value: e,
	}, Opened{
		Tag:   nw.Tag(),
		Share: ds,
		Value: d,
	})

	g.out = g.triple.C.
		Add(g.triple.B.MulKnown(e)).
		Add(g.triple.A.MulKnown(d)).
		AddKnown(e.Mul(d), pool.PartyID(), pool.MacKeyShare())

	return protocol.Done, nil
}

func (g *multGate) Out() Share {
	return g.out
}

// openGate opens a shared value to all parties. The opened value is
// an output of the computation so it must not be released before
// the pending opened values have been checked.
type openGate struct {
	x   protocol.Deferred[Share]
	out *big.Int
}

func (g *openGate) RequiresCheck() {}

func (g *openGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	share := g.x.Out()
	opened, err := openValues(pool, nw, share.Value)
	if err != nil {
		return protocol.InProgress, err
	}
	pool.Store().Push(Opened{
		Tag:   nw.Tag(),
		Share: share,
		Value: opened[0],
	})
	g.out = opened[0].BigInt()

	return protocol.Done, nil
}

func (g *openGate) Out() *big.Int {
	return g.out
}

// openValues broadcasts the value shares and returns the opened
// values.
func openValues(pool *ResourcePool, nw protocol.Network,
	shares ...field.Element) ([]field.Element, error) {

	own := field.EncodeAll(shares...)
	if err := protocol.Broadcast(nw, own); err != nil {
		return nil, err
	}
	all, err := protocol.ReceiveAll(nw, own)
	if err != nil {
		return nil, err
	}
	result := make([]field.Element, len(shares))
	for idx := range result {
		result[idx] = pool.Modulus().Zero()
	}
	for idx, data := range all {
		values, err := pool.Modulus().DecodeAll(data)
		if err != nil {
			return nil, protocol.Wrap(protocol.KindProtocol, "open",
				fmt.Errorf("party %d: %w", idx+1, err))
		}
		if len(values) != len(shares) {
			return nil, protocol.Errorf(protocol.KindProtocol, "open",
				"party %d: got %d values, expected %d",
				idx+1, len(values), len(shares))
		}
		for i, v := range values {
			result[i] = result[i].Add(v)
		}
	}
	return result, nil
}
