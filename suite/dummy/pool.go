//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package dummy implements an insecure arithmetic protocol suite.
// Every party holds the plaintext of every value: inputs are
// broadcast in the clear and all operations are local. The suite
// exercises the runtime without cryptographic overhead and must
// never be used with private data.
package dummy

import (
	"io"

	"github.com/markkurossi/text/superscript"

	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/opened"
	"github.com/ArrowSides/fresco/protocol"
)

var (
	_ protocol.ResourcePool = &ResourcePool{}
)

// Opened is an opened value record.
type Opened struct {
	Tag   uint64
	Value field.Element
}

// ResourcePool holds the party's state of one run.
type ResourcePool struct {
	id    int
	n     int
	mod   *field.Modulus
	rand  io.Reader
	store *opened.Store[Opened]
}

// NewResourcePool creates a new resource pool for party id of n
// parties.
func NewResourcePool(id, n int, mod *field.Modulus,
	rand io.Reader) *ResourcePool {

	return &ResourcePool{
		id:    id,
		n:     n,
		mod:   mod,
		rand:  rand,
		store: opened.NewStore[Opened](),
	}
}

func (p *ResourcePool) String() string {
	return "P" + superscript.Itoa(p.id)
}

// PartyID implements protocol.ResourcePool.PartyID.
func (p *ResourcePool) PartyID() int {
	return p.id
}

// NumParties implements protocol.ResourcePool.NumParties.
func (p *ResourcePool) NumParties() int {
	return p.n
}

// Rand implements protocol.ResourcePool.Rand.
func (p *ResourcePool) Rand() io.Reader {
	return p.rand
}

// OpenedValues implements protocol.ResourcePool.OpenedValues.
func (p *ResourcePool) OpenedValues() protocol.OpenedValues {
	return p.store
}

// Store returns the opened value store.
func (p *ResourcePool) Store() *opened.Store[Opened] {
	return p.store
}

// Modulus returns the field modulus.
func (p *ResourcePool) Modulus() *field.Modulus {
	return p.mod
}
