//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"fmt"

	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/protocol"
	"github.com/ArrowSides/fresco/roundsync"
)

var (
	_ protocol.Suite[*ResourcePool] = &Suite{}
)

// Suite is the SPDZ protocol suite over a prime field. Its
// preprocessed material comes from a DummySupplier seeded with the
// run seed that all parties share.
type Suite struct {
	mod    *field.Modulus
	config *env.Config
}

// NewSuite creates a new suite over the field mod.
func NewSuite(mod *field.Modulus, config *env.Config) *Suite {
	return &Suite{
		mod:    mod,
		config: config,
	}
}

// Modulus returns the field modulus of the suite.
func (s *Suite) Modulus() *field.Modulus {
	return s.mod
}

// NewRoundSynchronization implements
// protocol.Suite.NewRoundSynchronization. The returned
// synchronization runs the MAC check.
func (s *Suite) NewRoundSynchronization() protocol.RoundSynchronization[*ResourcePool] {
	return roundsync.New[*ResourcePool](MacCheck, s.config)
}

// NewResourcePool implements protocol.Suite.NewResourcePool.
func (s *Suite) NewResourcePool(partyID, numParties int, seed []byte) (
	*ResourcePool, error) {

	if numParties < 1 || partyID < 1 || partyID > numParties {
		return nil, protocol.Errorf(protocol.KindConstruction, "pool",
			"invalid party %d of %d", partyID, numParties)
	}
	if len(seed) == 0 {
		return nil, protocol.Errorf(protocol.KindConstruction, "pool",
			"empty seed")
	}
	supplier, err := NewDummySupplier(s.mod, partyID, numParties, seed)
	if err != nil {
		return nil, protocol.Wrap(protocol.KindConstruction, "pool",
			fmt.Errorf("supplier: %w", err))
	}
	return NewResourcePool(partyID, numParties, s.mod, supplier,
		s.config.GetRandom()), nil
}

// BatchSize implements protocol.Suite.BatchSize.
func (s *Suite) BatchSize() int {
	return s.config.GetBatchSize()
}
