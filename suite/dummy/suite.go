//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package dummy

import (
	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/protocol"
	"github.com/ArrowSides/fresco/roundsync"
)

var (
	_ protocol.Suite[*ResourcePool] = &Suite{}
)

// Suite is the dummy arithmetic suite over a prime field.
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

// NewRoundSynchronization implements
// protocol.Suite.NewRoundSynchronization. The returned
// synchronization runs the agreement check.
func (s *Suite) NewRoundSynchronization() protocol.RoundSynchronization[*ResourcePool] {
	return roundsync.New[*ResourcePool](Check, s.config)
}

// NewResourcePool implements protocol.Suite.NewResourcePool. The
// suite has no preprocessing and ignores the seed.
func (s *Suite) NewResourcePool(partyID, numParties int, seed []byte) (
	*ResourcePool, error) {

	if numParties < 1 || partyID < 1 || partyID > numParties {
		return nil, protocol.Errorf(protocol.KindConstruction, "pool",
			"invalid party %d of %d", partyID, numParties)
	}
	return NewResourcePool(partyID, numParties, s.mod,
		s.config.GetRandom()), nil
}

// BatchSize implements protocol.Suite.BatchSize.
func (s *Suite) BatchSize() int {
	return s.config.GetBatchSize()
}
