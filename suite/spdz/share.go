//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package spdz implements an arithmetic secret-sharing suite with
// MAC-authenticated additive shares. Each party holds a share of
// every value and a share of the value's MAC under the global MAC
// key. Opened values are verified in batches with a MAC check.
package spdz

import (
	"fmt"

	"github.com/ArrowSides/fresco/field"
)

// Share is a party's share of a secret value and of its MAC.
type Share struct {
	Value field.Element
	MAC   field.Element
}

func (s Share) String() string {
	return fmt.Sprintf("{%v, mac=%v}", s.Value, s.MAC)
}

// Add returns the share of the sum of s and o.
func (s Share) Add(o Share) Share {
	return Share{
		Value: s.Value.Add(o.Value),
		MAC:   s.MAC.Add(o.MAC),
	}
}

// Sub returns the share of the difference of s and o.
func (s Share) Sub(o Share) Share {
	return Share{
		Value: s.Value.Sub(o.Value),
		MAC:   s.MAC.Sub(o.MAC),
	}
}

// MulKnown returns the share of the product of s and the public
// value c.
func (s Share) MulKnown(c field.Element) Share {
	return Share{
		Value: s.Value.Mul(c),
		MAC:   s.MAC.Mul(c),
	}
}

// AddKnown returns the share of the sum of s and the public value
// c. The first party adds c to its value share and every party adds
// its share of the MAC of c.
func (s Share) AddKnown(c field.Element, partyID int,
	macKeyShare field.Element) Share {

	value := s.Value
	if partyID == 1 {
		value = value.Add(c)
	}
	return Share{
		Value: value,
		MAC:   s.MAC.Add(macKeyShare.Mul(c)),
	}
}

// KnownShare returns the party's share of the public value c.
func KnownShare(c field.Element, partyID int,
	macKeyShare field.Element) Share {

	zero := c.Modulus().Zero()
	return Share{
		Value: zero,
		MAC:   zero,
	}.AddKnown(c, partyID, macKeyShare)
}

// Bytes returns the encoding of the share: the value followed by the
// MAC.
func (s Share) Bytes() []byte {
	return field.EncodeAll(s.Value, s.MAC)
}

// DecodeShare decodes a share from its encoding.
func DecodeShare(m *field.Modulus, data []byte) (Share, error) {
	elements, err := m.DecodeAll(data)
	if err != nil {
		return Share{}, err
	}
	if len(elements) != 2 {
		return Share{}, fmt.Errorf("invalid share: %d elements", len(elements))
	}
	return Share{
		Value: elements[0],
		MAC:   elements[1],
	}, nil
}

// Opened records an opened value: the party's share that was
// revealed and the public value it opened to. The MAC check verifies
// the records in the order of their gate tags.
type Opened struct {
	Tag   uint64
	Share Share
	Value field.Element
}
