//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"github.com/ArrowSides/fresco/drbg"
	"github.com/ArrowSides/fresco/field"
)

// Triple is a party's share of a multiplication triple (a, b, c)
// where c = a*b.
type Triple struct {
	A Share
	B Share
	C Share
}

// InputMask is a party's share of a random input mask r. The owner
// of the input also learns the mask value.
type InputMask struct {
	Mask  Share
	Value field.Element
}

// Supplier provides the preprocessed material of the online phase.
// All parties must draw material in the same order.
type Supplier interface {
	MacKeyShare() field.Element
	NextTriple() Triple
	NextInputMask(owner int) InputMask
}

// DummySupplier is a trusted dealer simulated by every party from a
// shared seed. Each party computes the shares of all parties and
// keeps its own. It is intended for testing and demonstration only:
// anyone knowing the seed knows all secrets.
type DummySupplier struct {
	mod   *field.Modulus
	id    int
	n     int
	rand  *drbg.DRBG
	alpha field.Element
	keys  []field.Element
}

// NewDummySupplier creates a new dummy supplier for party id of n
// parties from the shared seed.
func NewDummySupplier(mod *field.Modulus, id, n int,
	seed []byte) (*DummySupplier, error) {

	s := &DummySupplier{
		mod:   mod,
		id:    id,
		n:     n,
		rand:  drbg.New(seed),
		alpha: mod.Zero(),
	}
	for i := 0; i < n; i++ {
		k, err := mod.Sample(s.rand)
		if err != nil {
			return nil, err
		}
		s.keys = append(s.keys, k)
		s.alpha = s.alpha.Add(k)
	}
	return s, nil
}

func (s *DummySupplier) sample() field.Element {
	e, err := s.mod.Sample(s.rand)
	if err != nil {
		// The generator never fails.
		panic(err)
	}
	return e
}

// share splits v into authenticated shares and returns this party's
// share.
func (s *DummySupplier) share(v field.Element) Share {
	mac := s.alpha.Mul(v)

	var result Share
	valueSum := s.mod.Zero()
	macSum := s.mod.Zero()
	for i := 1; i <= s.n; i++ {
		var sh Share
		if i < s.n {
			sh = Share{
				Value: s.sample(),
				MAC:   s.sample(),
			}
			valueSum = valueSum.Add(sh.Value)
			macSum = macSum.Add(sh.MAC)
		} else {
			sh = Share{
				Value: v.Sub(valueSum),
				MAC:   mac.Sub(macSum),
			}
		}
		if i == s.id {
			result = sh
		}
	}
	return result
}

// MacKeyShare implements Supplier.MacKeyShare.
func (s *DummySupplier) MacKeyShare() field.Element {
	return s.keys[s.id-1]
}

// NextTriple implements Supplier.NextTriple.
func (s *DummySupplier) NextTriple() Triple {
	a := s.sample()
	b := s.sample()
	return Triple{
		A: s.share(a),
		B: s.share(b),
		C: s.share(a.Mul(b)),
	}
}

// NextInputMask implements Supplier.NextInputMask.
func (s *DummySupplier) NextInputMask(owner int) InputMask {
	r := s.sample()
	mask := InputMask{
		Mask:  s.share(r),
		Value: s.mod.Zero(),
	}
	if owner == s.id {
		mask.Value = r
	}
	return mask
}
