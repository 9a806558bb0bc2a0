//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package field implements arithmetic in prime fields.
package field

import (
	"crypto/elliptic"
	"fmt"
	"io"
	"math/big"
)

// Modulus defines a prime field.
type Modulus struct {
	p       *big.Int
	byteLen int
}

// NewModulus creates a new modulus p. The modulus must be greater
// than one.
func NewModulus(p *big.Int) (*Modulus, error) {
	if p == nil || p.Cmp(big.NewInt(1)) <= 0 {
		return nil, fmt.Errorf("invalid modulus %v", p)
	}
	return &Modulus{
		p:       new(big.Int).Set(p),
		byteLen: (p.BitLen() + 7) / 8,
	}, nil
}

// P256 returns the modulus of the NIST P-256 base field.
func P256() *Modulus {
	m, err := NewModulus(elliptic.P256().Params().P)
	if err != nil {
		panic(err)
	}
	return m
}

// P returns the modulus value.
func (m *Modulus) P() *big.Int {
	return new(big.Int).Set(m.p)
}

// ByteLen returns the length of encoded field elements.
func (m *Modulus) ByteLen() int {
	return m.byteLen
}

func (m *Modulus) String() string {
	return fmt.Sprintf("F(%d bits)", m.p.BitLen())
}

// New creates a field element from v. The value is reduced modulo p.
func (m *Modulus) New(v *big.Int) Element {
	r := new(big.Int).Mod(v, m.p)
	return Element{
		v: r,
		m: m,
	}
}

// FromInt64 creates a field element from v.
func (m *Modulus) FromInt64(v int64) Element {
	return m.New(big.NewInt(v))
}

// Zero returns the zero element.
func (m *Modulus) Zero() Element {
	return Element{
		v: new(big.Int),
		m: m,
	}
}

// Sample reads a uniformly distributed field element from r. It
// reads 128 extra bits and reduces them so that the bias is
// negligible. The result is a deterministic function of the input
// bytes.
func (m *Modulus) Sample(r io.Reader) (Element, error) {
	buf := make([]byte, m.byteLen+16)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Element{}, err
	}
	return m.New(new(big.Int).SetBytes(buf)), nil
}

// Decode decodes a field element from its fixed-width encoding.
func (m *Modulus) Decode(data []byte) (Element, error) {
	if len(data) != m.byteLen {
		return Element{}, fmt.Errorf("invalid element length %d, expected %d",
			len(data), m.byteLen)
	}
	v := new(big.Int).SetBytes(data)
	if v.Cmp(m.p) >= 0 {
		return Element{}, fmt.Errorf("element out of range")
	}
	return Element{
		v: v,
		m: m,
	}, nil
}

// DecodeAll decodes a sequence of field elements.
func (m *Modulus) DecodeAll(data []byte) ([]Element, error) {
	if len(data)%m.byteLen != 0 {
		return nil, fmt.Errorf("invalid data length %d for %d byte elements",
			len(data), m.byteLen)
	}
	result := make([]Element, 0, len(data)/m.byteLen)
	for i := 0; i < len(data); i += m.byteLen {
		e, err := m.Decode(data[i : i+m.byteLen])
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// EncodeAll encodes the elements into a byte array.
func EncodeAll(elements ...Element) []byte {
	var result []byte
	for _, e := range elements {
		result = append(result, e.Bytes()...)
	}
	return result
}

// Element is an element of a prime field. Elements are immutable.
type Element struct {
	v *big.Int
	m *Modulus
}

// Modulus returns the element's modulus.
func (e Element) Modulus() *Modulus {
	return e.m
}

// Add returns e+o.
func (e Element) Add(o Element) Element {
	return e.m.New(new(big.Int).Add(e.v, o.v))
}

// Sub returns e-o.
func (e Element) Sub(o Element) Element {
	return e.m.New(new(big.Int).Sub(e.v, o.v))
}

// Mul returns e*o.
func (e Element) Mul(o Element) Element {
	return e.m.New(new(big.Int).Mul(e.v, o.v))
}

// Neg returns -e.
func (e Element) Neg() Element {
	return e.m.New(new(big.Int).Neg(e.v))
}

// Equal tests if e and o are equal.
func (e Element) Equal(o Element) bool {
	return e.v.Cmp(o.v) == 0
}

// IsZero tests if e is zero.
func (e Element) IsZero() bool {
	return e.v.Sign() == 0
}

// BigInt returns the element value in the range [0, p).
func (e Element) BigInt() *big.Int {
	return new(big.Int).Set(e.v)
}

// Bytes returns the fixed-width big-endian encoding of e.
func (e Element) Bytes() []byte {
	buf := make([]byte, e.m.byteLen)
	return e.v.FillBytes(buf)
}

func (e Element) String() string {
	if e.v == nil {
		return "<nil>"
	}
	return e.v.String()
}
