//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package drbg implements a deterministic random bit generator. Two
// generators created from the same seed produce the same stream.
package drbg

import (
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// DRBG expands a seed into a ChaCha20 key stream. The seed is hashed
// into the cipher key so that seeds of any length can be used.
type DRBG struct {
	m      sync.Mutex
	cipher *chacha20.Cipher
}

// New creates a new generator from the seed.
func New(seed []byte) *DRBG {
	key := blake2b.Sum256(seed)
	var nonce [chacha20.NonceSize]byte

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		// The key and nonce sizes are fixed.
		panic(err)
	}
	return &DRBG{
		cipher: c,
	}
}

// Read implements io.Reader. It fills data with the next bytes of
// the key stream.
func (d *DRBG) Read(data []byte) (int, error) {
	for i := range data {
		data[i] = 0
	}
	d.m.Lock()
	d.cipher.XORKeyStream(data, data)
	d.m.Unlock()
	return len(data), nil
}
