//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/ArrowSides/fresco/protocol"
)

// NonceSize is the size of the commitment nonce in bytes.
const NonceSize = 32

var (
	_ protocol.NativeGate[*ResourcePool, [][]byte] = &commitGate{}
)

// Commit computes the commitment of data with nonce.
func Commit(nonce, data []byte) []byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	h.Write(nonce)
	h.Write(data)
	return h.Sum(nil)
}

// VerifyOpening verifies that the opening matches the commitment.
// The opening is the nonce followed by the committed data. It
// returns the committed data.
func VerifyOpening(commitment, opening []byte) ([]byte, error) {
	if len(commitment) != blake2b.Size256 {
		return nil, protocol.Errorf(protocol.KindProtocol, "commit",
			"invalid commitment length %d", len(commitment))
	}
	if len(opening) < NonceSize {
		return nil, protocol.Errorf(protocol.KindProtocol, "commit",
			"truncated opening: %d bytes", len(opening))
	}
	nonce := opening[:NonceSize]
	data := opening[NonceSize:]
	if !bytes.Equal(Commit(nonce, data), commitment) {
		return nil, &protocol.Error{
			Kind: protocol.KindConsistency,
			Op:   "commit",
			Err: fmt.Errorf("opening does not match commitment: %w",
				protocol.ErrCheckFailed),
		}
	}
	return data, nil
}

// commitGate broadcasts data so that no party can choose its value
// after seeing the others. In the first round the parties broadcast
// commitments of their values. In the second round they open the
// commitments. The output holds the values of all parties indexed
// by party ID minus one.
type commitGate struct {
	data        []byte
	nonce       []byte
	commitments [][]byte
	out         [][]byte
}

func newCommitGate(rand io.Reader, data []byte) (*commitGate, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand, nonce); err != nil {
		return nil, err
	}
	return &commitGate{
		data:  data,
		nonce: nonce,
	}, nil
}

func (g *commitGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	switch round {
	case 0:
		own := Commit(g.nonce, g.data)
		if err := protocol.Broadcast(nw, own); err != nil {
			return protocol.InProgress, err
		}
		all, err := protocol.ReceiveAll(nw, own)
		if err != nil {
			return protocol.InProgress, err
		}
		g.commitments = all
		return protocol.InProgress, nil

	case 1:
		own := make([]byte, 0, len(g.nonce)+len(g.data))
		own = append(own, g.nonce...)
		own = append(own, g.data...)
		if err := protocol.Broadcast(nw, own); err != nil {
			return protocol.InProgress, err
		}
		all, err := protocol.ReceiveAll(nw, own)
		if err != nil {
			return protocol.InProgress, err
		}
		g.out = make([][]byte, len(all))
		for idx, opening := range all {
			data, err := VerifyOpening(g.commitments[idx], opening)
			if err != nil {
				return protocol.Done,
					protocol.Wrap(protocol.KindProtocol, "commit",
						fmt.Errorf("party %d: %w", idx+1, err))
			}
			g.out[idx] = data
		}
		return protocol.Done, nil

	default:
		return protocol.Done, fmt.Errorf("invalid round %d", round)
	}
}

func (g *commitGate) Out() [][]byte {
	return g.out
}
