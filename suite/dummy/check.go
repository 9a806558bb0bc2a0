//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package dummy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/ArrowSides/fresco/builder"
	"github.com/ArrowSides/fresco/protocol"
	"github.com/ArrowSides/fresco/roundsync"
)

var (
	_ roundsync.Checker[*ResourcePool]         = Check
	_ protocol.NativeGate[*ResourcePool, bool] = &agreeGate{}
)

// Check drains the opened values of the pool and appends a check
// that all parties opened the same values. Each party broadcasts a
// digest over its opened values in gate order and compares it with
// the digests of the other parties.
func Check(b *builder.Builder[*ResourcePool], pool *ResourcePool) (
	int, error) {

	records := pool.Store().Drain()
	if len(records) == 0 {
		return 0, nil
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Tag < records[j].Tag
	})

	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, err
	}
	var tag [8]byte
	for _, rec := range records {
		binary.BigEndian.PutUint64(tag[:], rec.Tag)
		h.Write(tag[:])
		h.Write(rec.Value.Bytes())
	}
	builder.Append[*ResourcePool, bool](b, &agreeGate{
		digest: h.Sum(nil),
		values: len(records),
	})
	return len(records), nil
}

// agreeGate verifies that all parties computed the same digest.
type agreeGate struct {
	digest []byte
	values int
	out    bool
}

func (g *agreeGate) Advance(round int, pool *ResourcePool,
	nw protocol.Network) (protocol.Status, error) {

	if err := protocol.Broadcast(nw, g.digest); err != nil {
		return protocol.InProgress, err
	}
	all, err := protocol.ReceiveAll(nw, g.digest)
	if err != nil {
		return protocol.InProgress, err
	}
	for idx, d := range all {
		if !bytes.Equal(d, g.digest) {
			return protocol.Done, &protocol.Error{
				Kind: protocol.KindConsistency,
				Op:   "agreement check",
				Err: fmt.Errorf("party %d: %d opened values: %w",
					idx+1, g.values, protocol.ErrCheckFailed),
			}
		}
	}
	g.out = true
	return protocol.Done, nil
}

func (g *agreeGate) Out() bool {
	return g.out
}
