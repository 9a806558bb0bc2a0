//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package protocol defines the contracts between the evaluation core
// and the protocol suites plugged into it: native gates, resource
// pools, the per-gate network, round synchronization, and the
// terminal error taxonomy.
package protocol

import (
	"context"
	"io"
)

// Status is the outcome of advancing a gate one round.
type Status int

// Gate statuses.
const (
	InProgress Status = iota
	Done
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in-progress"
	case Done:
		return "done"
	default:
		return "{Status}"
	}
}

// Gate is the unit of execution. Advance runs one network round of
// the gate. A gate may read its resolved inputs and send and receive
// at most one message exchange per round.
type Gate[P ResourcePool] interface {
	Advance(round int, pool P, nw Network) (Status, error)
}

// NativeGate is a gate that produces an output value.
type NativeGate[P ResourcePool, T any] interface {
	Gate[P]
	Deferred[T]
}

// RequiresCheck marks gates that reveal values to the caller. All
// pending opened values must be verified before such a gate runs and
// its own openings verified before it is reported done.
type RequiresCheck interface {
	RequiresCheck()
}

// NeedsCheck tells if the gate g is marked with RequiresCheck.
func NeedsCheck(g interface{}) bool {
	_, ok := g.(RequiresCheck)
	return ok
}

// ResourcePool holds the per-party, per-run state available to gates.
type ResourcePool interface {
	// PartyID returns the 1-based ID of this party.
	PartyID() int

	// NumParties returns the number of parties in the run.
	NumParties() int

	// Rand returns the party's local source of randomness.
	Rand() io.Reader

	// OpenedValues returns the opened-value store of the run.
	OpenedValues() OpenedValues
}

// OpenedValues is the view of the opened-value store the core needs
// for scheduling consistency checks.
type OpenedValues interface {
	Pending() int
	HasPending() bool
	Exceeds(threshold int) bool
}

// Network is the per-gate, per-round view of the session network.
// Messages are routed by gate so that gates of the same batch may
// send and receive in any order.
type Network interface {
	ID() int
	NumParties() int

	// Tag returns the tag of the gate. All parties see the same tag
	// for the same gate.
	Tag() uint64

	// Send enqueues data for the party to. It does not block on the
	// receiver.
	Send(to int, data []byte) error

	// Receive blocks until the next message from the party from is
	// available for this gate and round.
	Receive(from int) ([]byte, error)
}

// Session is the run-level network that the evaluator drives.
type Session interface {
	ID() int
	NumParties() int

	// NextTag allocates the next gate tag. Tags are allocated in the
	// same order by all parties.
	NextTag() uint64

	// Gate returns the network view for gate tag at round.
	Gate(ctx context.Context, tag uint64, round int) Network

	// Flush transmits all pending outgoing messages.
	Flush() error

	// Close closes all channels. It is idempotent.
	Close() error
}

// RoundSynchronization is the scheme-supplied hook that observes
// batch transitions and runs deferred consistency checks.
type RoundSynchronization[P ResourcePool] interface {
	BeforeBatch(ctx context.Context, batch []Gate[P], pool P,
		sess Session) error
	AfterBatch(ctx context.Context, gates int, pool P, sess Session) error
	FinishedEval(ctx context.Context, pool P, sess Session) error
}

// Suite is a secret-sharing protocol suite.
type Suite[P ResourcePool] interface {
	NewRoundSynchronization() RoundSynchronization[P]
	NewResourcePool(partyID, numParties int, seed []byte) (P, error)
	BatchSize() int
}

// Broadcast sends data to all other parties.
func Broadcast(nw Network, data []byte) error {
	for id := 1; id <= nw.NumParties(); id++ {
		if id == nw.ID() {
			continue
		}
		if err := nw.Send(id, data); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveAll receives one message from every other party. The result
// is indexed by party ID minus one; the slot of this party holds own.
func ReceiveAll(nw Network, own []byte) ([][]byte, error) {
	result := make([][]byte, nw.NumParties())
	for id := 1; id <= nw.NumParties(); id++ {
		if id == nw.ID() {
			result[id-1] = own
			continue
		}
		data, err := nw.Receive(id)
		if err != nil {
			return nil, err
		}
		result[id-1] = data
	}
	return result, nil
}
