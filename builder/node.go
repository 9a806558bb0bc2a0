//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package builder

import (
	"fmt"

	"github.com/ArrowSides/fresco/protocol"
)

// State defines the evaluation state of a gate node.
type State int

// Node states. A node is InProgress once it has run at least one
// round without finishing.
const (
	Pending State = iota
	InProgress
	Done
)

var stateNames = map[State]string{
	Pending:    "pending",
	InProgress: "in-progress",
	Done:       "done",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if ok {
		return name
	}
	return fmt.Sprintf("{State %d}", s)
}

// Node holds one native gate in the computation graph.
type Node[P protocol.ResourcePool] struct {
	Gate protocol.Gate[P]

	// Tag identifies the gate's messages in the session. It is
	// assigned when the node is first scheduled.
	Tag uint64

	state     State
	round     int
	scheduled bool
}

func (n *Node[P]) String() string {
	return fmt.Sprintf("%T#%d(%s, round %d)", n.Gate, n.Tag, n.state, n.round)
}

// State returns the node state.
func (n *Node[P]) State() State {
	return n.state
}

// Round returns the number of rounds the node has completed. It is
// also the round the node runs next.
func (n *Node[P]) Round() int {
	return n.round
}

// Advance runs the round of the node's gate. Each round runs exactly
// once: advancing the node for any other round than Round, or after
// the node is done, is a protocol error and the gate is not called.
func (n *Node[P]) Advance(round int, pool P, nw protocol.Network) error {
	if n.state == Done {
		return protocol.Errorf(protocol.KindProtocol, "advance",
			"gate %d advanced after done", n.Tag)
	}
	if round != n.round {
		return protocol.Errorf(protocol.KindProtocol, "advance",
			"gate %d advanced for round %d, expected %d",
			n.Tag, round, n.round)
	}
	status, err := n.Gate.Advance(round, pool, nw)
	if err != nil {
		return protocol.Wrap(protocol.KindProtocol, "advance", err)
	}
	n.round++
	if status == protocol.Done {
		n.state = Done
	} else {
		n.state = InProgress
	}
	return nil
}
