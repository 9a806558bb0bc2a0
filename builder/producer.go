//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package builder

import (
	"github.com/ArrowSides/fresco/protocol"
)

// Producer yields the gates of a computation in dependency order.
type Producer[P protocol.ResourcePool] interface {
	// Next appends gates that are ready to run to out until out
	// holds limit gates. Each gate is returned only once.
	Next(limit int, out []*Node[P]) ([]*Node[P], error)

	// Done tells if all gates of the producer are done.
	Done() bool
}

type nodeProducer[P protocol.ResourcePool] struct {
	node *Node[P]
}

func (p *nodeProducer[P]) Next(limit int, out []*Node[P]) (
	[]*Node[P], error) {

	if !p.node.scheduled && len(out) < limit {
		p.node.scheduled = true
		out = append(out, p.node)
	}
	return out, nil
}

func (p *nodeProducer[P]) Done() bool {
	return p.node.state == Done
}

// seqProducer runs its children one after another. A child starts
// only after all its predecessors are done.
type seqProducer[P protocol.ResourcePool] struct {
	children []Producer[P]
	idx      int
}

func (p *seqProducer[P]) skip() {
	for p.idx < len(p.children) && p.children[p.idx].Done() {
		p.children[p.idx] = nil
		p.idx++
	}
}

func (p *seqProducer[P]) Next(limit int, out []*Node[P]) (
	[]*Node[P], error) {

	for {
		p.skip()
		if p.idx >= len(p.children) {
			return out, nil
		}
		n := len(out)
		var err error
		out, err = p.children[p.idx].Next(limit, out)
		if err != nil {
			return nil, err
		}
		if len(out) > n || !p.children[p.idx].Done() {
			return out, nil
		}
		// The child completed without gates; continue with the next
		// one.
	}
}

func (p *seqProducer[P]) Done() bool {
	p.skip()
	return p.idx >= len(p.children)
}

// parProducer runs its children concurrently.
type parProducer[P protocol.ResourcePool] struct {
	children []Producer[P]
}

func (p *parProducer[P]) prune() {
	var live []Producer[P]
	for _, c := range p.children {
		if !c.Done() {
			live = append(live, c)
		}
	}
	p.children = live
}

func (p *parProducer[P]) Next(limit int, out []*Node[P]) (
	[]*Node[P], error) {

	p.prune()
	var err error
	for _, c := range p.children {
		if len(out) >= limit {
			break
		}
		out, err = c.Next(limit, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *parProducer[P]) Done() bool {
	p.prune()
	return len(p.children) == 0
}

// lazyProducer materializes its producer when it is first asked for
// gates and its ready condition holds.
type lazyProducer[P protocol.ResourcePool] struct {
	ready    func() bool
	build    func() (Producer[P], error)
	inner    Producer[P]
	attached *Builder[P]
}

func (p *lazyProducer[P]) Next(limit int, out []*Node[P]) (
	[]*Node[P], error) {

	if p.inner == nil {
		if p.ready != nil && !p.ready() {
			return out, nil
		}
		inner, err := p.build()
		if err != nil {
			return nil, err
		}
		p.inner = inner
	}
	return p.inner.Next(limit, out)
}

func (p *lazyProducer[P]) Done() bool {
	return p.inner != nil && p.inner.Done()
}

// rootProducer repeats Next over the graph as long as lazy blocks
// are materialized without yielding gates. A materialized block can
// resolve values that other blocks are waiting for.
type rootProducer[P protocol.ResourcePool] struct {
	inner    Producer[P]
	progress *uint64
}

func (p *rootProducer[P]) Next(limit int, out []*Node[P]) (
	[]*Node[P], error) {

	for {
		mark := *p.progress
		n := len(out)
		var err error
		out, err = p.inner.Next(limit, out)
		if err != nil || len(out) > n || len(out) >= limit ||
			p.inner.Done() || *p.progress == mark {
			return out, err
		}
	}
}

func (p *rootProducer[P]) Done() bool {
	return p.inner.Done()
}

func protect(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = protocol.Recovered(protocol.KindConstruction, "build", r)
		}
	}()
	f()
	return nil
}
