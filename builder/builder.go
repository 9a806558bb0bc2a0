//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package builder implements the construction of computation graphs
// from native gates. Gates are composed sequentially or in parallel,
// and blocks of the graph can be constructed lazily when their
// inputs have been computed.
//
//	out := builder.Seq(root, func(b *builder.Builder[P]) protocol.Deferred[T] {
//	    x := builder.Append[P, T](b, gate)
//	    return builder.Then(b, x, func(b *builder.Builder[P], v T) protocol.Deferred[T] {
//	        ...
//	    })
//	})
package builder

import (
	"github.com/ArrowSides/fresco/protocol"
)

// Builder composes gates and sub-computations. A sequential builder
// runs its children one after another; a parallel builder runs them
// concurrently.
type Builder[P protocol.ResourcePool] struct {
	parallel bool
	children []Producer[P]
	parent   *Builder[P]
	attached bool
	built    bool
	progress *uint64
	err      error
}

// NewSequential creates a new sequential builder.
func NewSequential[P protocol.ResourcePool]() *Builder[P] {
	return &Builder[P]{
		progress: new(uint64),
	}
}

// NewParallel creates a new parallel builder.
func NewParallel[P protocol.ResourcePool]() *Builder[P] {
	return &Builder[P]{
		parallel: true,
		progress: new(uint64),
	}
}

func (b *Builder[P]) sub(parallel bool) *Builder[P] {
	return &Builder[P]{
		parallel: parallel,
		parent:   b,
		attached: true,
		progress: b.progress,
	}
}

// Parallel tells if the builder composes its children in parallel.
func (b *Builder[P]) Parallel() bool {
	return b.parallel
}

// Err returns the first construction error of the builder.
func (b *Builder[P]) Err() error {
	return b.err
}

func (b *Builder[P]) fail(format string, a ...interface{}) {
	if b.err == nil {
		b.err = protocol.Errorf(protocol.KindConstruction, "build",
			format, a...)
	}
}

// AppendGate appends the gate g to the builder. It returns the node
// holding the gate or nil if g is nil.
func (b *Builder[P]) AppendGate(g protocol.Gate[P]) *Node[P] {
	if g == nil {
		b.fail("nil gate")
		return nil
	}
	node := &Node[P]{
		Gate: g,
	}
	b.children = append(b.children, &nodeProducer[P]{
		node: node,
	})
	return node
}

// Attach attaches the builder child as a child of this builder. A
// builder can be attached only once and never to itself or to its
// descendants.
func (b *Builder[P]) Attach(child *Builder[P]) {
	if child == nil {
		b.fail("nil builder")
		return
	}
	for a := b; a != nil; a = a.parent {
		if a == child {
			b.fail("builder attached to itself")
			return
		}
	}
	if child.attached {
		b.fail("builder attached twice")
		return
	}
	child.attached = true
	child.parent = b
	child.progress = b.progress

	b.children = append(b.children, &lazyProducer[P]{
		build: func() (Producer[P], error) {
			*b.progress++
			return child.Build()
		},
		attached: child,
	})
}

// Build returns the producer of the builder's computation. All
// construction errors of the builder and its eagerly attached
// children are reported before any gate is evaluated.
func (b *Builder[P]) Build() (Producer[P], error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	b.built = true

	var p Producer[P]
	if b.parallel {
		p = &parProducer[P]{
			children: b.children,
		}
	} else {
		p = &seqProducer[P]{
			children: b.children,
		}
	}
	if b.parent != nil {
		return p, nil
	}
	return &rootProducer[P]{
		inner:    p,
		progress: b.progress,
	}, nil
}

func (b *Builder[P]) check() error {
	if b.built {
		return protocol.Errorf(protocol.KindConstruction, "build",
			"builder built twice")
	}
	if b.err != nil {
		return b.err
	}
	for _, c := range b.children {
		lp, ok := c.(*lazyProducer[P])
		if !ok || lp.attached == nil {
			continue
		}
		if err := lp.attached.check(); err != nil {
			return err
		}
	}
	return nil
}

// Append appends the native gate g to the builder b and returns its
// output.
func Append[P protocol.ResourcePool, T any](b *Builder[P],
	g protocol.NativeGate[P, T]) protocol.Deferred[T] {

	if g == nil {
		b.fail("nil gate")
		return &nodeResult[P, T]{}
	}
	return &nodeResult[P, T]{
		node: b.AppendGate(g),
		gate: g,
	}
}

// Seq appends a sequential block to the builder b. The function f is
// called to construct the block when the block is scheduled.
func Seq[P protocol.ResourcePool, T any](b *Builder[P],
	f func(b *Builder[P]) protocol.Deferred[T]) protocol.Deferred[T] {

	return block(b, false, nil, f)
}

// Par appends a parallel block to the builder b. The function f is
// called to construct the block when the block is scheduled.
func Par[P protocol.ResourcePool, T any](b *Builder[P],
	f func(b *Builder[P]) protocol.Deferred[T]) protocol.Deferred[T] {

	return block(b, true, nil, f)
}

// Then appends a sequential block that is constructed from the value
// of d. The function f is called once d has been computed.
func Then[P protocol.ResourcePool, A, B any](b *Builder[P],
	d protocol.Deferred[A],
	f func(b *Builder[P], v A) protocol.Deferred[B]) protocol.Deferred[B] {

	if d == nil {
		b.fail("nil dependency")
		return &blockResult[P, B]{}
	}
	return block(b, false,
		func() bool {
			return protocol.IsResolved(d)
		},
		func(sub *Builder[P]) protocol.Deferred[B] {
			return f(sub, d.Out())
		})
}

// Collect appends a parallel block of the argument functions. Each
// function constructs a sequential sub-block. The result holds the
// outputs of the sub-blocks in argument order.
func Collect[P protocol.ResourcePool, T any](b *Builder[P],
	fs ...func(b *Builder[P]) protocol.Deferred[T]) protocol.Deferred[[]T] {

	return Par(b, func(par *Builder[P]) protocol.Deferred[[]T] {
		results := make([]protocol.Deferred[T], len(fs))
		for idx, f := range fs {
			results[idx] = Seq(par, f)
		}
		return protocol.Func[[]T](func() []T {
			values := make([]T, len(results))
			for idx, r := range results {
				values[idx] = r.Out()
			}
			return values
		})
	})
}

func block[P protocol.ResourcePool, T any](b *Builder[P], parallel bool,
	ready func() bool,
	f func(b *Builder[P]) protocol.Deferred[T]) protocol.Deferred[T] {

	result := new(blockResult[P, T])
	if f == nil {
		b.fail("nil block function")
		return result
	}

	b.children = append(b.children, &lazyProducer[P]{
		ready: ready,
		build: func() (Producer[P], error) {
			*b.progress++

			sub := b.sub(parallel)
			var out protocol.Deferred[T]
			err := protect(func() {
				out = f(sub)
			})
			if err != nil {
				return nil, err
			}
			p, err := sub.Build()
			if err != nil {
				return nil, err
			}
			result.out = out
			result.producer = p
			return p, nil
		},
	})
	return result
}

// nodeResult is the output of a gate node.
type nodeResult[P protocol.ResourcePool, T any] struct {
	node *Node[P]
	gate protocol.NativeGate[P, T]
}

func (r *nodeResult[P, T]) Resolved() bool {
	return r.node != nil && r.node.state == Done
}

func (r *nodeResult[P, T]) Out() T {
	if !r.Resolved() {
		panic(&protocol.Error{
			Kind: protocol.KindConstruction,
			Op:   "out",
			Err:  protocol.ErrUnresolved,
		})
	}
	return r.gate.Out()
}

// blockResult is the output of a lazily constructed block.
type blockResult[P protocol.ResourcePool, T any] struct {
	out      protocol.Deferred[T]
	producer Producer[P]
}

func (r *blockResult[P, T]) Resolved() bool {
	return r.producer != nil && r.producer.Done() &&
		(r.out == nil || protocol.IsResolved(r.out))
}

func (r *blockResult[P, T]) Out() T {
	if !r.Resolved() {
		panic(&protocol.Error{
			Kind: protocol.KindConstruction,
			Op:   "out",
			Err:  protocol.ErrUnresolved,
		})
	}
	var zero T
	if r.out == nil {
		return zero
	}
	return r.out.Out()
}
