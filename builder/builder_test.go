//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package builder

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArrowSides/fresco/protocol"
)

type testPool struct{}

func (p *testPool) PartyID() int                        { return 1 }
func (p *testPool) NumParties() int                     { return 1 }
func (p *testPool) Rand() io.Reader                     { return nil }
func (p *testPool) OpenedValues() protocol.OpenedValues { return nil }

type trace struct {
	events []string
}

// valueGate produces its value after the given number of rounds and
// records its start and completion in the trace.
type valueGate struct {
	name   string
	value  int
	rounds int
	input  protocol.Deferred[int]
	trace  *trace
	out    int
}

func (g *valueGate) Advance(round int, pool *testPool, nw protocol.Network) (
	protocol.Status, error) {

	if round == 0 {
		g.trace.events = append(g.trace.events, "start "+g.name)
	}
	if round+1 < g.rounds {
		return protocol.InProgress, nil
	}
	g.out = g.value
	if g.input != nil {
		g.out += g.input.Out()
	}
	g.trace.events = append(g.trace.events, "done "+g.name)
	return protocol.Done, nil
}

func (g *valueGate) Out() int {
	return g.out
}

// drive evaluates the producer batch by batch without network. It
// returns the number of batches.
func drive(t *testing.T, p Producer[*testPool]) (int, error) {
	pool := new(testPool)
	var active []*Node[*testPool]
	var batches int
	for {
		var err error
		active, err = p.Next(1024, active)
		if err != nil {
			return batches, err
		}
		if len(active) == 0 {
			if p.Done() {
				return batches, nil
			}
			t.Fatalf("graph stalled")
		}
		batches++
		var next []*Node[*testPool]
		for _, n := range active {
			if err := n.Advance(n.Round(), pool, nil); err != nil {
				return batches, err
			}
			if n.State() != Done {
				next = append(next, n)
			}
		}
		active = next
	}
}

func TestSequential(t *testing.T) {
	tr := new(trace)
	b := NewSequential[*testPool]()

	a := Append[*testPool, int](b, &valueGate{
		name: "a", value: 1, rounds: 2, trace: tr,
	})
	c := Append[*testPool, int](b, &valueGate{
		name: "c", value: 2, rounds: 1, input: a, trace: tr,
	})

	p, err := b.Build()
	require.NoError(t, err)
	batches, err := drive(t, p)
	require.NoError(t, err)

	assert.Equal(t, 3, batches)
	assert.Equal(t, []string{"start a", "done a", "start c", "done c"},
		tr.events)
	assert.Equal(t, 3, c.Out())
}

func TestParallel(t *testing.T) {
	tr := new(trace)
	b := NewParallel[*testPool]()

	Append[*testPool, int](b, &valueGate{
		name: "a", value: 1, rounds: 2, trace: tr,
	})
	Append[*testPool, int](b, &valueGate{
		name: "b", value: 2, rounds: 1, trace: tr,
	})

	p, err := b.Build()
	require.NoError(t, err)
	batches, err := drive(t, p)
	require.NoError(t, err)

	assert.Equal(t, 2, batches)
	assert.Equal(t, []string{"start a", "start b", "done b", "done a"},
		tr.events)
}

func TestThen(t *testing.T) {
	tr := new(trace)
	b := NewSequential[*testPool]()

	var seen int
	out := Par(b, func(par *Builder[*testPool]) protocol.Deferred[int] {
		x := Append[*testPool, int](par, &valueGate{
			name: "x", value: 3, rounds: 2, trace: tr,
		})
		Append[*testPool, int](par, &valueGate{
			name: "y", value: 4, rounds: 1, trace: tr,
		})
		return Then(par, x,
			func(b *Builder[*testPool], v int) protocol.Deferred[int] {
				seen = v
				tr.events = append(tr.events, "then")
				return Append[*testPool, int](b, &valueGate{
					name: "z", value: v, rounds: 1, trace: tr,
				})
			})
	})

	p, err := b.Build()
	require.NoError(t, err)
	_, err = drive(t, p)
	require.NoError(t, err)

	assert.Equal(t, 3, seen)
	assert.Equal(t, 3, out.Out())
	assert.Equal(t, []string{
		"start x", "start y", "done y", "done x", "then", "start z", "done z",
	}, tr.events)
}

func TestCollect(t *testing.T) {
	tr := new(trace)
	b := NewSequential[*testPool]()

	mk := func(name string, v int) func(*Builder[*testPool]) protocol.Deferred[int] {
		return func(b *Builder[*testPool]) protocol.Deferred[int] {
			return Append[*testPool, int](b, &valueGate{
				name: name, value: v, rounds: 1, trace: tr,
			})
		}
	}
	all := Collect(b, mk("a", 1), mk("b", 2), mk("c", 3))
	sum := Then(b, all,
		func(b *Builder[*testPool], vs []int) protocol.Deferred[int] {
			var sum int
			for _, v := range vs {
				sum += v
			}
			return protocol.Value(sum)
		})

	p, err := b.Build()
	require.NoError(t, err)
	batches, err := drive(t, p)
	require.NoError(t, err)

	assert.Equal(t, 1, batches)
	assert.Equal(t, []int{1, 2, 3}, all.Out())
	assert.Equal(t, 6, sum.Out())
	assert.True(t, p.Done())
}

func TestEmptyBlocks(t *testing.T) {
	b := NewParallel[*testPool]()

	// The second block waits for the first that has no gates.
	first := Seq(b, func(b *Builder[*testPool]) protocol.Deferred[int] {
		return protocol.Value(1)
	})
	second := Then(b, first,
		func(b *Builder[*testPool], v int) protocol.Deferred[int] {
			return protocol.Value(v + 1)
		})
	third := Then(b, second,
		func(b *Builder[*testPool], v int) protocol.Deferred[int] {
			return protocol.Value(v + 1)
		})

	p, err := b.Build()
	require.NoError(t, err)
	batches, err := drive(t, p)
	require.NoError(t, err)
	assert.Equal(t, 0, batches)
	assert.Equal(t, 3, third.Out())
}

func TestUnresolved(t *testing.T) {
	tr := new(trace)
	b := NewSequential[*testPool]()

	x := Append[*testPool, int](b, &valueGate{
		name: "x", value: 1, rounds: 1, trace: tr,
	})
	assert.False(t, protocol.IsResolved(x))
	assert.Panics(t, func() {
		x.Out()
	})

	// Reading an unresolved value inside a block is a construction
	// error.
	par := NewParallel[*testPool]()
	y := Append[*testPool, int](par, &valueGate{
		name: "y", value: 1, rounds: 2, trace: tr,
	})
	Seq(par, func(b *Builder[*testPool]) protocol.Deferred[int] {
		return protocol.Value(y.Out())
	})
	p, err := par.Build()
	require.NoError(t, err)
	_, err = drive(t, p)
	require.Error(t, err)
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))
	assert.True(t, errors.Is(err, protocol.ErrUnresolved))
}

func TestConstructionErrors(t *testing.T) {
	// Nil gate.
	b := NewSequential[*testPool]()
	b.AppendGate(nil)
	_, err := b.Build()
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))

	// Attached twice.
	root := NewSequential[*testPool]()
	child := NewParallel[*testPool]()
	root.Attach(child)
	other := NewSequential[*testPool]()
	other.Attach(child)
	_, err = other.Build()
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))

	// Attached to itself.
	self := NewSequential[*testPool]()
	self.Attach(self)
	_, err = self.Build()
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))

	// Attached to a descendant.
	parent := NewSequential[*testPool]()
	desc := NewSequential[*testPool]()
	parent.Attach(desc)
	desc.Attach(parent)
	_, err = parent.Build()
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))

	// Errors of attached builders are reported by the root.
	root = NewSequential[*testPool]()
	child = NewSequential[*testPool]()
	root.Attach(child)
	child.AppendGate(nil)
	_, err = root.Build()
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))

	// Built twice.
	b = NewSequential[*testPool]()
	_, err = b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	assert.Equal(t, protocol.KindConstruction, protocol.KindOf(err))
}

func TestAttach(t *testing.T) {
	tr := new(trace)
	root := NewSequential[*testPool]()
	child := NewParallel[*testPool]()

	a := Append[*testPool, int](root, &valueGate{
		name: "a", value: 1, rounds: 1, trace: tr,
	})
	root.Attach(child)
	Append[*testPool, int](child, &valueGate{
		name: "b", value: 2, rounds: 1, input: a, trace: tr,
	})
	Append[*testPool, int](child, &valueGate{
		name: "c", value: 3, rounds: 1, input: a, trace: tr,
	})

	p, err := root.Build()
	require.NoError(t, err)
	batches, err := drive(t, p)
	require.NoError(t, err)
	assert.Equal(t, 2, batches)
	assert.Equal(t, []string{
		"done a", "start b", "done b", "start c", "done c",
	}, tr.events[1:])
}

func TestScheduledPending(t *testing.T) {
	tr := new(trace)
	n := &Node[*testPool]{
		Gate: &valueGate{
			name: "a", value: 1, rounds: 2, trace: tr,
		},
	}
	p := &nodeProducer[*testPool]{
		node: n,
	}

	// Scheduling doesn't run a round.
	out, err := p.Next(8, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, Pending, n.State())

	// A scheduled node is yielded once.
	out, err = p.Next(8, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	require.NoError(t, n.Advance(0, new(testPool), nil))
	assert.Equal(t, InProgress, n.State())
	require.NoError(t, n.Advance(1, new(testPool), nil))
	assert.Equal(t, Done, n.State())
	assert.True(t, p.Done())
}

func TestRoundIdempotence(t *testing.T) {
	tr := new(trace)
	g := &valueGate{
		name: "a", value: 1, rounds: 2, trace: tr,
	}
	n := &Node[*testPool]{
		Gate: g,
	}
	pool := new(testPool)

	assert.Equal(t, Pending, n.State())
	require.NoError(t, n.Advance(0, pool, nil))
	assert.Equal(t, InProgress, n.State())
	err := n.Advance(0, pool, nil)
	assert.Equal(t, protocol.KindProtocol, protocol.KindOf(err))
	require.NoError(t, n.Advance(1, pool, nil))
	assert.Equal(t, Done, n.State())

	err = n.Advance(2, pool, nil)
	assert.Equal(t, protocol.KindProtocol, protocol.KindOf(err))
	assert.Equal(t, []string{"start a", "done a"}, tr.events)
}
