//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package protocol

// Deferred is a placeholder for a value that becomes available once
// its producing gate or block has finished.
type Deferred[T any] interface {
	Out() T
}

// Resolvable is implemented by deferred values that can tell if they
// have been resolved.
type Resolvable interface {
	Resolved() bool
}

// IsResolved tells if the deferred value d can be read. Values that
// do not implement Resolvable are always readable.
func IsResolved(d interface{}) bool {
	r, ok := d.(Resolvable)
	if !ok {
		return true
	}
	return r.Resolved()
}

// Result is a single-assignment cell. It is resolved by exactly one
// producer and read by any number of consumers. Resolve and Out are
// ordered by batch boundaries and are not synchronized.
type Result[T any] struct {
	value    T
	resolved bool
}

// Resolve assigns the result value. Resolving a result twice panics.
func (r *Result[T]) Resolve(v T) {
	if r.resolved {
		panic(Errorf(KindConstruction, "resolve", "result resolved twice"))
	}
	r.value = v
	r.resolved = true
}

// Resolved implements Resolvable.
func (r *Result[T]) Resolved() bool {
	return r.resolved
}

// Out returns the resolved value. Reading an unresolved result panics
// with ErrUnresolved.
func (r *Result[T]) Out() T {
	if !r.resolved {
		panic(&Error{
			Kind: KindConstruction,
			Op:   "out",
			Err:  ErrUnresolved,
		})
	}
	return r.value
}

// Value returns a resolved deferred holding v.
func Value[T any](v T) Deferred[T] {
	r := new(Result[T])
	r.Resolve(v)
	return r
}

// Func adapts a function into a Deferred. The function is called on
// every Out.
type Func[T any] func() T

// Out implements Deferred.
func (f Func[T]) Out() T {
	return f()
}
