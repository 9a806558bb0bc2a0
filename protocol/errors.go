//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal run failure.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindConstruction
	KindProtocol
	KindConsistency
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindConstruction:
		return "construction"
	case KindProtocol:
		return "protocol"
	case KindConsistency:
		return "consistency"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("{Kind %d}", int(k))
	}
}

var (
	// ErrUnresolved is reported when a deferred result is read before
	// its producer has finished.
	ErrUnresolved = errors.New("deferred result read before resolved")

	// ErrCheckFailed is reported when a consistency check over opened
	// values does not verify.
	ErrCheckFailed = errors.New("consistency check failed")
)

// Error is the terminal outcome of a failed run. It carries the
// failure category and the operation that detected it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if len(e.Op) == 0 {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new error of the argument kind.
func Errorf(kind Kind, op, format string, a ...interface{}) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  fmt.Errorf(format, a...),
	}
}

// Wrap wraps err into an error of the argument kind. If err already
// carries a kind, it is returned unchanged so that a failure is never
// reclassified on its way up.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// KindOf returns the kind of err or KindUnknown if err is not a
// categorized error.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}

// Recovered converts a recovered panic value into an error. Panics
// raised with an *Error keep their kind; everything else is reported
// with the argument kind.
func Recovered(kind Kind, op string, r interface{}) error {
	switch v := r.(type) {
	case *Error:
		return v
	case error:
		return Wrap(kind, op, v)
	default:
		return Errorf(kind, op, "%v", v)
	}
}
