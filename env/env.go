//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package env implements global environment for the MPC system.
package env

import (
	"crypto/rand"
	"io"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArrowSides/fresco/metrics"
)

// Default values for the evaluation parameters.
const (
	DefaultBatchSize     = 4096
	DefaultOpenThreshold = 100000
	DefaultMaxFrameSize  = 64 * 1024 * 1024
)

// Config defines the global system configuration for the MPC system.
// It configures system operation for all MPC modules. Config must not
// be modified after being passed to any MPC module.  It is safe for
// concurrent use by multiple modules as they do not modify it.
type Config struct {
	Rand    io.Reader
	Logger  *zerolog.Logger
	Metrics metrics.Collector

	// BatchSize is the maximum number of gates evaluated in one
	// batch.
	BatchSize int

	// OpenThreshold is the number of pending opened values that
	// forces a consistency check after a batch.
	OpenThreshold int

	// Parallelism bounds the number of gates advanced concurrently
	// within a batch.
	Parallelism int

	// ReceiveTimeout aborts a run if a peer message does not arrive
	// in time. Zero disables the timeout.
	ReceiveTimeout time.Duration

	// MaxFrameSize limits the payload of one network message.
	MaxFrameSize int
}

// GetRandom returns the source of entropy for the local randomness
// of the resource pools and for the network nonces.
func (config *Config) GetRandom() io.Reader {
	if config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

// GetLogger returns the configured logger or a no-op logger.
func (config *Config) GetLogger() zerolog.Logger {
	if config.Logger != nil {
		return *config.Logger
	}
	return zerolog.Nop()
}

// GetMetrics returns the configured metrics collector.
func (config *Config) GetMetrics() metrics.Collector {
	if config.Metrics != nil {
		return config.Metrics
	}
	return metrics.NewNoopCollector()
}

// GetBatchSize returns the evaluation batch size.
func (config *Config) GetBatchSize() int {
	if config.BatchSize > 0 {
		return config.BatchSize
	}
	return DefaultBatchSize
}

// GetOpenThreshold returns the opened value threshold.
func (config *Config) GetOpenThreshold() int {
	if config.OpenThreshold > 0 {
		return config.OpenThreshold
	}
	return DefaultOpenThreshold
}

// GetParallelism returns the gate parallelism within a batch.
func (config *Config) GetParallelism() int {
	if config.Parallelism > 0 {
		return config.Parallelism
	}
	return runtime.NumCPU()
}

// GetMaxFrameSize returns the maximum network message size.
func (config *Config) GetMaxFrameSize() int {
	if config.MaxFrameSize > 0 {
		return config.MaxFrameSize
	}
	return DefaultMaxFrameSize
}

// Network defines the parties of a run and their network addresses.
type Network struct {
	// ID is the 1-based ID of this party.
	ID int

	// Parties maps party IDs to their listen addresses.
	Parties map[int]string

	// DialRetries bounds the number of connection attempts to a
	// peer.
	DialRetries uint64

	// DialDelay is the delay between connection attempts.
	DialDelay time.Duration
}

// NumParties returns the number of parties in the network.
func (nw *Network) NumParties() int {
	return len(nw.Parties)
}

// Addr returns this party's listen address.
func (nw *Network) Addr() string {
	return nw.Parties[nw.ID]
}

// GetDialRetries returns the number of connection attempts.
func (nw *Network) GetDialRetries() uint64 {
	if nw.DialRetries > 0 {
		return nw.DialRetries
	}
	return 20
}

// GetDialDelay returns the delay between connection attempts.
func (nw *Network) GetDialDelay() time.Duration {
	if nw.DialDelay > 0 {
		return nw.DialDelay
	}
	return 500 * time.Millisecond
}
