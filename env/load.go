//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package env

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"
)

// Configuration keys. The same names are used for the command line
// flags bound into viper.
const (
	KeyID             = "id"
	KeyParties        = "parties"
	KeyBatchSize      = "batch-size"
	KeyOpenThreshold  = "open-threshold"
	KeyParallelism    = "parallelism"
	KeyReceiveTimeout = "receive-timeout"
	KeyMaxFrameSize   = "max-frame-size"
	KeyDialRetries    = "dial-retries"
	KeyDialDelay      = "dial-delay"
)

// Load reads the configuration file path. The file format is
// determined from the file suffix.
func Load(path string) (*Config, *Network, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadViper(v)
}

// LoadViper creates the configuration from the viper instance v.
func LoadViper(v *viper.Viper) (*Config, *Network, error) {
	config := &Config{
		BatchSize:      v.GetInt(KeyBatchSize),
		OpenThreshold:  v.GetInt(KeyOpenThreshold),
		Parallelism:    v.GetInt(KeyParallelism),
		ReceiveTimeout: v.GetDuration(KeyReceiveTimeout),
		MaxFrameSize:   v.GetInt(KeyMaxFrameSize),
	}
	if config.BatchSize < 0 || config.OpenThreshold < 0 ||
		config.Parallelism < 0 || config.MaxFrameSize < 0 {
		return nil, nil, fmt.Errorf("negative evaluation parameter")
	}

	nw := &Network{
		ID:          v.GetInt(KeyID),
		Parties:     make(map[int]string),
		DialRetries: v.GetUint64(KeyDialRetries),
		DialDelay:   v.GetDuration(KeyDialDelay),
	}
	for k, addr := range v.GetStringMapString(KeyParties) {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid party ID '%s': %w", k, err)
		}
		if id <= 0 {
			return nil, nil, fmt.Errorf("invalid party ID %d", id)
		}
		nw.Parties[id] = addr
	}
	if len(nw.Parties) > 0 {
		if err := nw.Validate(); err != nil {
			return nil, nil, err
		}
	}

	return config, nw, nil
}

// Validate checks that party IDs are contiguous from 1 and that this
// party is one of them.
func (nw *Network) Validate() error {
	if len(nw.Parties) < 2 {
		return fmt.Errorf("at least two parties required, got %d",
			len(nw.Parties))
	}
	for id := 1; id <= len(nw.Parties); id++ {
		if _, ok := nw.Parties[id]; !ok {
			return fmt.Errorf("party %d missing from %d parties",
				id, len(nw.Parties))
		}
	}
	if nw.ID < 1 || nw.ID > len(nw.Parties) {
		return fmt.Errorf("invalid party ID %d for %d parties",
			nw.ID, len(nw.Parties))
	}
	return nil
}
