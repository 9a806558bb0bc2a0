//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Distance computes the distance between two parties' secret points
// without revealing the points.
//
//	distance --id 1 --parties 1=localhost:8001,2=localhost:8002 --x 1 --y 2
//	distance --id 2 --parties 1=localhost:8001,2=localhost:8002 --x 4 --y 6
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ArrowSides/fresco/engine"
	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/field"
	"github.com/ArrowSides/fresco/metrics"
	"github.com/ArrowSides/fresco/p2p"
	"github.com/ArrowSides/fresco/suite/spdz"
)

var (
	flagConfig  string
	flagX       int64
	flagY       int64
	flagSeed    string
	flagTiming  bool
	flagMetrics string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:          "distance",
	Short:        "Compute the distance between two secret points",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "configuration file")
	flags.Int(env.KeyID, 0, "party ID")
	flags.StringToString(env.KeyParties, nil,
		"party addresses as id=host:port")
	flags.Int(env.KeyBatchSize, 0, "maximum number of gates in a batch")
	flags.Int(env.KeyOpenThreshold, 0,
		"number of opened values triggering a consistency check")
	flags.Int(env.KeyParallelism, 0, "number of gate workers")
	flags.Duration(env.KeyReceiveTimeout, time.Minute, "receive timeout")
	flags.Int64Var(&flagX, "x", 0, "x coordinate of the point")
	flags.Int64Var(&flagY, "y", 0, "y coordinate of the point")
	flags.StringVar(&flagSeed, "seed", "fresco distance",
		"shared preprocessing seed (insecure dealer)")
	flags.BoolVar(&flagTiming, "timing", false, "print timing report")
	flags.StringVar(&flagMetrics, "metrics", "",
		"serve Prometheus metrics at address")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if len(flagConfig) > 0 {
		v.SetConfigFile(flagConfig)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", flagConfig, err)
		}
	}
	config, nw, err := env.LoadViper(v)
	if err != nil {
		return err
	}
	if len(nw.Parties) == 0 {
		return fmt.Errorf("no parties specified")
	}

	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}).Level(level).With().Timestamp().Logger()
	config.Logger = &log

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if len(flagMetrics) > 0 {
		reg := prometheus.NewRegistry()
		config.Metrics = metrics.NewPrometheus(reg)
		server := metrics.NewServer(log, flagMetrics, reg)
		server.Start()
		defer server.Shutdown(context.Background())
	}

	timing := engine.NewTiming()

	conns, err := p2p.Dial(ctx, nw, log)
	if err != nil {
		return err
	}
	timing.Sample("Connect", nil)

	sess, err := p2p.NewSession(nw.ID, conns, config)
	if err != nil {
		return err
	}
	suite := spdz.NewSuite(field.P256(), config)
	pool, err := suite.NewResourcePool(nw.ID, nw.NumParties(),
		[]byte(flagSeed))
	if err != nil {
		sess.Close()
		return err
	}

	result, err := engine.RunTimed[resourcePool, *big.Int](ctx, config, suite,
		Distance(big.NewInt(flagX), big.NewInt(flagY)), pool, sess, timing)
	if err != nil {
		log.Error().Err(err).Msg("computation failed")
		return err
	}
	if err := sess.Close(); err != nil {
		log.Warn().Err(err).Msg("close failed")
	}

	fmt.Printf("Result: squared distance %v, distance %v\n",
		result, new(big.Int).Sqrt(result))

	if flagTiming {
		timing.Print(os.Stdout, sess.Stats())
	}
	return nil
}
