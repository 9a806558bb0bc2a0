//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

// Iotest measures the throughput of the party network.
//
//	iotest --id 2 --parties 1=localhost:8001,2=localhost:8002 --size 100000000
//	iotest --id 1 --parties 1=localhost:8001,2=localhost:8002 --size 100000000
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ArrowSides/fresco/engine"
	"github.com/ArrowSides/fresco/env"
	"github.com/ArrowSides/fresco/p2p"
)

var (
	flagSize       int64
	flagFrame      int
	flagWindow     int
	flagCPUProfile string
)

var rootCmd = &cobra.Command{
	Use:          "iotest",
	Short:        "Measure network throughput between two parties",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.Int(env.KeyID, 0, "party ID")
	flags.StringToString(env.KeyParties, nil,
		"party addresses as id=host:port")
	flags.Int64Var(&flagSize, "size", 100*1000*1000, "bytes to transfer")
	flags.IntVar(&flagFrame, "frame", 64*1024, "frame size")
	flags.IntVar(&flagWindow, "window", 64, "frames per acknowledgement")
	flags.StringVar(&flagCPUProfile, "cpuprofile", "",
		"write cpu profile to `file`")
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
	config, nw, err := env.LoadViper(v)
	if err != nil {
		return err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()
	config.Logger = &log

	if len(flagCPUProfile) > 0 {
		f, err := os.Create(flagCPUProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx := context.Background()
	conns, err := p2p.Dial(ctx, nw, log)
	if err != nil {
		return err
	}
	sess, err := p2p.NewSession(nw.ID, conns, config)
	if err != nil {
		return err
	}

	start := time.Now()
	n, err := transfer(ctx, sess, flagSize, flagFrame, flagWindow)
	if err != nil {
		sess.Abort()
		sess.Close()
		return err
	}
	if err := sess.Close(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("Transferred: %v in %v (%v/s)\n", engine.FileSize(n), elapsed,
		engine.FileSize(float64(n)/elapsed.Seconds()))
	fmt.Printf("I/O: %v\n", engine.FileSize(sess.Stats().Sum()))
	return nil
}
