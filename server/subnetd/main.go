// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Usage:
//
//	subnetd --config-path=./config.yaml --config-path=./override.yaml

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iotexproject/iotex-subnet/config"
	"github.com/iotexproject/iotex-subnet/pkg/log"
	"github.com/iotexproject/iotex-subnet/pkg/probe"
	"github.com/iotexproject/iotex-subnet/server/itx"
)

var configPaths []string

var rootCmd = &cobra.Command{
	Use:   "subnetd",
	Short: "Finality and checkpoint engine of an IPC subnet node",
	Long: `subnetd tracks the finality of the parent chain, commits its side effects into the subnet,
and builds and signs the bottom-up checkpoints of the subnet.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringSliceVar(&configPaths, "config-path", nil, "config files, later ones override earlier ones")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.New(configPaths)
	if err != nil {
		return errors.Wrap(err, "failed to new config")
	}
	if err := log.InitLoggers(cfg.Log, cfg.SubLogs); err != nil {
		return errors.Wrap(err, "cannot config loggers")
	}

	svr, err := itx.NewServer(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}
	probeSvr := probe.New(cfg.System.HTTPStatsPort, probe.WithReadinessCheck(svr.ChainService().Ready))
	if err := probeSvr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start probe server")
	}
	log.L().Info("starting subnet node",
		zap.Uint64("chainID", cfg.Chain.ChainID),
		zap.Strings("route", cfg.Chain.Route))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return itx.StartServer(gctx, svr, probeSvr, cfg)
	})
	g.Go(func() error {
		<-gctx.Done()
		return probeSvr.Stop(context.Background())
	})
	return g.Wait()
}
