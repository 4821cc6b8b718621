// Command indexer is the entrypoint: it wires the Chain Registry, Node
// Client, Store, Tracker, Block Assembler, Decoder, Backfill Coordinator,
// Tip Follower, and read-side HTTP server together and runs the three
// long-lived activities concurrently -- Backfill Coordinator, Tip
// Follower, HTTP server -- sharing the Tracker, Node Client, and Store
// handles.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/satschain/evm-indexer/assembler"
	"github.com/satschain/evm-indexer/backfill"
	"github.com/satschain/evm-indexer/chain"
	"github.com/satschain/evm-indexer/httpapi"
	"github.com/satschain/evm-indexer/indexerconfig"
	"github.com/satschain/evm-indexer/rpcclient"
	"github.com/satschain/evm-indexer/store/pgstore"
	"github.com/satschain/evm-indexer/tipfollower"
	"github.com/satschain/evm-indexer/tracker"
	"github.com/satschain/evm-indexer/xlog"
)

func main() {
	cfg := indexerconfig.Load()
	logger := xlog.Setup(xlog.Config{Debug: cfg.Debug, FilePrefix: "indexer", DirPath: cfg.LogDir})

	if _, ok := chain.Lookup(cfg.ChainID); !ok {
		logger.Warn("unregistered chain id, genesis allocations will be skipped", "chainID", cfg.ChainID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpcClient := rpcclient.New(rpcclient.Config{HTTPURL: cfg.RPCHTTPURL, WSURL: cfg.RPCWSURL}, logger)
	defer rpcClient.Close()

	st, err := pgstore.New(ctx, pgstore.Config{
		Host:     cfg.DBHost,
		Username: cfg.DBUsername,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	// Tracker warmup failure is non-fatal: it behaves as if indexing from
	// scratch, a documented operator-owned risk.
	tr, err := tracker.Load(ctx, st, cfg.ChainID)
	if err != nil {
		logger.Warn("tracker warmup query failed, starting from an empty indexed set", "err", err)
	} else {
		logger.Info("tracker warmed up", "indexed", tr.Len())
	}

	asm := assembler.New(rpcClient, cfg.ChainID, logger)

	// backfillDone carries the Backfill Coordinator's terminal signal:
	// nil for a clean bounded-backfill exit, non-nil for a fatal write
	// failure.
	backfillDone := make(chan error, 1)
	if cfg.NewBlocksOnly {
		logger.Info("NEW_BLOCKS_ONLY set, skipping backfill")
	} else {
		coordinator := backfill.New(backfill.Config{
			ChainID:    cfg.ChainID,
			StartBlock: cfg.StartBlock,
			EndBlock:   cfg.EndBlock,
			BatchSize:  cfg.BatchSize,
		}, rpcClient, asm, st, tr, logger)
		go func() { backfillDone <- coordinator.Run(ctx) }()
	}

	tipDone := make(chan error, 1)
	if cfg.FollowsTip() {
		follower := tipfollower.New(cfg.ChainID, rpcClient, asm, st, tr, logger)
		go func() { tipDone <- follower.Run(ctx) }()
	}

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.ExplorerServerHost, fmt.Sprintf("%d", cfg.ExplorerServerPort)),
		Handler: httpapi.New(st, cfg.ChainID, logger).Handler(),
	}
	go func() {
		logger.Info("read API listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("read API server stopped", "err", err)
		}
	}()

	select {
	case err := <-backfillDone:
		if err != nil {
			logger.Error("fatal: backfill write failure, aborting", "err", err)
			os.Exit(1)
		}
		logger.Info("bounded backfill complete, exiting")
		os.Exit(0)
	case err := <-tipDone:
		logger.Error("fatal: tip follower write failure, aborting", "err", err)
		os.Exit(1)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}
}
