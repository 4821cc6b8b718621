// Package tipfollower implements the new-head follower: it subscribes to
// new-head notifications and feeds each one through the same
// fetch/decode/write path as the Backfill Coordinator, single-flight per
// block.
//
// Grounded on zk/syncer/l1_syncer.go's Run() goroutine shape: sleep a
// fixed duration and resubscribe whenever the upstream stream drops,
// rather than an exponential backoff, for this kind of "just keep
// watching" loop.
package tipfollower

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerwatch/log/v3"

	"github.com/satschain/evm-indexer/assembler"
	"github.com/satschain/evm-indexer/decoder"
	"github.com/satschain/evm-indexer/rpcclient"
	"github.com/satschain/evm-indexer/store"
	"github.com/satschain/evm-indexer/tracker"
)

const logPrefix = "tipfollower"

// resubscribeDelay is the fixed sleep-and-resubscribe interval.
const resubscribeDelay = 500 * time.Millisecond

// Follower drives one chain's new-head subscription.
type Follower struct {
	chainID   uint32
	client    rpcclient.Client
	assembler *assembler.Assembler
	st        store.Store
	tr        *tracker.Tracker
	logger    log.Logger
}

func New(chainID uint32, client rpcclient.Client, asm *assembler.Assembler, st store.Store, tr *tracker.Tracker, logger log.Logger) *Follower {
	return &Follower{chainID: chainID, client: client, assembler: asm, st: st, tr: tr, logger: logger}
}

// Run subscribes to new heads and processes each one until ctx is
// cancelled or a store write fails fatally -- store-insert failures abort
// the process regardless of which path triggered the write. Absent a
// fatal write, it never returns on its own; it runs until process exit.
func (f *Follower) Run(ctx context.Context) error {
	f.logger.Info(fmt.Sprintf("[%s] starting tip follower", logPrefix))
	for {
		if ctx.Err() != nil {
			return nil
		}
		fatal, err := f.followOnce(ctx)
		if fatal != nil {
			return fatal
		}
		if err != nil {
			f.logger.Warn(fmt.Sprintf("[%s] subscription dropped, resubscribing", logPrefix), "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}

// followOnce opens one subscription and drains it until it drops, ctx is
// cancelled, or a write fails fatally. The first return value is non-nil
// only for a fatal write failure; the second carries any non-fatal
// subscription-level error (drop, decode, closed stream).
func (f *Follower) followOnce(ctx context.Context) (fatal, err error) {
	heads, sub, err := f.client.SubscribeNewHeads(ctx)
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case err := <-sub.Err():
			return nil, err
		case hash, ok := <-heads:
			if !ok {
				return nil, fmt.Errorf("tipfollower: head stream closed")
			}
			if fatalErr := f.processHead(ctx, hash); fatalErr != nil {
				return fatalErr, nil
			}
		}
	}
}

// processHead resolves a head hash to a number and runs it through the
// same fetch_block -> decode -> write path as the Backfill Coordinator.
// RPC failures are logged and skipped -- the block will be swept up by
// the next backfill reconciliation pass regardless. A store write
// failure is fatal and is returned for Run to propagate.
func (f *Follower) processHead(ctx context.Context, hash rpcclient.Hash) error {
	number, err := f.client.BlockNumberByHash(ctx, hash)
	if err != nil {
		f.logger.Warn(fmt.Sprintf("[%s] failed to resolve head hash to number", logPrefix), "hash", hash, "err", err)
		return nil
	}

	fb, err := f.assembler.FetchBlock(ctx, number)
	if err != nil {
		f.logger.Warn(fmt.Sprintf("[%s] fetch_block error for new head", logPrefix), "number", number, "err", err)
		return nil
	}
	if fb == nil {
		f.logger.Debug(fmt.Sprintf("[%s] new head not yet assemblable, will retry via backfill", logPrefix), "number", number)
		return nil
	}

	var batch store.BatchPayload
	batch.Blocks = append(batch.Blocks, fb.Block)
	batch.Transactions = append(batch.Transactions, fb.Transactions...)
	batch.Logs = append(batch.Logs, fb.Logs...)
	batch.Traces = append(batch.Traces, fb.Traces...)
	batch.Contracts = append(batch.Contracts, fb.Contracts...)
	batch.Withdrawals = append(batch.Withdrawals, fb.Withdrawals...)

	decoded := decoder.DecodeLogs(fb.Logs)
	batch.ERC20Transfers = decoded.ERC20Transfers
	batch.ERC721Transfers = decoded.ERC721Transfers
	batch.ERC1155Transfers = decoded.ERC1155Transfers
	batch.DexTrades = decoded.DexTrades

	if err := store.WriteBatch(ctx, f.st, f.chainID, batch); err != nil {
		f.logger.Error(fmt.Sprintf("[%s] fatal: write failed for new head", logPrefix), "number", number, "err", err)
		return fmt.Errorf("tipfollower: %w", err)
	}
	if !fb.Block.IsUncle {
		f.tr.Insert(number)
	}
	f.logger.Info(fmt.Sprintf("[%s] indexed new head", logPrefix), "number", number)
	return nil
}
