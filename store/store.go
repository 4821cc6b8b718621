// Package store defines the columnar-store collaborator: a typed
// Insert/Query surface plus the "blocks last" batched-write ordering
// rule that is this system's central safety invariant.
//
// Grounded on original_source/src/db/mod.rs's store_items fan-out: nine
// per-table inserts launched concurrently (tokio::spawn/join_all there,
// golang.org/x/sync/errgroup here), a panic if any of them errors, and
// only then the blocks table insert. The ordering is kept; a failure is
// returned as an error instead of panicking, and this package generalizes
// the shape to a pluggable Store interface instead of one hardwired
// Postgres client.
package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/satschain/evm-indexer/model"
)

// Table names as persisted, one per entity.
const (
	TableBlocks           = "blocks"
	TableTransactions     = "transactions"
	TableLogs             = "logs"
	TableTraces           = "traces"
	TableContracts        = "contracts"
	TableWithdrawals      = "withdrawals"
	TableERC20Transfers   = "erc20_transfers"
	TableERC721Transfers  = "erc721_transfers"
	TableERC1155Transfers = "erc1155_transfers"
	TableDexTrades        = "dex_trades"
)

// BatchPayload is the fan-in of one or more blocks' worth of entities,
// handed to WriteBatch as a unit. Concatenation across blocks within a
// chunk happens before this struct is built (see package backfill).
type BatchPayload struct {
	Blocks           []model.Block
	Transactions     []model.Transaction
	Logs             []model.Log
	Traces           []model.Trace
	Contracts        []model.Contract
	Withdrawals      []model.Withdrawal
	ERC20Transfers   []model.ERC20Transfer
	ERC721Transfers  []model.ERC721Transfer
	ERC1155Transfers []model.ERC1155Transfer
	DexTrades        []model.DexTrade
}

// Empty reports whether the payload carries no rows at all, including no
// blocks.
func (b BatchPayload) Empty() bool {
	return len(b.Blocks) == 0 && len(b.Transactions) == 0 && len(b.Logs) == 0 &&
		len(b.Traces) == 0 && len(b.Contracts) == 0 && len(b.Withdrawals) == 0 &&
		len(b.ERC20Transfers) == 0 && len(b.ERC721Transfers) == 0 &&
		len(b.ERC1155Transfers) == 0 && len(b.DexTrades) == 0
}

// Stats is the aggregate the read API's /api/v2/stats endpoint reports.
type Stats struct {
	TotalBlocks       uint64
	TotalTransactions uint64
	TotalAddresses    uint64
	AverageBlockTime  float64
}

// Store is the columnar store's insert-and-query interface, generalized
// per-entity rather than per-untyped-row so callers never
// marshal/unmarshal through interface{}.
type Store interface {
	InsertBlocks(ctx context.Context, chainID uint32, rows []model.Block) error
	InsertTransactions(ctx context.Context, chainID uint32, rows []model.Transaction) error
	InsertLogs(ctx context.Context, chainID uint32, rows []model.Log) error
	InsertTraces(ctx context.Context, chainID uint32, rows []model.Trace) error
	InsertContracts(ctx context.Context, chainID uint32, rows []model.Contract) error
	InsertWithdrawals(ctx context.Context, chainID uint32, rows []model.Withdrawal) error
	InsertERC20Transfers(ctx context.Context, chainID uint32, rows []model.ERC20Transfer) error
	InsertERC721Transfers(ctx context.Context, chainID uint32, rows []model.ERC721Transfer) error
	InsertERC1155Transfers(ctx context.Context, chainID uint32, rows []model.ERC1155Transfer) error
	InsertDexTrades(ctx context.Context, chainID uint32, rows []model.DexTrade) error

	IndexedBlockNumbers(ctx context.Context, chainID uint32) ([]uint32, error)
	QueryBlocks(ctx context.Context, chainID uint32, limit int) ([]model.Block, error)
	QueryBlockByNumber(ctx context.Context, chainID uint32, number uint32) (*model.Block, error)
	QueryTransactions(ctx context.Context, chainID uint32, limit int) ([]model.Transaction, error)
	QueryTransactionByHash(ctx context.Context, chainID uint32, hash model.Hash) (*model.Transaction, error)
	QueryStats(ctx context.Context, chainID uint32) (Stats, error)

	Close()
}

// WriteBatch persists a BatchPayload with the "blocks written last" rule:
// every non-block list is inserted first, in parallel; only once all nine
// succeed is the Blocks list inserted. A failure in any non-block insert
// fails the whole call without touching Blocks -- the caller
// (backfill.Coordinator) treats that as fatal.
func WriteBatch(ctx context.Context, s Store, chainID uint32, batch BatchPayload) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.InsertTransactions(gctx, chainID, batch.Transactions) })
	g.Go(func() error { return s.InsertLogs(gctx, chainID, batch.Logs) })
	g.Go(func() error { return s.InsertTraces(gctx, chainID, batch.Traces) })
	g.Go(func() error { return s.InsertContracts(gctx, chainID, batch.Contracts) })
	g.Go(func() error { return s.InsertWithdrawals(gctx, chainID, batch.Withdrawals) })
	g.Go(func() error { return s.InsertERC20Transfers(gctx, chainID, batch.ERC20Transfers) })
	g.Go(func() error { return s.InsertERC721Transfers(gctx, chainID, batch.ERC721Transfers) })
	g.Go(func() error { return s.InsertERC1155Transfers(gctx, chainID, batch.ERC1155Transfers) })
	g.Go(func() error { return s.InsertDexTrades(gctx, chainID, batch.DexTrades) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("store: non-block insert failed, blocks not written: %w", err)
	}

	if err := s.InsertBlocks(ctx, chainID, batch.Blocks); err != nil {
		return fmt.Errorf("store: block insert failed after dependents committed: %w", err)
	}
	return nil
}
