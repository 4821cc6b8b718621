// Package backfill implements the reconciliation loop that computes the
// gap between the configured start block and the node's tip, fans
// fetch_block out in bounded-parallel chunks, decodes, and writes each
// chunk through the blocks-last path.
//
// Grounded on zk/stages/stage_batches.go's SpawnStageBatches loop shape
// (bracketed phase logging, periodic reinvocation, an explicit "finished"
// log line) and zk/syncer/l1_syncer.go's queryBlocks/getSequencedLogs
// chunk-and-worker-pool pattern for the bounded-parallel fan-out within
// one chunk.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerwatch/log/v3"

	"github.com/satschain/evm-indexer/assembler"
	"github.com/satschain/evm-indexer/chain"
	"github.com/satschain/evm-indexer/decoder"
	"github.com/satschain/evm-indexer/rpcclient"
	"github.com/satschain/evm-indexer/store"
	"github.com/satschain/evm-indexer/tracker"
)

const logPrefix = "backfill"

// Config configures one Coordinator, scoped to the env vars the
// Backfill Coordinator consumes.
type Config struct {
	ChainID    uint32
	StartBlock uint32
	// EndBlock mirrors END_BLOCK: 0 and -1 follow indefinitely, >0 bounds
	// the backfill and causes Run to return (done=true) once drained.
	EndBlock  int64
	BatchSize int
	Interval  time.Duration
}

// Coordinator drives one chain's backfill loop.
type Coordinator struct {
	cfg       Config
	client    rpcclient.Client
	assembler *assembler.Assembler
	st        store.Store
	tr        *tracker.Tracker
	logger    log.Logger
}

func New(cfg Config, client rpcclient.Client, asm *assembler.Assembler, st store.Store, tr *tracker.Tracker, logger log.Logger) *Coordinator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Coordinator{cfg: cfg, client: client, assembler: asm, st: st, tr: tr, logger: logger}
}

// Run executes the reconciliation loop until the backfill is bounded and
// drained, or ctx is cancelled, or a write failure is fatal and the
// process should exit. The caller maps a non-nil return into a nonzero
// exit code.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info(fmt.Sprintf("[%s] starting backfill coordinator", logPrefix), "startBlock", c.cfg.StartBlock, "endBlock", c.cfg.EndBlock, "batchSize", c.cfg.BatchSize)
	for {
		done, err := c.runOnce(ctx)
		if err != nil {
			return err
		}
		if done {
			c.logger.Info(fmt.Sprintf("[%s] bounded backfill complete, exiting", logPrefix))
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.Interval):
		}
	}
}

// runOnce performs one reconciliation pass.
func (c *Coordinator) runOnce(ctx context.Context) (done bool, err error) {
	indexed := c.tr.Snapshot()

	if len(indexed) == 0 {
		if err := c.writeGenesis(ctx); err != nil {
			return false, err
		}
	}

	last, err := c.resolveLast(ctx)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("[%s] failed to resolve last block, retrying next interval", logPrefix), "err", err)
		return false, nil
	}

	missing := computeMissing(c.cfg.StartBlock, last, indexed)
	if c.cfg.EndBlock > 0 && len(missing) == 0 {
		return true, nil
	}
	if len(missing) == 0 {
		return false, nil
	}

	c.logger.Info(fmt.Sprintf("[%s] reconciliation pass", logPrefix), "missing", len(missing), "last", last)

	for _, chunk := range partition(missing, c.cfg.BatchSize) {
		if err := c.processChunk(ctx, chunk); err != nil {
			return false, err
		}
	}
	return false, nil
}

// writeGenesis writes the chain's genesis allocations directly into
// Transactions. Safe to call on every pass where
// indexed is still empty -- the store's merge-on-primary-key semantics
// make repeated writes of the same rows a no-op.
func (c *Coordinator) writeGenesis(ctx context.Context) error {
	txs, err := chain.GenesisAllocations(c.cfg.ChainID)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("[%s] no genesis allocations for chain, skipping", logPrefix), "chainID", c.cfg.ChainID, "err", err)
		return nil
	}
	if len(txs) == 0 {
		return nil
	}
	if err := c.st.InsertTransactions(ctx, c.cfg.ChainID, txs); err != nil {
		return fmt.Errorf("backfill: write genesis allocations: %w", err)
	}
	c.logger.Info(fmt.Sprintf("[%s] wrote genesis allocations", logPrefix), "count", len(txs))
	return nil
}

func (c *Coordinator) resolveLast(ctx context.Context) (uint32, error) {
	if c.cfg.EndBlock != 0 && c.cfg.EndBlock > 0 {
		return uint32(c.cfg.EndBlock), nil
	}
	return c.client.LastBlockNumber(ctx)
}

// computeMissing returns [start, last) \ indexed, ascending.
func computeMissing(start, last uint32, indexed map[uint32]struct{}) []uint32 {
	if last <= start {
		return nil
	}
	out := make([]uint32, 0, last-start)
	for n := start; n < last; n++ {
		if _, ok := indexed[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// partition splits missing into consecutive chunks of at most size.
func partition(missing []uint32, size int) [][]uint32 {
	var out [][]uint32
	for i := 0; i < len(missing); i += size {
		end := i + size
		if end > len(missing) {
			end = len(missing)
		}
		out = append(out, missing[i:end])
	}
	return out
}

// processChunk fetches every block in the chunk with parallelism equal to
// the chunk size, accumulates the successes into one BatchPayload, and
// writes it. A block whose fetch failed is simply absent from the
// payload -- a single failed fetch_block does not fail the chunk.
func (c *Coordinator) processChunk(ctx context.Context, chunk []uint32) error {
	type result struct {
		number  uint32
		fetched *assembler.FetchedBlock
	}

	jobs := make(chan uint32, len(chunk))
	results := make(chan result, len(chunk))
	for _, n := range chunk {
		jobs <- n
	}
	close(jobs)

	for w := 0; w < len(chunk); w++ {
		go func() {
			for n := range jobs {
				fb, err := c.assembler.FetchBlock(ctx, n)
				if err != nil {
					c.logger.Warn(fmt.Sprintf("[%s] fetch_block error, treating as missing", logPrefix), "number", n, "err", err)
					fb = nil
				}
				results <- result{number: n, fetched: fb}
			}
		}()
	}

	var batch store.BatchPayload
	var fetchedNumbers, canonicalNumbers []uint32
	for i := 0; i < len(chunk); i++ {
		r := <-results
		if r.fetched == nil {
			continue
		}
		fetchedNumbers = append(fetchedNumbers, r.number)
		if !r.fetched.Block.IsUncle {
			canonicalNumbers = append(canonicalNumbers, r.number)
		}
		appendFetched(&batch, r.fetched)
	}

	if len(fetchedNumbers) == 0 {
		return nil
	}

	if err := store.WriteBatch(ctx, c.st, c.cfg.ChainID, batch); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	// Uncle blocks are persisted above but never enter the Tracker: they
	// stay in "missing" and get re-fetched on the next pass.
	for _, n := range canonicalNumbers {
		c.tr.Insert(n)
	}
	c.logger.Info(fmt.Sprintf("[%s] chunk written", logPrefix), "blocks", len(fetchedNumbers), "of", len(chunk))
	return nil
}

// appendFetched folds one FetchedBlock's entities, plus its decoded
// derived rows, into the accumulating BatchPayload.
func appendFetched(batch *store.BatchPayload, fb *assembler.FetchedBlock) {
	batch.Blocks = append(batch.Blocks, fb.Block)
	batch.Transactions = append(batch.Transactions, fb.Transactions...)
	batch.Logs = append(batch.Logs, fb.Logs...)
	batch.Traces = append(batch.Traces, fb.Traces...)
	batch.Contracts = append(batch.Contracts, fb.Contracts...)
	batch.Withdrawals = append(batch.Withdrawals, fb.Withdrawals...)

	decoded := decoder.DecodeLogs(fb.Logs)
	batch.ERC20Transfers = append(batch.ERC20Transfers, decoded.ERC20Transfers...)
	batch.ERC721Transfers = append(batch.ERC721Transfers, decoded.ERC721Transfers...)
	batch.ERC1155Transfers = append(batch.ERC1155Transfers, decoded.ERC1155Transfers...)
	batch.DexTrades = append(batch.DexTrades, decoded.DexTrades...)
}
