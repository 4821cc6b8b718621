package backfill

import (
	"context"
	"testing"

	"github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/require"

	"github.com/satschain/evm-indexer/assembler"
	"github.com/satschain/evm-indexer/rpcclient/rpcclienttest"
	"github.com/satschain/evm-indexer/store"
	"github.com/satschain/evm-indexer/store/storetest"
	"github.com/satschain/evm-indexer/tracker"
)

func TestComputeMissing(t *testing.T) {
	indexed := map[uint32]struct{}{2: {}, 4: {}}
	require.Equal(t, []uint32{0, 1, 3}, computeMissing(0, 5, indexed))
	require.Nil(t, computeMissing(5, 5, nil))
	require.Nil(t, computeMissing(5, 3, nil))
}

func TestPartition(t *testing.T) {
	got := partition([]uint32{0, 1, 2, 3, 4}, 2)
	require.Equal(t, [][]uint32{{0, 1}, {2, 3}, {4}}, got)
	require.Nil(t, partition(nil, 2))
}

func newCoordinator(t *testing.T) (*Coordinator, *rpcclienttest.Fake, *storetest.Fake, *tracker.Tracker) {
	client := rpcclienttest.New()
	st := storetest.New()
	tr := tracker.New()
	asm := assembler.New(client, 1, log.New())
	c := New(Config{ChainID: 1, StartBlock: 0, BatchSize: 10}, client, asm, st, tr, log.New())
	return c, client, st, tr
}

// An uncle block is persisted but stays out of the indexed set so the
// next pass re-fetches it as still missing.
func TestProcessChunk_UncleIsWrittenButNotTracked(t *testing.T) {
	c, client, st, tr := newCoordinator(t)
	client.PutBlock(0, "0x0", "0x")
	client.PutUncle(1, "0x1", "0x0")
	client.PutBlock(2, "0x2", "0x1")

	err := c.processChunk(context.Background(), []uint32{0, 1, 2})
	require.NoError(t, err)

	require.Len(t, st.Blocks, 3)
	require.True(t, tr.Contains(0))
	require.False(t, tr.Contains(1))
	require.True(t, tr.Contains(2))
}

// A single failed fetch_block within a chunk must not fail the whole
// chunk: the other blocks are still written and tracked.
func TestProcessChunk_PartialFetchFailureDoesNotFailChunk(t *testing.T) {
	c, client, st, tr := newCoordinator(t)
	client.PutBlock(0, "0x0", "0x")
	// block 1 is never registered, so BlockByNumber errors for it.
	client.PutBlock(2, "0x2", "0x1")

	err := c.processChunk(context.Background(), []uint32{0, 1, 2})
	require.NoError(t, err)

	require.Len(t, st.Blocks, 2)
	require.True(t, tr.Contains(0))
	require.False(t, tr.Contains(1))
	require.True(t, tr.Contains(2))
}

func TestProcessChunk_EmptyChunkIsANoOp(t *testing.T) {
	c, client, st, _ := newCoordinator(t)
	_ = client
	err := c.processChunk(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, st.Blocks)
}

// A non-block insert failure must propagate as fatal and must not update
// the Tracker for any block in the chunk.
func TestProcessChunk_WriteFailureIsFatalAndTrackerUntouched(t *testing.T) {
	c, client, st, tr := newCoordinator(t)
	client.PutBlock(0, "0x0", "0x")
	st.FailWith(store.TableTransactions, storetest.ErrForced)

	err := c.processChunk(context.Background(), []uint32{0})
	require.Error(t, err)
	require.False(t, tr.Contains(0))
}

// Genesis bootstrap only happens while the indexed set is empty, and is
// safe to call repeatedly.
func TestWriteGenesis_WritesAllocationsOnce(t *testing.T) {
	c, _, st, _ := newCoordinator(t)
	c.cfg.ChainID = 1

	err := c.writeGenesis(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Transactions, 2)
}

func TestWriteGenesis_UnregisteredChainIsNonFatal(t *testing.T) {
	c, _, st, _ := newCoordinator(t)
	c.cfg.ChainID = 999999

	err := c.writeGenesis(context.Background())
	require.NoError(t, err)
	require.Empty(t, st.Transactions)
}

// A bounded backfill (EndBlock > 0) reports done once nothing is
// missing.
func TestRunOnce_BoundedBackfillReportsDoneWhenDrained(t *testing.T) {
	c, client, _, tr := newCoordinator(t)
	c.cfg.EndBlock = 1
	c.cfg.ChainID = 999999 // unregistered: writeGenesis is a no-op
	_ = client
	tr.Insert(0)

	done, err := c.runOnce(context.Background())
	require.NoError(t, err)
	require.True(t, done)
}

func TestRunOnce_UnboundedBackfillNeverReportsDone(t *testing.T) {
	c, client, _, tr := newCoordinator(t)
	c.cfg.ChainID = 999999
	client.Tip = 0
	tr.Insert(0)

	done, err := c.runOnce(context.Background())
	require.NoError(t, err)
	require.False(t, done)
}
