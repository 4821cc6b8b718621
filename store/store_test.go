package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satschain/evm-indexer/model"
	"github.com/satschain/evm-indexer/store"
	"github.com/satschain/evm-indexer/store/storetest"
)

func sampleBatch() store.BatchPayload {
	return store.BatchPayload{
		Blocks:       []model.Block{{ChainID: 1, Number: 10}},
		Transactions: []model.Transaction{{ChainID: 1, BlockNumber: 10}},
		Logs:         []model.Log{{ChainID: 1, BlockNumber: 10}},
	}
}

// The store's central safety invariant: blocks only become visible after
// every other table in the batch has committed.
func TestWriteBatch_BlocksWrittenLast(t *testing.T) {
	fake := storetest.New()
	err := store.WriteBatch(context.Background(), fake, 1, sampleBatch())
	require.NoError(t, err)

	require.Equal(t, store.TableBlocks, fake.Calls[len(fake.Calls)-1])
	require.Contains(t, fake.Calls, store.TableTransactions)
	require.Contains(t, fake.Calls, store.TableLogs)
}

func TestWriteBatch_NonBlockFailureAbortsBeforeBlocksInsert(t *testing.T) {
	fake := storetest.New()
	fake.FailWith(store.TableLogs, storetest.ErrForced)

	err := store.WriteBatch(context.Background(), fake, 1, sampleBatch())
	require.Error(t, err)
	require.Empty(t, fake.Blocks, "blocks must not be written when a dependent insert fails")
}

func TestWriteBatch_BlockInsertFailureIsReported(t *testing.T) {
	fake := storetest.New()
	fake.FailWith(store.TableBlocks, storetest.ErrForced)

	err := store.WriteBatch(context.Background(), fake, 1, sampleBatch())
	require.Error(t, err)
}

func TestBatchPayload_Empty(t *testing.T) {
	require.True(t, store.BatchPayload{}.Empty())
	require.False(t, sampleBatch().Empty())
}
