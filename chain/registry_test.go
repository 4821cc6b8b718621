package chain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satschain/evm-indexer/model"
)

func TestLookup_KnownAndUnknown(t *testing.T) {
	c, ok := Lookup(1)
	require.True(t, ok)
	require.Equal(t, "ethereum-mainnet", c.Name)

	_, ok = Lookup(999999)
	require.False(t, ok)
}

func TestMustLookup_PanicsOnUnknown(t *testing.T) {
	require.Panics(t, func() { MustLookup(999999) })
	require.NotPanics(t, func() { MustLookup(1) })
}

func TestGenesisAllocations_UnknownChainErrors(t *testing.T) {
	_, err := GenesisAllocations(999999)
	require.Error(t, err)
}

func TestGenesisAllocations_EmptyForChainWithNoAllocations(t *testing.T) {
	txs, err := GenesisAllocations(5)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestGenesisAllocations_Shape(t *testing.T) {
	txs, err := GenesisAllocations(1)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	for _, tx := range txs {
		require.Equal(t, uint32(1), tx.ChainID)
		require.Equal(t, uint32(0), tx.BlockNumber)
		require.Equal(t, model.Address{}, tx.From)
		require.Equal(t, model.StatusSuccess, tx.Status)
		require.NotNil(t, tx.To)
	}
	require.Equal(t, "2000000000000000000", txs[0].Value.Dec())
}

// Genesis bootstrap must be replayable without producing new primary keys:
// hashing is a pure function of (chainID, recipient, weiValue).
func TestGenesisAllocations_HashIsDeterministic(t *testing.T) {
	first, err := GenesisAllocations(1)
	require.NoError(t, err)
	second, err := GenesisAllocations(1)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].Hash, second[i].Hash)
	}
	require.NotEqual(t, first[0].Hash, first[1].Hash)
}
