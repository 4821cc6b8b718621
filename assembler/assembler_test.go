package assembler

import (
	"context"
	"fmt"
	"testing"

	"github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/require"

	"github.com/satschain/evm-indexer/rpcclient"
	"github.com/satschain/evm-indexer/rpcclient/rpcclienttest"
)

func TestFetchBlock_JoinsHeaderReceiptsAndTraces(t *testing.T) {
	client := rpcclienttest.New()
	client.PutBlock(10, "0xaaa", "0xbbb")
	client.Blocks[10].Transactions = []rpcclient.RawTransaction{
		{Hash: "0x01", From: "0x0000000000000000000000000000000000000a", Value: "0x64"},
	}
	client.Receipts[10] = []*rpcclient.RawReceipt{
		{TransactionHash: "0x01", Status: "0x1", GasUsed: "0x5208"},
	}
	client.Traces[10] = []*rpcclient.RawTrace{
		{TransactionHash: "0x01", Type: "CALL", From: "0x0000000000000000000000000000000000000a"},
	}

	asm := New(client, 1, log.New())
	fb, err := asm.FetchBlock(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, fb)
	require.Equal(t, uint32(10), fb.Block.Number)
	require.False(t, fb.Block.IsUncle)
	require.Len(t, fb.Transactions, 1)
	require.Equal(t, "100", fb.Transactions[0].Value.Dec())
	require.Len(t, fb.Traces, 1)
	require.Equal(t, "call", fb.Traces[0].CallType)
}

func TestFetchBlock_UncleBlockIsFlagged(t *testing.T) {
	client := rpcclienttest.New()
	client.PutUncle(10, "0xaaa", "0xbbb")

	asm := New(client, 1, log.New())
	fb, err := asm.FetchBlock(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, fb)
	require.True(t, fb.Block.IsUncle)
}

func TestFetchBlock_SubCallFailureReportsMissingNotError(t *testing.T) {
	client := rpcclienttest.New()
	client.PutBlock(10, "0xaaa", "0xbbb")
	client.FailReceipts[10] = fmt.Errorf("forced")

	asm := New(client, 1, log.New())
	fb, err := asm.FetchBlock(context.Background(), 10)
	require.NoError(t, err)
	require.Nil(t, fb)
}

func TestFetchBlock_UnknownHeightReportsMissing(t *testing.T) {
	client := rpcclienttest.New()

	asm := New(client, 1, log.New())
	fb, err := asm.FetchBlock(context.Background(), 999)
	require.NoError(t, err)
	require.Nil(t, fb)
}

func TestMethodFromInput(t *testing.T) {
	require.Empty(t, []byte(methodFromInput(nil)))
	require.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, []byte(methodFromInput([]byte{0xa9, 0x05, 0x9c, 0xbb, 0x00})))
}
