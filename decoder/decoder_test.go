package decoder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satschain/evm-indexer/model"
)

func word(n uint64) []byte {
	out := make([]byte, 32)
	for i := 0; i < 8; i++ {
		out[31-i] = byte(n >> (8 * i))
	}
	return out
}

func topicFromAddr(addr string) model.Hash {
	a := model.HexToAddress(addr)
	var h model.Hash
	copy(h[12:], a[:])
	return h
}

func TestDecodeLogs_ERC20Transfer(t *testing.T) {
	from := "0x00000000000000000000000000000000000001"
	to := "0x00000000000000000000000000000000000002"
	t0 := transferSelector
	t1 := topicFromAddr(from)
	t2 := topicFromAddr(to)

	log := model.Log{
		TransactionHash: model.HexToHash("0xaa"),
		LogIndex:        0,
		Address:         model.HexToAddress("0x00000000000000000000000000000000000abc"),
		Topic0:          &t0,
		Topic1:          &t1,
		Topic2:          &t2,
		Data:            model.HexBytes(word(100)),
	}

	out := DecodeLogs([]model.Log{log})
	require.Len(t, out.ERC20Transfers, 1)
	require.Empty(t, out.ERC721Transfers)
	require.Equal(t, "100", out.ERC20Transfers[0].Value.Dec())
	require.Equal(t, model.HexToAddress(from), out.ERC20Transfers[0].From)
	require.Equal(t, model.HexToAddress(to), out.ERC20Transfers[0].To)
}

func TestDecodeLogs_ERC721Transfer(t *testing.T) {
	// 4 topics (selector + 3 indexed) -> exactly one ERC-721 row, id = topics[3].
	t0 := transferSelector
	t1 := topicFromAddr("0x00000000000000000000000000000000000001")
	t2 := topicFromAddr("0x00000000000000000000000000000000000002")
	var t3 model.Hash
	copy(t3[:], word(42))

	log := model.Log{
		TransactionHash: model.HexToHash("0xbb"),
		LogIndex:        1,
		Address:         model.HexToAddress("0x00000000000000000000000000000000000abc"),
		Topic0:          &t0,
		Topic1:          &t1,
		Topic2:          &t2,
		Topic3:          &t3,
	}

	out := DecodeLogs([]model.Log{log})
	require.Len(t, out.ERC721Transfers, 1)
	require.Empty(t, out.ERC20Transfers)
	require.Equal(t, "42", out.ERC721Transfers[0].TokenID.Dec())
}

func TestDecodeLogs_ERC1155Batch(t *testing.T) {
	t0 := transferBatchSelector
	t1 := topicFromAddr("0x00000000000000000000000000000000000010") // operator
	t2 := topicFromAddr("0x00000000000000000000000000000000000011") // from
	t3 := topicFromAddr("0x00000000000000000000000000000000000012") // to

	var data []byte
	data = append(data, word(64)...)  // offset to ids array (after the 2 head words)
	data = append(data, word(160)...) // offset to values array (after ids' length + 2 elements)
	data = append(data, word(2)...)   // ids length
	data = append(data, word(1)...)   // ids[0]
	data = append(data, word(2)...)   // ids[1]
	data = append(data, word(2)...)   // values length
	data = append(data, word(10)...)  // values[0]
	data = append(data, word(20)...)  // values[1]

	log := model.Log{
		TransactionHash: model.HexToHash("0xcc"),
		LogIndex:        2,
		Address:         model.HexToAddress("0x00000000000000000000000000000000000abc"),
		Topic0:          &t0,
		Topic1:          &t1,
		Topic2:          &t2,
		Topic3:          &t3,
		Data:            model.HexBytes(data),
	}

	out := DecodeLogs([]model.Log{log})
	require.Len(t, out.ERC1155Transfers, 2)
	require.Equal(t, out.ERC1155Transfers[0].TransactionHash, out.ERC1155Transfers[1].TransactionHash)
	require.Equal(t, out.ERC1155Transfers[0].LogIndex, out.ERC1155Transfers[1].LogIndex)
	require.Equal(t, "1", out.ERC1155Transfers[0].TokenID.Dec())
	require.Equal(t, "10", out.ERC1155Transfers[0].Value.Dec())
	require.Equal(t, "2", out.ERC1155Transfers[1].TokenID.Dec())
	require.Equal(t, "20", out.ERC1155Transfers[1].Value.Dec())
}

func TestDecodeLogs_MalformedLogSkippedSilently(t *testing.T) {
	t0 := transferSelector
	t1 := topicFromAddr("0x00000000000000000000000000000000000001")
	t2 := topicFromAddr("0x00000000000000000000000000000000000002")

	// 2-topic Transfer but data too short to hold a uint256 value.
	log := model.Log{
		TransactionHash: model.HexToHash("0xdd"),
		Topic0:          &t0,
		Topic1:          &t1,
		Topic2:          &t2,
		Data:            model.HexBytes{0x01, 0x02},
	}

	out := DecodeLogs([]model.Log{log})
	require.Empty(t, out.ERC20Transfers)
	require.Empty(t, out.ERC721Transfers)
}

func TestDecodeLogs_SwapV2NetsInOut(t *testing.T) {
	t0 := swapV2Selector
	t1 := topicFromAddr("0x00000000000000000000000000000000000021")
	t2 := topicFromAddr("0x00000000000000000000000000000000000022")

	var data []byte
	data = append(data, word(0)...)   // amount0In
	data = append(data, word(50)...)  // amount1In
	data = append(data, word(30)...)  // amount0Out
	data = append(data, word(0)...)   // amount1Out

	log := model.Log{
		TransactionHash: model.HexToHash("0xee"),
		Address:         model.HexToAddress("0x00000000000000000000000000000000000abc"),
		Topic0:          &t0,
		Topic1:          &t1,
		Topic2:          &t2,
		Data:            model.HexBytes(data),
	}

	out := DecodeLogs([]model.Log{log})
	require.Len(t, out.DexTrades, 1)
	require.Equal(t, "30", out.DexTrades[0].Amount0)
	require.Equal(t, "-50", out.DexTrades[0].Amount1)
}

func TestDecodeLogs_UnknownTopicContributesNothing(t *testing.T) {
	var unknown model.Hash
	unknown[0] = 0xff
	log := model.Log{Topic0: &unknown}
	out := DecodeLogs([]model.Log{log})
	require.Empty(t, out.ERC20Transfers)
	require.Empty(t, out.ERC721Transfers)
	require.Empty(t, out.ERC1155Transfers)
	require.Empty(t, out.DexTrades)
}
