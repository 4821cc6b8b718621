// Package decoder derives the ERC-20/721/1155 transfer and DEX trade
// tables from raw Log rows. It never errors on a malformed log -- a log
// that doesn't fit the expected shape is simply not a transfer or trade
// and is skipped, same as cmd/rpcdaemon/commands's log-topic dispatch
// (event signature switch, default: continue) does for unrecognized
// topics.
package decoder

import (
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/satschain/evm-indexer/model"
)

// Event selectors are keccak256(signature), computed once at init time
// rather than hardcoded, so the signature string is the single source of
// truth (grounded on golang.org/x/crypto/sha3 as the keccak
// implementation path used for event topics).
var (
	transferSelector       = selector("Transfer(address,address,uint256)")
	transferSingleSelector = selector("TransferSingle(address,address,address,uint256,uint256)")
	transferBatchSelector  = selector("TransferBatch(address,address,address,uint256[],uint256[])")
	swapV2Selector         = selector("Swap(address,uint256,uint256,uint256,uint256,address)")
	swapV3Selector         = selector("Swap(address,address,int256,int256,uint160,uint128,int24)")
)

func selector(signature string) model.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	sum := h.Sum(nil)
	var out model.Hash
	copy(out[:], sum)
	return out
}

// Decoded collects everything derivable from one block's logs.
type Decoded struct {
	ERC20Transfers   []model.ERC20Transfer
	ERC721Transfers  []model.ERC721Transfer
	ERC1155Transfers []model.ERC1155Transfer
	DexTrades        []model.DexTrade
}

// DecodeLogs inspects each log's topic0 and dispatches to the matching
// decoder. Logs with no topic0, or whose shape doesn't match the
// selector they carry, contribute nothing.
func DecodeLogs(logs []model.Log) Decoded {
	var out Decoded
	for _, l := range logs {
		if l.Topic0 == nil {
			continue
		}
		switch *l.Topic0 {
		case transferSelector:
			decodeTransfer(l, &out)
		case transferSingleSelector:
			if t, ok := decodeTransferSingle(l); ok {
				out.ERC1155Transfers = append(out.ERC1155Transfers, t)
			}
		case transferBatchSelector:
			out.ERC1155Transfers = append(out.ERC1155Transfers, decodeTransferBatch(l)...)
		case swapV2Selector:
			if t, ok := decodeSwapV2(l); ok {
				out.DexTrades = append(out.DexTrades, t)
			}
		case swapV3Selector:
			if t, ok := decodeSwapV3(l); ok {
				out.DexTrades = append(out.DexTrades, t)
			}
		}
	}
	return out
}

// decodeTransfer dispatches on topic count, where topics[0] is always the
// selector itself: 4 topics (selector, from, to, tokenId) is ERC-721 with
// id = topics[3]; 3 topics (selector, from, to) plus a 32-byte data word
// is ERC-20. Any other shape is not a Transfer this decoder recognizes.
func decodeTransfer(l model.Log, out *Decoded) {
	topics := l.Topics()
	switch len(topics) {
	case 4:
		out.ERC721Transfers = append(out.ERC721Transfers, model.ERC721Transfer{
			ChainID:         l.ChainID,
			TransactionHash: l.TransactionHash,
			LogIndex:        l.LogIndex,
			TokenAddress:    l.Address,
			From:            addressFromTopic(topics[1]),
			To:              addressFromTopic(topics[2]),
			TokenID:         u256FromWord(model.HexBytes(topics[3][:]), 0),
			BlockNumber:     l.BlockNumber,
			Timestamp:       l.Timestamp,
		})
	case 3:
		if len(l.Data) < 32 {
			return
		}
		out.ERC20Transfers = append(out.ERC20Transfers, model.ERC20Transfer{
			ChainID:         l.ChainID,
			TransactionHash: l.TransactionHash,
			LogIndex:        l.LogIndex,
			TokenAddress:    l.Address,
			From:            addressFromTopic(topics[1]),
			To:              addressFromTopic(topics[2]),
			Value:           u256FromWord(l.Data, 0),
			BlockNumber:     l.BlockNumber,
			Timestamp:       l.Timestamp,
		})
	}
}

func decodeTransferSingle(l model.Log) (model.ERC1155Transfer, bool) {
	topics := l.Topics()
	if len(topics) != 4 || len(l.Data) < 64 {
		return model.ERC1155Transfer{}, false
	}
	return model.ERC1155Transfer{
		ChainID:         l.ChainID,
		TransactionHash: l.TransactionHash,
		LogIndex:        l.LogIndex,
		TokenAddress:    l.Address,
		Operator:        addressFromTopic(topics[1]),
		From:            addressFromTopic(topics[2]),
		To:              addressFromTopic(topics[3]),
		TokenID:         u256FromWord(l.Data, 0),
		Value:           u256FromWord(l.Data, 1),
		BlockNumber:     l.BlockNumber,
		Timestamp:       l.Timestamp,
	}, true
}

// decodeTransferBatch expands one log into one row per (id, value) pair.
// The two dynamic arrays are ABI-encoded as: offset(ids), offset(values),
// then for each array a length word followed by its elements. A length
// mismatch between the two arrays means this log is malformed for our
// purposes, and is skipped entirely rather than producing partial rows.
func decodeTransferBatch(l model.Log) []model.ERC1155Transfer {
	topics := l.Topics()
	if len(topics) != 4 {
		return nil
	}
	ids, idsOK := readDynamicArray(l.Data, 0)
	values, valuesOK := readDynamicArray(l.Data, 1)
	if !idsOK || !valuesOK || len(ids) != len(values) {
		return nil
	}

	operator := addressFromTopic(topics[1])
	from := addressFromTopic(topics[2])
	to := addressFromTopic(topics[3])

	out := make([]model.ERC1155Transfer, 0, len(ids))
	for i := range ids {
		out = append(out, model.ERC1155Transfer{
			ChainID:         l.ChainID,
			TransactionHash: l.TransactionHash,
			LogIndex:        l.LogIndex,
			BatchIndex:      uint32(i),
			TokenAddress:    l.Address,
			Operator:        operator,
			From:            from,
			To:              to,
			TokenID:         ids[i],
			Value:           values[i],
			BlockNumber:     l.BlockNumber,
			Timestamp:       l.Timestamp,
		})
	}
	return out
}

// decodeSwapV2 matches the Uniswap V2-style Swap(address,uint256,uint256,
// uint256,uint256,address) event: sender is indexed topic1, recipient is
// indexed topic2, and data carries four uint256 words
// (amount0In, amount1In, amount0Out, amount1Out). Net amount0/amount1 is
// reported as out-minus-in, a signed decimal ("-" prefix when in > out).
func decodeSwapV2(l model.Log) (model.DexTrade, bool) {
	topics := l.Topics()
	if len(topics) != 3 || len(l.Data) < 128 {
		return model.DexTrade{}, false
	}
	amount0In := u256FromWord(l.Data, 0)
	amount1In := u256FromWord(l.Data, 1)
	amount0Out := u256FromWord(l.Data, 2)
	amount1Out := u256FromWord(l.Data, 3)

	return model.DexTrade{
		ChainID:         l.ChainID,
		TransactionHash: l.TransactionHash,
		LogIndex:        l.LogIndex,
		PoolAddress:     l.Address,
		Sender:          addressFromTopic(topics[1]),
		Recipient:       addressFromTopic(topics[2]),
		Amount0:         netAmount(amount0Out, amount0In),
		Amount1:         netAmount(amount1Out, amount1In),
		BlockNumber:     l.BlockNumber,
		Timestamp:       l.Timestamp,
	}, true
}

// decodeSwapV3 matches the Uniswap V3-style Swap(address,address,int256,
// int256,uint160,uint128,int24) event: sender is indexed topic1,
// recipient is indexed topic2, and data carries amount0 and amount1 as
// signed two's-complement int256 words (negative means the pool paid
// that token out).
func decodeSwapV3(l model.Log) (model.DexTrade, bool) {
	topics := l.Topics()
	if len(topics) != 3 || len(l.Data) < 64 {
		return model.DexTrade{}, false
	}
	return model.DexTrade{
		ChainID:         l.ChainID,
		TransactionHash: l.TransactionHash,
		LogIndex:        l.LogIndex,
		PoolAddress:     l.Address,
		Sender:          addressFromTopic(topics[1]),
		Recipient:       addressFromTopic(topics[2]),
		Amount0:         signedDecimalFromWord(l.Data, 0),
		Amount1:         signedDecimalFromWord(l.Data, 1),
		BlockNumber:     l.BlockNumber,
		Timestamp:       l.Timestamp,
	}, true
}

func addressFromTopic(t model.Hash) model.Address {
	var a model.Address
	copy(a[:], t[12:])
	return a
}

// u256FromWord reads the wordIdx'th 32-byte big-endian word from data as
// an unsigned value.
func u256FromWord(data model.HexBytes, wordIdx int) model.U256 {
	start := wordIdx * 32
	if start+32 > len(data) {
		return model.NewU256()
	}
	u, err := model.U256FromHex(strings.TrimPrefix(model.HexBytes(data[start:start+32]).String(), "0x"))
	if err != nil {
		return model.NewU256()
	}
	return u
}

// readDynamicArray reads the argIdx'th dynamic uint256[] argument from
// ABI-encoded tail data: the head carries an offset per argument, and at
// that offset sits a length word followed by the elements.
func readDynamicArray(data model.HexBytes, argIdx int) ([]model.U256, bool) {
	offsetWord := argIdx * 32
	if offsetWord+32 > len(data) {
		return nil, false
	}
	offset := int(u256FromWord(data, argIdx).Uint64())
	if offset+32 > len(data) {
		return nil, false
	}
	length := int(u256FromWord(data[offset:], 0).Uint64())
	elemsStart := offset + 32
	if elemsStart+length*32 > len(data) {
		return nil, false
	}
	out := make([]model.U256, 0, length)
	for i := 0; i < length; i++ {
		out = append(out, u256FromWord(data[elemsStart:], i))
	}
	return out, true
}

// signedDecimalFromWord interprets a 32-byte word as two's-complement
// int256 and renders it as a signed decimal string.
func signedDecimalFromWord(data model.HexBytes, wordIdx int) string {
	start := wordIdx * 32
	if start+32 > len(data) {
		return "0"
	}
	word := data[start : start+32]
	negative := word[0]&0x80 != 0
	if !negative {
		return u256FromWord(data, wordIdx).Dec()
	}
	magnitude := make([]byte, 32)
	copy(magnitude, word)
	for i := range magnitude {
		magnitude[i] = ^magnitude[i]
	}
	u, err := model.U256FromHex(strings.TrimPrefix(model.HexBytes(magnitude).String(), "0x"))
	if err != nil {
		return "0"
	}
	u.Int.AddUint64(u.Int, 1)
	return "-" + u.Int.Dec()
}

func netAmount(out, in model.U256) string {
	if out.Int.Cmp(in.Int) >= 0 {
		return subDecimal(out, in)
	}
	return "-" + subDecimal(in, out)
}

func subDecimal(a, b model.U256) string {
	r := model.NewU256()
	r.Int.Sub(a.Int, b.Int)
	return r.Int.Dec()
}
