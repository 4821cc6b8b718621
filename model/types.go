// Package model defines the typed primitives persisted by the indexer:
// one Go struct per entity named in the data model, plus the canonical
// hex/byte normalizers (HexBytes, Address, Hash, U256) every entity uses.
package model

// TxStatus mirrors the receipt status field; pre-Byzantium receipts have
// none, so a transaction's status is Unknown rather than guessed.
type TxStatus uint8

const (
	StatusUnknown TxStatus = iota
	StatusFailure
	StatusSuccess
)

// Block is the canonical per-height record. Number+ChainID is the primary
// key; IsUncle rows are persisted but excluded from the indexed set.
type Block struct {
	ChainID          uint32
	Number           uint32
	Hash             Hash
	ParentHash       Hash
	Timestamp        uint32
	Miner            Address
	Nonce            HexBytes
	GasLimit         uint64
	GasUsed          uint64
	BaseFeePerGas    *U256
	Difficulty       U256
	TotalDifficulty  *U256
	Size             uint64
	Uncles           []Hash
	Transactions     uint32
	TotalFeeReward   U256
	Burned           U256
	IsUncle          bool
}

// Transaction is keyed by Hash; fields reflecting receipt status are only
// populated when a receipt was joined in (see assembler.FetchBlock).
type Transaction struct {
	ChainID                  uint32
	Hash                     Hash
	BlockNumber              uint32
	TransactionIndex         uint32
	From                     Address
	To                       *Address
	Value                    U256
	Gas                      uint64
	GasPrice                 *U256
	MaxFeePerGas             *U256
	MaxPriorityFeePerGas     *U256
	Input                    HexBytes
	Nonce                    uint64
	TransactionType          uint8
	Status                   TxStatus
	GasUsed                  *uint64
	CumulativeGasUsed        uint64
	EffectiveTransactionFee  *U256
	ContractCreated          *Address
	Method                   HexBytes
	Burned                   *U256
	Timestamp                uint32
}

// Log is keyed by (TransactionHash, LogIndex).
type Log struct {
	ChainID         uint32
	TransactionHash Hash
	LogIndex        uint32
	Address         Address
	Topic0          *Hash
	Topic1          *Hash
	Topic2          *Hash
	Topic3          *Hash
	Data            HexBytes
	BlockNumber     uint32
	Timestamp       uint32
}

// Topics returns the non-nil indexed topics in order, topic0 first.
func (l Log) Topics() []Hash {
	out := make([]Hash, 0, 4)
	for _, t := range []*Hash{l.Topic0, l.Topic1, l.Topic2, l.Topic3} {
		if t == nil {
			break
		}
		out = append(out, *t)
	}
	return out
}

// Trace is keyed by (TransactionHash, TraceAddress) where TraceAddress is
// the hyphen-separated call path within debug_traceTransaction's
// callTracer tree ("" for the top-level call, then "0", "0-1", ...).
type Trace struct {
	ChainID         uint32
	TransactionHash Hash
	TraceAddress    string
	CallType        string
	From            Address
	To              *Address
	Value           U256
	Input           HexBytes
	Output          HexBytes
	Gas             uint64
	GasUsed         uint64
	Error           string
}

// Contract is keyed by Address; one row per successful CREATE/CREATE2 trace.
type Contract struct {
	ChainID                uint32
	Address                Address
	CreatorTransactionHash Hash
	Bytecode               HexBytes
}

// Withdrawal is a validator-stake withdrawal, keyed by (BlockNumber, Index).
type Withdrawal struct {
	ChainID        uint32
	BlockNumber    uint32
	Index          uint64
	ValidatorIndex uint64
	Address        Address
	Amount         U256
}

// ERC20Transfer is derived from a 2-indexed-topic Transfer log.
type ERC20Transfer struct {
	ChainID         uint32
	TransactionHash Hash
	LogIndex        uint32
	TokenAddress    Address
	From            Address
	To              Address
	Value           U256
	BlockNumber     uint32
	Timestamp       uint32
}

// ERC721Transfer is derived from a 3-indexed-topic Transfer log.
type ERC721Transfer struct {
	ChainID         uint32
	TransactionHash Hash
	LogIndex        uint32
	TokenAddress    Address
	From            Address
	To              Address
	TokenID         U256
	BlockNumber     uint32
	Timestamp       uint32
}

// ERC1155Transfer is derived from TransferSingle/TransferBatch logs; batch
// events expand to one row per (id, value) pair sharing (tx hash, log index).
type ERC1155Transfer struct {
	ChainID         uint32
	TransactionHash Hash
	LogIndex        uint32
	BatchIndex      uint32
	TokenAddress    Address
	Operator        Address
	From            Address
	To              Address
	TokenID         U256
	Value           U256
	BlockNumber     uint32
	Timestamp       uint32
}

// DexTrade is derived from a Uniswap V2- or V3-style Swap log. Amounts are
// signed for both: V3 carries the event's signed amounts, V2 reports each
// token's out-minus-in net.
type DexTrade struct {
	ChainID         uint32
	TransactionHash Hash
	LogIndex        uint32
	PoolAddress     Address
	Sender          Address
	Recipient       Address
	Amount0         string // decimal, may be negative
	Amount1         string // decimal, may be negative
	BlockNumber     uint32
	Timestamp       uint32
}
