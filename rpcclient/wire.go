package rpcclient

import (
	"encoding/json"
	"strconv"
)

// Wire types mirror the raw JSON-RPC 2.0 response shapes (quantities as
// "0x..." hex strings, exactly as go-ethereum's eth_getBlockByNumber /
// eth_getBlockReceipts / debug_traceBlockByNumber return them). Decoding
// these into model.* values is the Block Assembler's job, not the
// client's -- the client only speaks the wire format.

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcErrorObject `json:"error"`
}

type rpcErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type RawBlock struct {
	Number           string       `json:"number"`
	Hash             string       `json:"hash"`
	ParentHash       string       `json:"parentHash"`
	Timestamp        string       `json:"timestamp"`
	Miner            string       `json:"miner"`
	Nonce            string       `json:"nonce"`
	GasLimit         string       `json:"gasLimit"`
	GasUsed          string       `json:"gasUsed"`
	BaseFeePerGas    string       `json:"baseFeePerGas"`
	Difficulty       string       `json:"difficulty"`
	TotalDifficulty  string       `json:"totalDifficulty"`
	Size             string       `json:"size"`
	Uncles           []string     `json:"uncles"`
	Withdrawals      []RawWithdrawal `json:"withdrawals"`
	Transactions     []RawTransaction `json:"transactions"`
	// IsUncle is not part of the standard eth_getBlockByNumber schema; some
	// nodes (and every test harness in this repo) set it to flag a
	// non-canonical block fetched by number so the indexer can still
	// record and exclude it from the indexed set, rather than silently
	// treating every fetched block as canonical.
	IsUncle bool `json:"isUncle,omitempty"`
}

type RawWithdrawal struct {
	Index          string `json:"index"`
	ValidatorIndex string `json:"validatorIndex"`
	Address        string `json:"address"`
	Amount         string `json:"amount"`
}

type RawTransaction struct {
	Hash                 string `json:"hash"`
	BlockNumber          string `json:"blockNumber"`
	TransactionIndex     string `json:"transactionIndex"`
	From                 string `json:"from"`
	To                   string `json:"to"`
	Value                string `json:"value"`
	Gas                  string `json:"gas"`
	GasPrice             string `json:"gasPrice"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	Input                string `json:"input"`
	Nonce                string `json:"nonce"`
	Type                 string `json:"type"`
}

type RawReceipt struct {
	TransactionHash   string   `json:"transactionHash"`
	Status            string   `json:"status"`
	GasUsed           string   `json:"gasUsed"`
	CumulativeGasUsed string   `json:"cumulativeGasUsed"`
	EffectiveGasPrice string   `json:"effectiveGasPrice"`
	ContractAddress   string   `json:"contractAddress"`
	Logs              []RawLog `json:"logs"`
}

type RawLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	LogIndex        string   `json:"logIndex"`
	TransactionHash string   `json:"transactionHash"`
	BlockNumber     string   `json:"blockNumber"`
}

// RawTrace is one flattened entry of a debug_traceBlockByNumber callTracer
// response, already walked from its recursive tree shape by the client
// (one entry per call, TraceAddress recording the hyphen-separated call
// path, "" for the top-level call).
type RawTrace struct {
	TransactionHash string `json:"transactionHash"`
	TraceAddress    string `json:"traceAddress"`
	Type            string `json:"type"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Input           string `json:"input"`
	Output          string `json:"output"`
	Gas             string `json:"gas"`
	GasUsed         string `json:"gasUsed"`
	Error           string `json:"error"`
}

// rawCallFrame is the nested shape debug_traceTransaction{tracer:callTracer}
// actually returns; RawTrace above is its flattened projection.
type rawCallFrame struct {
	Type    string         `json:"type"`
	From    string         `json:"from"`
	To      string         `json:"to"`
	Value   string         `json:"value"`
	Input   string         `json:"input"`
	Output  string         `json:"output"`
	Gas     string         `json:"gas"`
	GasUsed string         `json:"gasUsed"`
	Error   string         `json:"error"`
	Calls   []rawCallFrame `json:"calls"`
}

func flattenCallFrame(txHash string, frame rawCallFrame, path string, out *[]*RawTrace) {
	*out = append(*out, &RawTrace{
		TransactionHash: txHash,
		TraceAddress:    path,
		Type:            frame.Type,
		From:            frame.From,
		To:              frame.To,
		Value:           frame.Value,
		Input:           frame.Input,
		Output:          frame.Output,
		Gas:             frame.Gas,
		GasUsed:         frame.GasUsed,
		Error:           frame.Error,
	})
	for i, child := range frame.Calls {
		childPath := indexPath(path, i)
		flattenCallFrame(txHash, child, childPath, out)
	}
}

func indexPath(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i)
	}
	return parent + "-" + strconv.Itoa(i)
}
