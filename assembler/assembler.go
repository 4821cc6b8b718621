// Package assembler implements the block assembler: it fans a single
// height's three sub-RPCs out in parallel, joins them by transaction
// hash, and produces one FetchedBlock or none at all -- never a partial
// one.
//
// Grounded on zk/syncer/l1_syncer.go's worker/channel fan-out shape for
// the backfill-wide chunk parallelism (see package backfill); the 3-way
// per-block join here uses golang.org/x/sync/errgroup instead, since it
// is a fixed-arity join (header+txs, receipts, traces) rather than an
// open worker pool -- errgroup is a real dependency (golang.org/x/sync
// is in go.mod), also used by store.WriteBatch for its per-table fan-out.
package assembler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgerwatch/log/v3"
	"golang.org/x/sync/errgroup"

	"github.com/satschain/evm-indexer/model"
	"github.com/satschain/evm-indexer/rpcclient"
)

// FetchedBlock is the fan-in of block, receipts and traces for one height.
type FetchedBlock struct {
	Block        model.Block
	Transactions []model.Transaction
	Logs         []model.Log
	Traces       []model.Trace
	Contracts    []model.Contract
	Withdrawals  []model.Withdrawal
}

// Assembler fetches and joins one height at a time.
type Assembler struct {
	client  rpcclient.Client
	chainID uint32
	logger  log.Logger
}

func New(client rpcclient.Client, chainID uint32, logger log.Logger) *Assembler {
	return &Assembler{client: client, chainID: chainID, logger: logger}
}

// FetchBlock issues block_by_number, receipts_for_block and
// traces_for_block concurrently and joins the results. Per the node
// client's contract, any sub-call failure means the whole height is
// reported missing (nil, nil) rather than surfaced partially.
func (a *Assembler) FetchBlock(ctx context.Context, number uint32) (*FetchedBlock, error) {
	var rawBlock *rpcclient.RawBlock
	var rawReceipts []*rpcclient.RawReceipt
	var rawTraces []*rpcclient.RawTrace

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := a.client.BlockByNumber(gctx, number)
		rawBlock = b
		return err
	})
	g.Go(func() error {
		r, err := a.client.ReceiptsForBlock(gctx, number)
		rawReceipts = r
		return err
	})
	g.Go(func() error {
		t, err := a.client.TracesForBlock(gctx, number)
		rawTraces = t
		return err
	})

	if err := g.Wait(); err != nil {
		a.logger.Debug("assembler: block fetch failed, treating as missing", "number", number, "err", err)
		return nil, nil
	}
	if rawBlock == nil {
		return nil, nil
	}

	return a.join(rawBlock, rawReceipts, rawTraces)
}

func (a *Assembler) join(rb *rpcclient.RawBlock, receipts []*rpcclient.RawReceipt, traces []*rpcclient.RawTrace) (*FetchedBlock, error) {
	number, err := parseHex(rb.Number)
	if err != nil {
		return nil, fmt.Errorf("assembler: bad block number %q: %w", rb.Number, err)
	}
	timestamp, err := parseHex(rb.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("assembler: bad timestamp %q: %w", rb.Timestamp, err)
	}

	baseFee, hasBaseFee := parseOptionalU256(rb.BaseFeePerGas)

	block := model.Block{
		ChainID:       a.chainID,
		Number:        uint32(number),
		Hash:          model.HexToHash(rb.Hash),
		ParentHash:    model.HexToHash(rb.ParentHash),
		Timestamp:     uint32(timestamp),
		Miner:         model.HexToAddress(rb.Miner),
		Nonce:         model.HexBytes(mustHexBytes(rb.Nonce)),
		Transactions:  uint32(len(rb.Transactions)),
		IsUncle:       rb.IsUncle,
		Difficulty:    model.NewU256(),
	}
	if gl, err := parseHex(rb.GasLimit); err == nil {
		block.GasLimit = gl
	}
	if gu, err := parseHex(rb.GasUsed); err == nil {
		block.GasUsed = gu
	}
	if sz, err := parseHex(rb.Size); err == nil {
		block.Size = sz
	}
	if hasBaseFee {
		block.BaseFeePerGas = &baseFee
	}
	if d, err := model.U256FromHex(rb.Difficulty); err == nil {
		block.Difficulty = d
	}
	if td, ok := parseOptionalU256(rb.TotalDifficulty); ok {
		block.TotalDifficulty = &td
	}
	for _, u := range rb.Uncles {
		block.Uncles = append(block.Uncles, model.HexToHash(u))
	}

	receiptByHash := make(map[string]*rpcclient.RawReceipt, len(receipts))
	for _, r := range receipts {
		receiptByHash[r.TransactionHash] = r
	}

	var fetched FetchedBlock
	fetched.Block = block

	byzantiumStatusKnown := func(r *rpcclient.RawReceipt) bool { return r != nil && r.Status != "" }

	totalReward := model.NewU256()
	totalBurned := model.NewU256()

	for _, rt := range rb.Transactions {
		receipt := receiptByHash[rt.Hash]

		tx := model.Transaction{
			ChainID:          a.chainID,
			Hash:             model.HexToHash(rt.Hash),
			BlockNumber:      uint32(number),
			From:             model.HexToAddress(rt.From),
			Value:            mustU256(rt.Value),
			Input:            model.HexBytes(mustHexBytes(rt.Input)),
			Timestamp:        uint32(timestamp),
		}
		if txIdx, err := parseHex(rt.TransactionIndex); err == nil {
			tx.TransactionIndex = uint32(txIdx)
		}
		if gas, err := parseHex(rt.Gas); err == nil {
			tx.Gas = gas
		}
		if nonce, err := parseHex(rt.Nonce); err == nil {
			tx.Nonce = nonce
		}
		if typ, err := parseHex(rt.Type); err == nil {
			tx.TransactionType = uint8(typ)
		}
		if rt.To != "" {
			to := model.HexToAddress(rt.To)
			tx.To = &to
		}
		if gp, ok := parseOptionalU256(rt.GasPrice); ok {
			tx.GasPrice = &gp
		}
		if mf, ok := parseOptionalU256(rt.MaxFeePerGas); ok {
			tx.MaxFeePerGas = &mf
		}
		if mp, ok := parseOptionalU256(rt.MaxPriorityFeePerGas); ok {
			tx.MaxPriorityFeePerGas = &mp
		}
		tx.Method = methodFromInput(tx.Input)

		if receipt != nil {
			if !byzantiumStatusKnown(receipt) {
				tx.Status = model.StatusUnknown
			} else if receipt.Status == "0x1" {
				tx.Status = model.StatusSuccess
			} else {
				tx.Status = model.StatusFailure
			}
			if gu, err := parseHex(receipt.GasUsed); err == nil {
				tx.GasUsed = &gu
			}
			if cgu, err := parseHex(receipt.CumulativeGasUsed); err == nil {
				tx.CumulativeGasUsed = cgu
			}
			if receipt.ContractAddress != "" {
				created := model.HexToAddress(receipt.ContractAddress)
				tx.ContractCreated = &created
			}

			effGasPrice, hasEffGasPrice := parseOptionalU256(receipt.EffectiveGasPrice)
			if tx.GasUsed != nil && hasEffGasPrice {
				fee := new2(effGasPrice, *tx.GasUsed)
				tx.EffectiveTransactionFee = &fee
				totalReward = addU256(totalReward, fee)
			}
			if tx.GasUsed != nil && hasBaseFee {
				burned := new2(baseFee, *tx.GasUsed)
				tx.Burned = &burned
				totalBurned = addU256(totalBurned, burned)
			}

			for idx, rl := range receipt.Logs {
				fetched.Logs = append(fetched.Logs, decodeLog(a.chainID, rl, idx, uint32(number), uint32(timestamp)))
			}
		} else {
			tx.Status = model.StatusUnknown
		}

		fetched.Transactions = append(fetched.Transactions, tx)
	}

	fetched.Block.TotalFeeReward = totalReward
	fetched.Block.Burned = totalBurned

	for _, rt := range traces {
		trace, contract := decodeTrace(a.chainID, rt)
		fetched.Traces = append(fetched.Traces, trace)
		if contract != nil {
			fetched.Contracts = append(fetched.Contracts, *contract)
		}
	}

	for _, rw := range rb.Withdrawals {
		fetched.Withdrawals = append(fetched.Withdrawals, decodeWithdrawal(a.chainID, rw, uint32(number)))
	}

	return &fetched, nil
}

func decodeLog(chainID uint32, rl rpcclient.RawLog, logIndexFallback int, blockNumber, timestamp uint32) model.Log {
	l := model.Log{
		ChainID:         chainID,
		TransactionHash: model.HexToHash(rl.TransactionHash),
		Address:         model.HexToAddress(rl.Address),
		Data:            model.HexBytes(mustHexBytes(rl.Data)),
		BlockNumber:     blockNumber,
		Timestamp:       timestamp,
	}
	if idx, err := parseHex(rl.LogIndex); err == nil {
		l.LogIndex = uint32(idx)
	} else {
		l.LogIndex = uint32(logIndexFallback)
	}
	topics := make([]model.Hash, 0, len(rl.Topics))
	for _, t := range rl.Topics {
		topics = append(topics, model.HexToHash(t))
	}
	if len(topics) > 0 {
		l.Topic0 = &topics[0]
	}
	if len(topics) > 1 {
		l.Topic1 = &topics[1]
	}
	if len(topics) > 2 {
		l.Topic2 = &topics[2]
	}
	if len(topics) > 3 {
		l.Topic3 = &topics[3]
	}
	return l
}

func decodeTrace(chainID uint32, rt *rpcclient.RawTrace) (model.Trace, *model.Contract) {
	trace := model.Trace{
		ChainID:         chainID,
		TransactionHash: model.HexToHash(rt.TransactionHash),
		TraceAddress:    rt.TraceAddress,
		CallType:        strings.ToLower(rt.Type),
		From:            model.HexToAddress(rt.From),
		Value:           mustU256(rt.Value),
		Input:           model.HexBytes(mustHexBytes(rt.Input)),
		Output:          model.HexBytes(mustHexBytes(rt.Output)),
		Error:           rt.Error,
	}
	if rt.To != "" {
		to := model.HexToAddress(rt.To)
		trace.To = &to
	}
	if gas, err := parseHex(rt.Gas); err == nil {
		trace.Gas = gas
	}
	if gasUsed, err := parseHex(rt.GasUsed); err == nil {
		trace.GasUsed = gasUsed
	}

	var contract *model.Contract
	isCreate := strings.ToLower(rt.Type) == "create" || strings.ToLower(rt.Type) == "create2"
	if isCreate && rt.Error == "" && rt.To != "" {
		contract = &model.Contract{
			ChainID:                chainID,
			Address:                model.HexToAddress(rt.To),
			CreatorTransactionHash: model.HexToHash(rt.TransactionHash),
			Bytecode:               model.HexBytes(mustHexBytes(rt.Output)),
		}
	}
	return trace, contract
}

func decodeWithdrawal(chainID uint32, rw rpcclient.RawWithdrawal, blockNumber uint32) model.Withdrawal {
	w := model.Withdrawal{ChainID: chainID, BlockNumber: blockNumber, Address: model.HexToAddress(rw.Address), Amount: model.NewU256()}
	if idx, err := parseHex(rw.Index); err == nil {
		w.Index = idx
	}
	if vi, err := parseHex(rw.ValidatorIndex); err == nil {
		w.ValidatorIndex = vi
	}
	if amt, err := model.U256FromHex(rw.Amount); err == nil {
		w.Amount = amt
	}
	return w
}

// methodFromInput returns the first 4 bytes of input, empty when input is
// shorter than that.
func methodFromInput(input model.HexBytes) model.HexBytes {
	if len(input) < 4 {
		return model.HexBytes{}
	}
	out := make(model.HexBytes, 4)
	copy(out, input[:4])
	return out
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 16, 64)
}

func parseOptionalU256(s string) (model.U256, bool) {
	if s == "" {
		return model.U256{}, false
	}
	u, err := model.U256FromHex(s)
	if err != nil {
		return model.U256{}, false
	}
	return u, true
}

func mustU256(s string) model.U256 {
	u, ok := parseOptionalU256(s)
	if !ok {
		return model.NewU256()
	}
	return u
}

func mustHexBytes(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b := make([]byte, len(s)/2)
	for i := 0; i < len(b); i++ {
		var v byte
		_, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &v)
		if err != nil {
			return []byte{}
		}
		b[i] = v
	}
	return b
}

func new2(price model.U256, gasUsed uint64) model.U256 {
	out := model.NewU256()
	gu := model.NewU256()
	gu.Int.SetUint64(gasUsed)
	out.Int.Mul(price.Int, gu.Int)
	return out
}

func addU256(a, b model.U256) model.U256 {
	if a.Int == nil {
		a = model.NewU256()
	}
	if b.Int == nil {
		return a
	}
	out := model.NewU256()
	out.Int.Add(a.Int, b.Int)
	return out
}
