// Package storetest provides an in-memory store.Store for exercising the
// "blocks written last" ordering invariant and the Backfill Coordinator /
// Tip Follower's fatal-write handling without a real Postgres connection.
package storetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/satschain/evm-indexer/model"
	"github.com/satschain/evm-indexer/store"
)

// Fake is a Store whose inserts record call order and can be made to fail
// on demand, so callers can assert the sequencing WriteBatch promises.
type Fake struct {
	mu sync.Mutex

	Calls []string // table name per successful Insert*, in call order
	Fail  map[string]error

	Blocks           []model.Block
	Transactions     []model.Transaction
	Logs             []model.Log
	Traces           []model.Trace
	Contracts        []model.Contract
	Withdrawals      []model.Withdrawal
	ERC20Transfers   []model.ERC20Transfer
	ERC721Transfers  []model.ERC721Transfer
	ERC1155Transfers []model.ERC1155Transfer
	DexTrades        []model.DexTrade

	Indexed map[uint32]struct{}

	IndexedErr error
}

func New() *Fake {
	return &Fake{Fail: make(map[string]error), Indexed: make(map[uint32]struct{})}
}

func (f *Fake) record(table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Fail[table]; err != nil {
		return err
	}
	f.Calls = append(f.Calls, table)
	return nil
}

func (f *Fake) InsertBlocks(_ context.Context, _ uint32, rows []model.Block) error {
	if err := f.record(store.TableBlocks); err != nil {
		return err
	}
	f.mu.Lock()
	f.Blocks = append(f.Blocks, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertTransactions(_ context.Context, _ uint32, rows []model.Transaction) error {
	if err := f.record(store.TableTransactions); err != nil {
		return err
	}
	f.mu.Lock()
	f.Transactions = append(f.Transactions, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertLogs(_ context.Context, _ uint32, rows []model.Log) error {
	if err := f.record(store.TableLogs); err != nil {
		return err
	}
	f.mu.Lock()
	f.Logs = append(f.Logs, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertTraces(_ context.Context, _ uint32, rows []model.Trace) error {
	if err := f.record(store.TableTraces); err != nil {
		return err
	}
	f.mu.Lock()
	f.Traces = append(f.Traces, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertContracts(_ context.Context, _ uint32, rows []model.Contract) error {
	if err := f.record(store.TableContracts); err != nil {
		return err
	}
	f.mu.Lock()
	f.Contracts = append(f.Contracts, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertWithdrawals(_ context.Context, _ uint32, rows []model.Withdrawal) error {
	if err := f.record(store.TableWithdrawals); err != nil {
		return err
	}
	f.mu.Lock()
	f.Withdrawals = append(f.Withdrawals, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertERC20Transfers(_ context.Context, _ uint32, rows []model.ERC20Transfer) error {
	if err := f.record(store.TableERC20Transfers); err != nil {
		return err
	}
	f.mu.Lock()
	f.ERC20Transfers = append(f.ERC20Transfers, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertERC721Transfers(_ context.Context, _ uint32, rows []model.ERC721Transfer) error {
	if err := f.record(store.TableERC721Transfers); err != nil {
		return err
	}
	f.mu.Lock()
	f.ERC721Transfers = append(f.ERC721Transfers, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertERC1155Transfers(_ context.Context, _ uint32, rows []model.ERC1155Transfer) error {
	if err := f.record(store.TableERC1155Transfers); err != nil {
		return err
	}
	f.mu.Lock()
	f.ERC1155Transfers = append(f.ERC1155Transfers, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) InsertDexTrades(_ context.Context, _ uint32, rows []model.DexTrade) error {
	if err := f.record(store.TableDexTrades); err != nil {
		return err
	}
	f.mu.Lock()
	f.DexTrades = append(f.DexTrades, rows...)
	f.mu.Unlock()
	return nil
}

func (f *Fake) IndexedBlockNumbers(_ context.Context, _ uint32) ([]uint32, error) {
	if f.IndexedErr != nil {
		return nil, f.IndexedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, 0, len(f.Indexed))
	for n := range f.Indexed {
		out = append(out, n)
	}
	return out, nil
}

func (f *Fake) QueryBlocks(context.Context, uint32, int) ([]model.Block, error) {
	return f.Blocks, nil
}

func (f *Fake) QueryBlockByNumber(_ context.Context, _ uint32, number uint32) (*model.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Blocks {
		if f.Blocks[i].Number == number {
			return &f.Blocks[i], nil
		}
	}
	return nil, nil
}

func (f *Fake) QueryTransactions(context.Context, uint32, int) ([]model.Transaction, error) {
	return f.Transactions, nil
}

func (f *Fake) QueryTransactionByHash(_ context.Context, _ uint32, hash model.Hash) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Transactions {
		if f.Transactions[i].Hash == hash {
			return &f.Transactions[i], nil
		}
	}
	return nil, nil
}

func (f *Fake) QueryStats(context.Context, uint32) (store.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return store.Stats{
		TotalBlocks:       uint64(len(f.Blocks)),
		TotalTransactions: uint64(len(f.Transactions)),
	}, nil
}

func (f *Fake) Close() {}

// FailWith arranges for every later Insert call on table to return err.
func (f *Fake) FailWith(table string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fail[table] = err
}

var _ store.Store = (*Fake)(nil)

// ErrForced is a stand-in insert failure for tests that don't care about
// the underlying driver error's content.
var ErrForced = fmt.Errorf("storetest: forced insert failure")
