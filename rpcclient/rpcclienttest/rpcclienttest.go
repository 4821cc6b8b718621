// Package rpcclienttest provides an in-memory rpcclient.Client for
// exercising the Block Assembler, Backfill Coordinator, and Tip Follower
// without a real node.
package rpcclienttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/satschain/evm-indexer/rpcclient"
)

// Fake serves BlockByNumber/ReceiptsForBlock/TracesForBlock from an
// in-memory map keyed by height, with per-height/per-method error
// injection for exercising partial-failure handling.
type Fake struct {
	mu sync.Mutex

	Blocks   map[uint32]*rpcclient.RawBlock
	Receipts map[uint32][]*rpcclient.RawReceipt
	Traces   map[uint32][]*rpcclient.RawTrace

	FailBlock    map[uint32]error
	FailReceipts map[uint32]error
	FailTraces   map[uint32]error

	Tip uint32

	// Heads/SubErr, when set, back SubscribeNewHeads; see fakeSubscription.
	Heads  chan rpcclient.Hash
	SubErr chan error
}

// fakeSubscription adapts Heads/SubErr into the rpcclient.Subscription
// interface FetchBlock's caller (tipfollower.Follower) expects.
type fakeSubscription struct {
	errCh chan error
}

func (s *fakeSubscription) Err() <-chan error { return s.errCh }
func (s *fakeSubscription) Unsubscribe()      {}

func New() *Fake {
	return &Fake{
		Blocks:       make(map[uint32]*rpcclient.RawBlock),
		Receipts:     make(map[uint32][]*rpcclient.RawReceipt),
		Traces:       make(map[uint32][]*rpcclient.RawTrace),
		FailBlock:    make(map[uint32]error),
		FailReceipts: make(map[uint32]error),
		FailTraces:   make(map[uint32]error),
	}
}

func (f *Fake) LastBlockNumber(context.Context) (uint32, error) {
	return f.Tip, nil
}

func (f *Fake) BlockByNumber(_ context.Context, number uint32) (*rpcclient.RawBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailBlock[number]; err != nil {
		return nil, err
	}
	b, ok := f.Blocks[number]
	if !ok {
		return nil, fmt.Errorf("rpcclienttest: no block registered for %d", number)
	}
	return b, nil
}

func (f *Fake) ReceiptsForBlock(_ context.Context, number uint32) ([]*rpcclient.RawReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailReceipts[number]; err != nil {
		return nil, err
	}
	return f.Receipts[number], nil
}

func (f *Fake) TracesForBlock(_ context.Context, number uint32) ([]*rpcclient.RawTrace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailTraces[number]; err != nil {
		return nil, err
	}
	return f.Traces[number], nil
}

func (f *Fake) SubscribeNewHeads(context.Context) (<-chan rpcclient.Hash, rpcclient.Subscription, error) {
	if f.Heads == nil {
		return nil, nil, fmt.Errorf("rpcclienttest: no subscription configured")
	}
	errCh := f.SubErr
	if errCh == nil {
		errCh = make(chan error)
	}
	return f.Heads, &fakeSubscription{errCh: errCh}, nil
}

func (f *Fake) BlockNumberByHash(_ context.Context, hash rpcclient.Hash) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n, b := range f.Blocks {
		if b.Hash == hash {
			return n, nil
		}
	}
	return 0, fmt.Errorf("rpcclienttest: no block registered for hash %s", hash)
}

func (f *Fake) Close() {}

// PutBlock registers a canonical block with no receipts/traces/withdrawals.
func (f *Fake) PutBlock(number uint32, hash, parentHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Blocks[number] = &rpcclient.RawBlock{
		Number:     hexUint(number),
		Hash:       hash,
		ParentHash: parentHash,
		Timestamp:  hexUint(number),
		Difficulty: "0x1",
	}
}

// PutUncle is PutBlock but flags the block as non-canonical.
func (f *Fake) PutUncle(number uint32, hash, parentHash string) {
	f.PutBlock(number, hash, parentHash)
	f.mu.Lock()
	f.Blocks[number].IsUncle = true
	f.mu.Unlock()
}

func hexUint(n uint32) string {
	return fmt.Sprintf("0x%x", n)
}

var _ rpcclient.Client = (*Fake)(nil)
