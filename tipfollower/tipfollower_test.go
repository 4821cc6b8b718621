package tipfollower

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/require"

	"github.com/satschain/evm-indexer/assembler"
	"github.com/satschain/evm-indexer/rpcclient/rpcclienttest"
	"github.com/satschain/evm-indexer/store"
	"github.com/satschain/evm-indexer/store/storetest"
	"github.com/satschain/evm-indexer/tracker"
)

func newFollowerWithHead(t *testing.T, number uint32, hash string) (*Follower, *rpcclienttest.Fake, *storetest.Fake, *tracker.Tracker) {
	client := rpcclienttest.New()
	client.PutBlock(number, hash, "0xparent")
	client.Heads = make(chan string, 1)

	st := storetest.New()
	tr := tracker.New()
	asm := assembler.New(client, 1, log.New())
	f := New(1, client, asm, st, tr, log.New())
	return f, client, st, tr
}

func TestProcessHead_WritesBlockAndUpdatesTracker(t *testing.T) {
	f, client, st, tr := newFollowerWithHead(t, 10, "0xaaa")
	_ = client

	err := f.processHead(context.Background(), "0xaaa")
	require.NoError(t, err)
	require.Len(t, st.Blocks, 1)
	require.True(t, tr.Contains(10))
}

func TestProcessHead_UncleIsWrittenButNotTracked(t *testing.T) {
	client := rpcclienttest.New()
	client.PutUncle(10, "0xaaa", "0xparent")
	st := storetest.New()
	tr := tracker.New()
	asm := assembler.New(client, 1, log.New())
	f := New(1, client, asm, st, tr, log.New())

	err := f.processHead(context.Background(), "0xaaa")
	require.NoError(t, err)
	require.Len(t, st.Blocks, 1)
	require.False(t, tr.Contains(10))
}

func TestProcessHead_StoreWriteFailureIsFatal(t *testing.T) {
	f, _, st, _ := newFollowerWithHead(t, 10, "0xaaa")
	st.FailWith(store.TableBlocks, storetest.ErrForced)

	err := f.processHead(context.Background(), "0xaaa")
	require.Error(t, err)
}

func TestProcessHead_UnresolvableHashIsNonFatal(t *testing.T) {
	f, _, _, _ := newFollowerWithHead(t, 10, "0xaaa")

	err := f.processHead(context.Background(), "0xdoesnotexist")
	require.NoError(t, err)
}

// followOnce must surface a fatal write failure so Run propagates it and
// the process exits.
func TestFollowOnce_PropagatesFatalWriteFailure(t *testing.T) {
	client := rpcclienttest.New()
	client.PutBlock(10, "0xaaa", "0xparent")
	client.Heads = make(chan string, 1)

	st := storetest.New()
	st.FailWith(store.TableBlocks, storetest.ErrForced)
	tr := tracker.New()
	asm := assembler.New(client, 1, log.New())
	f := New(1, client, asm, st, tr, log.New())

	client.Heads <- "0xaaa"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	fatal, err := f.followOnce(ctx)
	require.NoError(t, err)
	require.Error(t, fatal)
}
