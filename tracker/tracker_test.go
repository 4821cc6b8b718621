package tracker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satschain/evm-indexer/store/storetest"
)

func TestLoad_WarmsUpFromStore(t *testing.T) {
	fake := storetest.New()
	fake.Indexed[1] = struct{}{}
	fake.Indexed[2] = struct{}{}

	tr, err := Load(context.Background(), fake, 7)
	require.NoError(t, err)
	require.Equal(t, 2, tr.Len())
	require.True(t, tr.Contains(1))
	require.True(t, tr.Contains(2))
	require.False(t, tr.Contains(3))
}

// A warmup query failure is non-fatal: Load still returns a usable, empty
// Tracker rather than a nil one.
func TestLoad_QueryFailureReturnsEmptyTracker(t *testing.T) {
	fake := storetest.New()
	fake.IndexedErr = fmt.Errorf("connection refused")

	tr, err := Load(context.Background(), fake, 7)
	require.Error(t, err)
	require.NotNil(t, tr)
	require.Equal(t, 0, tr.Len())
}

func TestInsert_IsMonotonic(t *testing.T) {
	tr := New()
	require.False(t, tr.Contains(5))
	tr.Insert(5)
	require.True(t, tr.Contains(5))
	tr.Insert(5)
	require.Equal(t, 1, tr.Len())
}

func TestSnapshot_IsACopy(t *testing.T) {
	tr := New()
	tr.Insert(1)
	snap := tr.Snapshot()
	tr.Insert(2)

	require.Len(t, snap, 1)
	require.Equal(t, 2, tr.Len())
}
