package indexerconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"RPC_HTTP_URL": "http://localhost:8545",
		"DB_HOST":      "localhost",
		"DB_USERNAME":  "indexer",
		"DB_PASSWORD":  "secret",
		"DB_NAME":      "indexer",
		"CHAIN_ID":     "1",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := Load()
	require.Equal(t, uint32(1), cfg.ChainID)
	require.Equal(t, uint32(0), cfg.StartBlock)
	require.Equal(t, int64(0), cfg.EndBlock)
	require.Equal(t, 200, cfg.BatchSize)
	require.False(t, cfg.NewBlocksOnly)
	require.False(t, cfg.Debug)
	require.Equal(t, "", cfg.LogDir)
	require.Equal(t, "0.0.0.0", cfg.ExplorerServerHost)
	require.Equal(t, 8200, cfg.ExplorerServerPort)
}

func TestLoad_MissingRequiredVarPanics(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_HOST", "")

	require.Panics(t, func() { Load() })
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("START_BLOCK", "100")
	t.Setenv("END_BLOCK", "-1")
	t.Setenv("BATCH_SIZE", "50")
	t.Setenv("NEW_BLOCKS_ONLY", "true")
	t.Setenv("LOG_DIR", "/var/log/indexer")

	cfg := Load()
	require.Equal(t, uint32(100), cfg.StartBlock)
	require.Equal(t, int64(-1), cfg.EndBlock)
	require.Equal(t, 50, cfg.BatchSize)
	require.True(t, cfg.NewBlocksOnly)
	require.Equal(t, "/var/log/indexer", cfg.LogDir)
}

func TestFollowsTip(t *testing.T) {
	cases := []struct {
		name     string
		wsURL    string
		endBlock int64
		want     bool
	}{
		{"no ws url configured", "", 0, false},
		{"unbounded with ws url", "ws://localhost:8546", 0, true},
		{"force-ws end_block -1", "ws://localhost:8546", -1, true},
		{"bounded backfill does not follow tip", "ws://localhost:8546", 500, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{RPCWSURL: tc.wsURL, EndBlock: tc.endBlock}
			require.Equal(t, tc.want, cfg.FollowsTip())
		})
	}
}
