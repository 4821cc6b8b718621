// Package indexerconfig loads the indexer's process configuration from
// environment variables. No flag library is wired in -- configuration is
// env-var only here, and introducing urfave/cli or cobra (as
// turbo/cli/flags_zkevm.go does) would add a surface nothing calls for
// (see DESIGN.md).
//
// Load's "panic with a descriptive message on a missing required value"
// idiom mirrors turbo/cli/flags_zkevm.go's ApplyFlagsForZkConfig: a
// misconfigured required field is an operator error caught at startup,
// not a runtime one to recover from.
package indexerconfig

import (
	"os"
	"strconv"
)

// Config is the full set of the indexer's environment variables.
type Config struct {
	RPCHTTPURL string
	RPCWSURL   string

	DBHost     string
	DBUsername string
	DBPassword string
	DBName     string

	ChainID uint32

	StartBlock uint32
	EndBlock   int64
	BatchSize  int

	NewBlocksOnly bool

	Debug              bool
	LogDir             string
	ExplorerServerHost string
	ExplorerServerPort int
}

// Load reads and validates the process configuration. It panics on a
// missing required value -- there is no
// sensible default for RPC_HTTP_URL, DB_HOST, DB_USERNAME, DB_PASSWORD,
// DB_NAME, or CHAIN_ID, and continuing with an empty value would fail
// confusingly much later (on the first RPC call or DB connection).
func Load() Config {
	cfg := Config{
		RPCHTTPURL: requireEnv("RPC_HTTP_URL"),
		RPCWSURL:   os.Getenv("RPC_WS_URL"),

		DBHost:     requireEnv("DB_HOST"),
		DBUsername: requireEnv("DB_USERNAME"),
		DBPassword: requireEnv("DB_PASSWORD"),
		DBName:     requireEnv("DB_NAME"),

		ChainID: uint32(requireEnvUint("CHAIN_ID")),

		StartBlock: uint32(envUintDefault("START_BLOCK", 0)),
		EndBlock:   envIntDefault("END_BLOCK", 0),
		BatchSize:  int(envUintDefault("BATCH_SIZE", 200)),

		NewBlocksOnly: envBoolDefault("NEW_BLOCKS_ONLY", false),

		Debug:              envBoolDefault("DEBUG", false),
		LogDir:             os.Getenv("LOG_DIR"),
		ExplorerServerHost: envStringDefault("EXPLORER_SERVER_HOST", "0.0.0.0"),
		ExplorerServerPort: int(envUintDefault("EXPLORER_SERVER_PORT", 8200)),
	}
	return cfg
}

// FollowsTip reports whether the Tip Follower should run: ws_url
// configured and end_block in {0, -1} -- END_BLOCK=-1 reads as "force
// following the tip even though a historical range was also given".
func (c Config) FollowsTip() bool {
	return c.RPCWSURL != "" && (c.EndBlock == 0 || c.EndBlock == -1)
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("indexerconfig: required environment variable " + key + " is not set")
	}
	return v
}

func requireEnvUint(key string) uint64 {
	v := requireEnv(key)
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		panic("indexerconfig: " + key + " must be a non-negative integer, got " + v)
	}
	return n
}

func envUintDefault(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		panic("indexerconfig: " + key + " must be a non-negative integer, got " + v)
	}
	return n
}

func envIntDefault(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		panic("indexerconfig: " + key + " must be an integer, got " + v)
	}
	return n
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic("indexerconfig: " + key + " must be a boolean, got " + v)
	}
	return b
}

func envStringDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
