// Package pgstore is the concrete store.Store backed by Postgres, standing
// in for the columnar analytical engine as an external collaborator.
// Grounded on other_examples/.../internal-store-adapter.go's pgxpool.Pool
// handle and its "ON CONFLICT" merge-on-primary-key emulation: blocks and
// transactions use DO UPDATE, the other eight tables DO NOTHING
// (insertion is idempotent only insofar as it deduplicates on
// primary key); uses github.com/jackc/pgx/v4 for the same reason the
// adapter example does: a fast batched driver with its own pool and no
// ORM indirection.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ledgerwatch/log/v3"

	"github.com/satschain/evm-indexer/model"
	"github.com/satschain/evm-indexer/store"
)

// Config names the columnar store connection parameters: DB_HOST,
// DB_USERNAME, DB_PASSWORD, DB_NAME. Pool sizing and idle timeout are left
// at pgxpool defaults here; no env var overrides them.
type Config struct {
	Host     string
	Username string
	Password string
	Database string
}

type pgStore struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New connects to the columnar store and returns it as a store.Store.
func New(ctx context.Context, cfg Config, logger log.Logger) (store.Store, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s", cfg.Username, cfg.Password, cfg.Host, cfg.Database)
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}
	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	return &pgStore{pool: pool, logger: logger}, nil
}

func (s *pgStore) Close() { s.pool.Close() }

// execBatch sends one pgx.Batch and fails on the first statement error,
// matching the store_items-per-table-fails-the-whole-call contract in
// original_source/src/db/mod.rs.
func (s *pgStore) execBatch(ctx context.Context, table string, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	br := s.pool.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("pgstore: insert into %s: %w", table, err)
		}
	}
	return nil
}

func (s *pgStore) InsertBlocks(ctx context.Context, chainID uint32, rows []model.Block) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO blocks (
			chain_id, number, hash, parent_hash, timestamp, miner, nonce, gas_limit,
			gas_used, base_fee_per_gas, difficulty, total_difficulty, size, uncles,
			transactions, total_fee_reward, burned, is_uncle
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (chain_id, number) DO UPDATE SET
			hash = EXCLUDED.hash, parent_hash = EXCLUDED.parent_hash,
			timestamp = EXCLUDED.timestamp, miner = EXCLUDED.miner,
			nonce = EXCLUDED.nonce, gas_limit = EXCLUDED.gas_limit,
			gas_used = EXCLUDED.gas_used, base_fee_per_gas = EXCLUDED.base_fee_per_gas,
			difficulty = EXCLUDED.difficulty, total_difficulty = EXCLUDED.total_difficulty,
			size = EXCLUDED.size, uncles = EXCLUDED.uncles,
			transactions = EXCLUDED.transactions, total_fee_reward = EXCLUDED.total_fee_reward,
			burned = EXCLUDED.burned, is_uncle = EXCLUDED.is_uncle`,
			chainID, r.Number, r.Hash.Hex(), r.ParentHash.Hex(), r.Timestamp, r.Miner.Hex(),
			r.Nonce.String(), r.GasLimit, r.GasUsed, optU256Dec(r.BaseFeePerGas), r.Difficulty.Dec(),
			optU256Dec(r.TotalDifficulty), r.Size, uncleHexes(r.Uncles), r.Transactions,
			r.TotalFeeReward.Dec(), r.Burned.Dec(), r.IsUncle,
		)
	}
	return s.execBatch(ctx, store.TableBlocks, b)
}

func (s *pgStore) InsertTransactions(ctx context.Context, chainID uint32, rows []model.Transaction) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO transactions (
			chain_id, hash, block_number, transaction_index, from_address, to_address, value,
			gas, gas_price, max_fee_per_gas, max_priority_fee_per_gas, input, nonce,
			transaction_type, status, gas_used, cumulative_gas_used, effective_transaction_fee,
			contract_created, method, burned, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		ON CONFLICT (chain_id, hash) DO UPDATE SET
			block_number = EXCLUDED.block_number, status = EXCLUDED.status,
			gas_used = EXCLUDED.gas_used, cumulative_gas_used = EXCLUDED.cumulative_gas_used,
			effective_transaction_fee = EXCLUDED.effective_transaction_fee,
			contract_created = EXCLUDED.contract_created, burned = EXCLUDED.burned`,
			chainID, r.Hash.Hex(), r.BlockNumber, r.TransactionIndex, r.From.Hex(),
			optAddrHex(r.To), r.Value.Dec(), r.Gas, optU256Dec(r.GasPrice), optU256Dec(r.MaxFeePerGas),
			optU256Dec(r.MaxPriorityFeePerGas), r.Input.String(), r.Nonce, r.TransactionType,
			r.Status, optUint64(r.GasUsed), r.CumulativeGasUsed, optU256Dec(r.EffectiveTransactionFee),
			optAddrHex(r.ContractCreated), r.Method.String(), optU256Dec(r.Burned), r.Timestamp,
		)
	}
	return s.execBatch(ctx, store.TableTransactions, b)
}

func (s *pgStore) InsertLogs(ctx context.Context, chainID uint32, rows []model.Log) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO logs (
			chain_id, transaction_hash, log_index, address, topic0, topic1, topic2, topic3,
			data, block_number, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (chain_id, transaction_hash, log_index) DO NOTHING`,
			chainID, r.TransactionHash.Hex(), r.LogIndex, r.Address.Hex(),
			optHashHex(r.Topic0), optHashHex(r.Topic1), optHashHex(r.Topic2), optHashHex(r.Topic3),
			r.Data.String(), r.BlockNumber, r.Timestamp,
		)
	}
	return s.execBatch(ctx, store.TableLogs, b)
}

func (s *pgStore) InsertTraces(ctx context.Context, chainID uint32, rows []model.Trace) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO traces (
			chain_id, transaction_hash, trace_address, call_type, from_address, to_address,
			value, input, output, gas, gas_used, error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (chain_id, transaction_hash, trace_address) DO NOTHING`,
			chainID, r.TransactionHash.Hex(), r.TraceAddress, r.CallType, r.From.Hex(),
			optAddrHex(r.To), r.Value.Dec(), r.Input.String(), r.Output.String(), r.Gas,
			r.GasUsed, r.Error,
		)
	}
	return s.execBatch(ctx, store.TableTraces, b)
}

func (s *pgStore) InsertContracts(ctx context.Context, chainID uint32, rows []model.Contract) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO contracts (chain_id, address, creator_transaction_hash, bytecode)
		VALUES ($1,$2,$3,$4) ON CONFLICT (chain_id, address) DO NOTHING`,
			chainID, r.Address.Hex(), r.CreatorTransactionHash.Hex(), r.Bytecode.String(),
		)
	}
	return s.execBatch(ctx, store.TableContracts, b)
}

func (s *pgStore) InsertWithdrawals(ctx context.Context, chainID uint32, rows []model.Withdrawal) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO withdrawals (chain_id, block_number, index, validator_index, address, amount)
		VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (chain_id, block_number, index) DO NOTHING`,
			chainID, r.BlockNumber, r.Index, r.ValidatorIndex, r.Address.Hex(), r.Amount.Dec(),
		)
	}
	return s.execBatch(ctx, store.TableWithdrawals, b)
}

func (s *pgStore) InsertERC20Transfers(ctx context.Context, chainID uint32, rows []model.ERC20Transfer) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO erc20_transfers (
			chain_id, transaction_hash, log_index, token_address, from_address, to_address,
			value, block_number, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (chain_id, transaction_hash, log_index) DO NOTHING`,
			chainID, r.TransactionHash.Hex(), r.LogIndex, r.TokenAddress.Hex(), r.From.Hex(),
			r.To.Hex(), r.Value.Dec(), r.BlockNumber, r.Timestamp,
		)
	}
	return s.execBatch(ctx, store.TableERC20Transfers, b)
}

func (s *pgStore) InsertERC721Transfers(ctx context.Context, chainID uint32, rows []model.ERC721Transfer) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO erc721_transfers (
			chain_id, transaction_hash, log_index, token_address, from_address, to_address,
			token_id, block_number, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (chain_id, transaction_hash, log_index) DO NOTHING`,
			chainID, r.TransactionHash.Hex(), r.LogIndex, r.TokenAddress.Hex(), r.From.Hex(),
			r.To.Hex(), r.TokenID.Dec(), r.BlockNumber, r.Timestamp,
		)
	}
	return s.execBatch(ctx, store.TableERC721Transfers, b)
}

func (s *pgStore) InsertERC1155Transfers(ctx context.Context, chainID uint32, rows []model.ERC1155Transfer) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO erc1155_transfers (
			chain_id, transaction_hash, log_index, batch_index, token_address, operator,
			from_address, to_address, token_id, value, block_number, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (chain_id, transaction_hash, log_index, batch_index) DO NOTHING`,
			chainID, r.TransactionHash.Hex(), r.LogIndex, r.BatchIndex, r.TokenAddress.Hex(),
			r.Operator.Hex(), r.From.Hex(), r.To.Hex(), r.TokenID.Dec(), r.Value.Dec(),
			r.BlockNumber, r.Timestamp,
		)
	}
	return s.execBatch(ctx, store.TableERC1155Transfers, b)
}

func (s *pgStore) InsertDexTrades(ctx context.Context, chainID uint32, rows []model.DexTrade) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`INSERT INTO dex_trades (
			chain_id, transaction_hash, log_index, pool_address, sender, recipient,
			amount0, amount1, block_number, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (chain_id, transaction_hash, log_index) DO NOTHING`,
			chainID, r.TransactionHash.Hex(), r.LogIndex, r.PoolAddress.Hex(), r.Sender.Hex(),
			r.Recipient.Hex(), r.Amount0, r.Amount1, r.BlockNumber, r.Timestamp,
		)
	}
	return s.execBatch(ctx, store.TableDexTrades, b)
}

// IndexedBlockNumbers backs tracker.Load's warmup query: "SELECT number
// FROM blocks WHERE chain_id = ? AND is_uncle = false".
func (s *pgStore) IndexedBlockNumbers(ctx context.Context, chainID uint32) ([]uint32, error) {
	rows, err := s.pool.Query(ctx, `SELECT number FROM blocks WHERE chain_id = $1 AND is_uncle = false`, chainID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query indexed block numbers: %w", err)
	}
	defer rows.Close()

	var out []uint32
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("pgstore: scan block number: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *pgStore) QueryBlocks(ctx context.Context, chainID uint32, limit int) ([]model.Block, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT number, hash, parent_hash, timestamp, miner, transactions, is_uncle
		FROM blocks WHERE chain_id = $1 ORDER BY number DESC LIMIT $2`, chainID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query blocks: %w", err)
	}
	defer rows.Close()

	var out []model.Block
	for rows.Next() {
		var blk model.Block
		var hash, parentHash, miner string
		if err := rows.Scan(&blk.Number, &hash, &parentHash, &blk.Timestamp, &miner, &blk.Transactions, &blk.IsUncle); err != nil {
			return nil, fmt.Errorf("pgstore: scan block: %w", err)
		}
		blk.ChainID = chainID
		blk.Hash = model.HexToHash(hash)
		blk.ParentHash = model.HexToHash(parentHash)
		blk.Miner = model.HexToAddress(miner)
		out = append(out, blk)
	}
	return out, rows.Err()
}

func (s *pgStore) QueryBlockByNumber(ctx context.Context, chainID uint32, number uint32) (*model.Block, error) {
	var blk model.Block
	var hash, parentHash, miner string
	err := s.pool.QueryRow(ctx, `
		SELECT number, hash, parent_hash, timestamp, miner, transactions, is_uncle
		FROM blocks WHERE chain_id = $1 AND number = $2`, chainID, number,
	).Scan(&blk.Number, &hash, &parentHash, &blk.Timestamp, &miner, &blk.Transactions, &blk.IsUncle)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: query block %d: %w", number, err)
	}
	blk.ChainID = chainID
	blk.Hash = model.HexToHash(hash)
	blk.ParentHash = model.HexToHash(parentHash)
	blk.Miner = model.HexToAddress(miner)
	return &blk, nil
}

func (s *pgStore) QueryTransactions(ctx context.Context, chainID uint32, limit int) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT hash, block_number, from_address, to_address, value, status, timestamp
		FROM transactions WHERE chain_id = $1 ORDER BY block_number DESC, transaction_index DESC LIMIT $2`,
		chainID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		var hash, from string
		var to *string
		var value string
		if err := rows.Scan(&hash, &tx.BlockNumber, &from, &to, &value, &tx.Status, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("pgstore: scan transaction: %w", err)
		}
		tx.ChainID = chainID
		tx.Hash = model.HexToHash(hash)
		tx.From = model.HexToAddress(from)
		if to != nil {
			addr := model.HexToAddress(*to)
			tx.To = &addr
		}
		if v, err := model.U256FromBig(value); err == nil {
			tx.Value = v
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *pgStore) QueryTransactionByHash(ctx context.Context, chainID uint32, hash model.Hash) (*model.Transaction, error) {
	var tx model.Transaction
	var from string
	var to *string
	var value string
	err := s.pool.QueryRow(ctx, `
		SELECT block_number, from_address, to_address, value, status, timestamp
		FROM transactions WHERE chain_id = $1 AND hash = $2`, chainID, hash.Hex(),
	).Scan(&tx.BlockNumber, &from, &to, &value, &tx.Status, &tx.Timestamp)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: query transaction %s: %w", hash.Hex(), err)
	}
	tx.ChainID = chainID
	tx.Hash = hash
	tx.From = model.HexToAddress(from)
	if to != nil {
		addr := model.HexToAddress(*to)
		tx.To = &addr
	}
	if v, err := model.U256FromBig(value); err == nil {
		tx.Value = v
	}
	return &tx, nil
}

func (s *pgStore) QueryStats(ctx context.Context, chainID uint32) (store.Stats, error) {
	var st store.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM blocks WHERE chain_id = $1 AND is_uncle = false),
			(SELECT count(*) FROM transactions WHERE chain_id = $1),
			(SELECT count(DISTINCT from_address) FROM transactions WHERE chain_id = $1)
	`, chainID).Scan(&st.TotalBlocks, &st.TotalTransactions, &st.TotalAddresses)
	if err != nil {
		return store.Stats{}, fmt.Errorf("pgstore: query stats: %w", err)
	}
	return st, nil
}

func optU256Dec(u *model.U256) *string {
	if u == nil || u.Int == nil {
		return nil
	}
	s := u.Int.Dec()
	return &s
}

func optUint64(u *uint64) *uint64 { return u }

func optAddrHex(a *model.Address) *string {
	if a == nil {
		return nil
	}
	s := a.Hex()
	return &s
}

func optHashHex(h *model.Hash) *string {
	if h == nil {
		return nil
	}
	s := h.Hex()
	return &s
}

func uncleHexes(uncles []model.Hash) []string {
	out := make([]string, len(uncles))
	for i, u := range uncles {
		out[i] = u.Hex()
	}
	return out
}
