package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cronii/crikeyooo/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_cmds (
	chain_id      BIGINT      NOT NULL,
	tx_hash       TEXT        NOT NULL DEFAULT '',
	payload_hash  TEXT        NOT NULL,
	dex           TEXT        NOT NULL,
	sender        TEXT        NOT NULL,
	proxy         INTEGER     NOT NULL,
	code          SMALLINT    NOT NULL,
	variant       TEXT        NOT NULL,
	command       JSONB       NOT NULL,
	payload       TEXT        NOT NULL,
	value         NUMERIC     NOT NULL DEFAULT 0,
	gas           BIGINT      NOT NULL DEFAULT 0,
	dry_run       BOOLEAN     NOT NULL DEFAULT false,
	block_number  BIGINT      NOT NULL DEFAULT 0,
	status        TEXT        NOT NULL,
	error         TEXT        NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, tx_hash, payload_hash)
)`

// Store provides Postgres persistence for the command journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the user_cmds table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create user_cmds: %w", err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO user_cmds (
	chain_id, tx_hash, payload_hash, dex, sender, proxy, code, variant, command,
	payload, value, gas, dry_run, block_number, status, error, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::text::numeric,$12,$13,$14,$15,$16,$17::text::timestamptz,now())
ON CONFLICT (chain_id, tx_hash, payload_hash)
DO UPDATE SET
	gas = EXCLUDED.gas,
	block_number = EXCLUDED.block_number,
	status = EXCLUDED.status,
	error = EXCLUDED.error,
	updated_at = now()`

// PutCommandRecords inserts or updates command records.
func (s *Store) PutCommandRecords(ctx context.Context, records []model.CommandRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := upsertBatch(records)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func upsertBatch(records []model.CommandRecord) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertSQL, upsertArgs(r)...)
	}
	return batch
}

func upsertArgs(r model.CommandRecord) []interface{} {
	command := []byte(r.Command)
	if len(command) == 0 {
		command = []byte("{}")
	}
	value := r.Value
	if value == "" {
		value = "0"
	}
	return []interface{}{
		int64(r.ChainID),
		r.TxHash,
		r.PayloadHash,
		r.Dex,
		r.Sender,
		int32(r.Proxy),
		int16(r.Code),
		r.Variant,
		command,
		r.Payload,
		value,
		int64(r.Gas),
		r.DryRun,
		int64(r.BlockNumber),
		r.Status,
		r.Error,
		r.CreatedAt,
	}
}

// RecentCommandRecords returns the newest records for a chain.
func (s *Store) RecentCommandRecords(ctx context.Context, chainID uint64, limit int) ([]model.CommandRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, tx_hash, payload_hash, dex, sender, proxy, code, variant, command,
			payload, value::text, gas, dry_run, block_number, status, error,
			to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM user_cmds
		WHERE chain_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, int64(chainID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.CommandRecord
	for rows.Next() {
		var (
			r           model.CommandRecord
			chain       int64
			proxy       int32
			code        int16
			command     []byte
			gas         int64
			blockNumber int64
		)
		if err := rows.Scan(&chain, &r.TxHash, &r.PayloadHash, &r.Dex, &r.Sender, &proxy, &code, &r.Variant,
			&command, &r.Payload, &r.Value, &gas, &r.DryRun, &blockNumber, &r.Status, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ChainID = uint64(chain)
		r.Proxy = uint16(proxy)
		r.Code = uint8(code)
		r.Command = json.RawMessage(command)
		r.Gas = uint64(gas)
		r.BlockNumber = uint64(blockNumber)
		records = append(records, r)
	}
	return records, rows.Err()
}
