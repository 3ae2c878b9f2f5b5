// Package store implements the SQLite-backed persistence layer behind
// the lookup-handle interfaces internal/addrmgr, internal/walletacct,
// internal/claimindex, and internal/blocksync declare (spec.md §9).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the concrete storage handle. One DB backs one wallet's
// addresses, claim index, and sync progress.
type DB struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS addresses (
	account_id TEXT NOT NULL,
	chain      INTEGER NOT NULL,
	n          INTEGER NOT NULL,
	address    TEXT NOT NULL,
	used_times INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (account_id, chain, n)
);
CREATE INDEX IF NOT EXISTS addresses_by_address ON addresses(address);

CREATE TABLE IF NOT EXISTS utxos (
	account_id   TEXT NOT NULL,
	txid         TEXT NOT NULL,
	vout         INTEGER NOT NULL,
	amount       INTEGER NOT NULL,
	height       INTEGER NOT NULL,
	spend_height INTEGER,
	is_claim     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (txid, vout)
);
CREATE INDEX IF NOT EXISTS utxos_by_account ON utxos(account_id, spend_height);

CREATE TABLE IF NOT EXISTS claims (
	claim_id              TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	height                INTEGER NOT NULL,
	tx_position           INTEGER NOT NULL,
	amount                INTEGER NOT NULL,
	payload               BLOB NOT NULL,
	first_input_txid      BLOB NOT NULL,
	claim_hash            BLOB NOT NULL,
	is_signature_valid    INTEGER NOT NULL,
	short_url             TEXT NOT NULL DEFAULT '',
	canonical_url         TEXT NOT NULL DEFAULT '',
	abandoned             INTEGER NOT NULL DEFAULT 0,
	activation_height     INTEGER NOT NULL DEFAULT 0,
	expiration_height     INTEGER NOT NULL DEFAULT 0,
	is_controlling        INTEGER NOT NULL DEFAULT 0,
	signing_channel_id    TEXT NOT NULL DEFAULT '',
	staked_amount         INTEGER NOT NULL DEFAULT 0,
	staked_support_amount INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS claims_by_name ON claims(name, abandoned);

CREATE TABLE IF NOT EXISTS supports (
	claim_id           TEXT NOT NULL,
	name               TEXT NOT NULL,
	height             INTEGER NOT NULL,
	tx_position        INTEGER NOT NULL,
	amount             INTEGER NOT NULL,
	payload            BLOB,
	signing_channel_id TEXT NOT NULL DEFAULT '',
	is_signature_valid INTEGER NOT NULL DEFAULT 0,
	abandoned          INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (claim_id, height, tx_position)
);

CREATE TABLE IF NOT EXISTS channels (
	claim_id             TEXT PRIMARY KEY,
	public_key           BLOB NOT NULL,
	short_url            TEXT NOT NULL DEFAULT '',
	signed_claim_count   INTEGER NOT NULL DEFAULT 0,
	signed_support_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS channel_key_hashes (
	pubkey_hash BLOB PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS sync_tip (
	id     INTEGER PRIMARY KEY CHECK (id = 1),
	height INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS claim_takeovers (
	name     TEXT NOT NULL,
	claim_id TEXT NOT NULL,
	height   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS claim_takeovers_by_name ON claim_takeovers(name, height);

CREATE TABLE IF NOT EXISTS claim_outpoints (
	txid       TEXT NOT NULL,
	vout       INTEGER NOT NULL,
	claim_id   TEXT NOT NULL,
	name       TEXT NOT NULL,
	is_support INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (txid, vout)
);
`

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // modernc's sqlite driver is not safe for concurrent writers
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}
