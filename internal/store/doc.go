// Package store implements the Store interface over a SQLite FTS5 virtual
// table, and provides the persisted envelope (config, sync cursor,
// cold-shard index, schema version) every shard reads through its own
// lock.
//
// # Overview
//
// Each shard owns exactly one *sql.DB, opened with a single connection
// (db.SetMaxOpenConns(1)) so that SQLite's own single-writer model lines up
// with the shard's single-writer actor discipline instead of fighting it
// with a connection pool.
//
// # Schema
//
// One of two FTS5 virtual tables is created when Open first creates the
// database, chosen by cluster.IDType and never changed afterward:
//
//	-- integer mode: rowid IS the document id (Upsert writes it as rowid)
//	CREATE VIRTUAL TABLE documents USING fts5(content, tokenize='porter unicode61');
//
//	-- string mode: rowid is assigned by SQLite, id is a separate column
//	CREATE VIRTUAL TABLE documents USING fts5(id UNINDEXED, content, tokenize='porter unicode61');
//
// A small non-FTS table, shard_meta, holds the persisted scalars every
// shard needs to survive a restart: db_version, config (serialized JSON),
// lastSyncedRowid, currentColdIndex.
//
// # Parameter budget
//
// Upsert keeps every statement within a budget of 32 bound parameters by
// chunking batches at 15 documents per statement (each row binds two
// values, id or rowid plus content, i.e. 30 params at 15 rows); larger
// batches become independent statements run in insertion order, so a
// failure partway through leaves earlier chunks committed — Upsert is
// best-effort idempotent, never transactional across the whole batch.
package store
