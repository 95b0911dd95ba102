// Package store provides the persistent FTS5-backed storage engine.
// See doc.go for complete package documentation.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dreamware/torua/internal/cluster"

	_ "github.com/mattn/go-sqlite3"
)

// ErrReadOnly is returned by every write path when the shard is read-only.
var ErrReadOnly = errors.New("store: read-only")

// ConstraintError wraps a SQLite constraint violation surfaced from
// Upsert.
type ConstraintError struct{ Err error }

func (e *ConstraintError) Error() string { return fmt.Sprintf("store: constraint violation: %v", e.Err) }
func (e *ConstraintError) Unwrap() error  { return e.Err }

// SchemaVersion is the only persisted schema version this build
// understands; opening a store whose db_version is higher is refused
// rather than risking a silent downgrade.
const SchemaVersion = 1

// chunkSize is the number of documents batched per Upsert statement (15
// documents, 30 bound params in string mode).
const chunkSize = 15

// Stats is the result of CountAndBytes: document count and actual on-disk
// size.
type Stats struct {
	Count int64
	Bytes int64
}

// Store is the storage contract a shard drives: document upsert/delete/
// search/scan, plus the persisted-state accessors every shard reads and
// writes through its own lock.
type Store interface {
	Upsert(ctx context.Context, batch []cluster.StoredDocument) error
	DeleteByRowidUpTo(ctx context.Context, maxRowid int64) (int64, error)
	Match(ctx context.Context, query string, limit int) ([]cluster.Hit, error)
	ScanSince(ctx context.Context, cursor int64, limit int) ([]cluster.ScannedDocument, error)
	CountAndBytes(ctx context.Context) (Stats, error)

	SetReadOnly(ctx context.Context, readOnly bool) error
	IsReadOnly() bool

	LoadConfig(ctx context.Context) (cluster.ShardConfig, bool, error)
	SaveConfig(ctx context.Context, cfg cluster.ShardConfig) error
	LoadCursor(ctx context.Context) (int64, error)
	SaveCursor(ctx context.Context, rowid int64) error
	LoadColdIndex(ctx context.Context) (int, error)
	SaveColdIndex(ctx context.Context, idx int) error

	Close() error
}

// SQLiteStore implements Store over a single *sql.DB, opened with exactly
// one connection so SQLite's own serialization lines up with the shard's
// single-writer discipline.
type SQLiteStore struct {
	db       *sql.DB
	idType   cluster.IDType
	path     string
	readOnly atomic.Bool
}

// Open creates or opens the FTS5 database at path for the given idType.
// idType chooses which documents table is created on first creation;
// reopening an existing database keeps the table it already has, but
// idType still selects the shape of every upsert, match and scan query,
// so the caller must pass the same value back (it is persisted separately
// via SaveConfig).
func Open(path string, idType cluster.IDType) (*SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}

	s := &SQLiteStore{db: db, idType: idType, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS shard_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create shard_meta: %w", err)
	}

	version, err := s.metaInt("db_version")
	if err != nil {
		return err
	}
	if version == 0 {
		if err := s.setMeta("db_version", strconv.Itoa(SchemaVersion)); err != nil {
			return err
		}
		version = SchemaVersion
	}
	if version > SchemaVersion {
		return fmt.Errorf("store: db_version %d is newer than this build understands (max %d)", version, SchemaVersion)
	}

	var ddl string
	switch s.idType {
	case cluster.IDTypeString:
		ddl = `CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(id UNINDEXED, content, tokenize='porter unicode61')`
	default:
		ddl = `CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(content, tokenize='porter unicode61')`
	}
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SetReadOnly flips the in-memory read-only latch checked by every write
// path. Persisting the flag is the caller's job (SaveConfig stores it as
// part of ShardConfig); SetReadOnly only controls Store-level enforcement.
func (s *SQLiteStore) SetReadOnly(_ context.Context, readOnly bool) error {
	s.readOnly.Store(readOnly)
	return nil
}

// IsReadOnly reports the current read-only latch.
func (s *SQLiteStore) IsReadOnly() bool { return s.readOnly.Load() }

// Upsert chunks batch at chunkSize documents per statement and executes
// each chunk as an independent statement in insertion order; a failure
// partway through leaves earlier chunks committed, so callers must treat
// Upsert as best-effort idempotent rather than atomic across the whole
// batch.
func (s *SQLiteStore) Upsert(ctx context.Context, batch []cluster.StoredDocument) error {
	if s.readOnly.Load() {
		return ErrReadOnly
	}
	for start := 0; start < len(batch); start += chunkSize {
		end := start + chunkSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := s.upsertChunk(ctx, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) upsertChunk(ctx context.Context, chunk []cluster.StoredDocument) error {
	if s.idType == cluster.IDTypeString {
		return s.upsertChunkString(ctx, chunk)
	}
	return s.upsertChunkInteger(ctx, chunk)
}

func (s *SQLiteStore) upsertChunkInteger(ctx context.Context, chunk []cluster.StoredDocument) error {
	values := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*2)
	for _, doc := range chunk {
		rowid, err := toRowid(doc.ID)
		if err != nil {
			return &ConstraintError{Err: err}
		}
		values = append(values, "(?, ?)")
		args = append(args, rowid, doc.FilteredContent)
	}
	query := fmt.Sprintf("REPLACE INTO documents(rowid, content) VALUES %s", strings.Join(values, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &ConstraintError{Err: err}
	}
	return nil
}

func (s *SQLiteStore) upsertChunkString(ctx context.Context, chunk []cluster.StoredDocument) error {
	ids := make([]interface{}, 0, len(chunk))
	placeholders := make([]string, 0, len(chunk))
	for _, doc := range chunk {
		ids = append(ids, doc.ID)
		placeholders = append(placeholders, "?")
	}
	deleteQuery := fmt.Sprintf("DELETE FROM documents WHERE id IN (%s)", strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, deleteQuery, ids...); err != nil {
		return &ConstraintError{Err: err}
	}

	values := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*2)
	for _, doc := range chunk {
		values = append(values, "(?, ?)")
		args = append(args, doc.ID, doc.FilteredContent)
	}
	insertQuery := fmt.Sprintf("INSERT INTO documents(id, content) VALUES %s", strings.Join(values, ", "))
	if _, err := s.db.ExecContext(ctx, insertQuery, args...); err != nil {
		return &ConstraintError{Err: err}
	}
	return nil
}

func toRowid(id interface{}) (int64, error) {
	switch v := id.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("integer-mode id must be numeric, got %T", id)
	}
}

// DeleteByRowidUpTo deletes every row with rowid <= maxRowid, returning the
// number of rows removed. Unlike Upsert, this is not gated by read-only:
// count-based purge and cold-storage migration both need to keep trimming
// a sealed shard's oldest rows after SetReadOnly(true).
func (s *SQLiteStore) DeleteByRowidUpTo(ctx context.Context, maxRowid int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE rowid <= ?`, maxRowid)
	if err != nil {
		return 0, fmt.Errorf("delete by rowid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// needsQuoting is the set of single characters that force phrase-mode
// FTS5 queries: a query containing any of these characters, or the "--"
// sequence, is wrapped as a quoted phrase before binding.
const needsQuoting = `"';`

// Match executes a full-text query, capped at limit rows. A query
// containing any of " ' ; -- is first wrapped as a quoted phrase (doubling
// embedded quotes) to force phrase mode; otherwise it is passed through
// as-is. On an FTS5 parse failure, Match retries once as a quoted phrase
// with a conservative cap of 50.
func (s *SQLiteStore) Match(ctx context.Context, query string, limit int) ([]cluster.Hit, error) {
	bound := query
	if strings.ContainsAny(query, needsQuoting) || strings.Contains(query, "--") {
		bound = quotePhrase(query)
	}

	hits, err := s.match(ctx, bound, limit)
	if err == nil {
		return hits, nil
	}

	retryLimit := limit
	if retryLimit > 50 || retryLimit <= 0 {
		retryLimit = 50
	}
	hits, retryErr := s.match(ctx, quotePhrase(query), retryLimit)
	if retryErr != nil {
		return nil, fmt.Errorf("fts query failed (%v), quoted retry failed: %w", err, retryErr)
	}
	return hits, nil
}

func quotePhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

func (s *SQLiteStore) match(ctx context.Context, boundQuery string, limit int) ([]cluster.Hit, error) {
	idExpr := "rowid"
	if s.idType == cluster.IDTypeString {
		idExpr = "id"
	}
	sqlText := fmt.Sprintf(
		`SELECT %s, content, rank FROM documents WHERE documents MATCH ? ORDER BY rank LIMIT ?`,
		idExpr,
	)
	rows, err := s.db.QueryContext(ctx, sqlText, boundQuery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []cluster.Hit
	for rows.Next() {
		var (
			id      interface{}
			content string
			rank    float64
		)
		if s.idType == cluster.IDTypeString {
			var idStr string
			if err := rows.Scan(&idStr, &content, &rank); err != nil {
				return nil, err
			}
			id = idStr
		} else {
			var idInt int64
			if err := rows.Scan(&idInt, &content, &rank); err != nil {
				return nil, err
			}
			id = idInt
		}
		hits = append(hits, cluster.Hit{ID: id, Content: content, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// ScanSince returns rows with rowid > cursor, ordered by rowid ascending.
// limit <= 0 means unbounded.
func (s *SQLiteStore) ScanSince(ctx context.Context, cursor int64, limit int) ([]cluster.ScannedDocument, error) {
	idExpr := "rowid"
	if s.idType == cluster.IDTypeString {
		idExpr = "id"
	}
	sqlText := fmt.Sprintf(`SELECT rowid, %s, content FROM documents WHERE rowid > ? ORDER BY rowid ASC`, idExpr)
	args := []interface{}{cursor}
	if limit > 0 {
		sqlText += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("scan since: %w", err)
	}
	defer rows.Close()

	var out []cluster.ScannedDocument
	for rows.Next() {
		var (
			rowid   int64
			id      interface{}
			content string
		)
		if s.idType == cluster.IDTypeString {
			var idStr string
			if err := rows.Scan(&rowid, &idStr, &content); err != nil {
				return nil, err
			}
			id = idStr
		} else {
			var idInt int64
			if err := rows.Scan(&rowid, &idInt, &content); err != nil {
				return nil, err
			}
			id = idInt
		}
		out = append(out, cluster.ScannedDocument{Rowid: rowid, ID: id, Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountAndBytes returns the row count and the actual on-disk database size
// (I4: "not an estimate"), computed from SQLite's own page accounting.
func (s *SQLiteStore) CountAndBytes(ctx context.Context) (Stats, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return Stats{}, fmt.Errorf("page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return Stats{}, fmt.Errorf("page_size: %w", err)
	}

	return Stats{Count: count, Bytes: pageCount * pageSize}, nil
}

// --- persisted scalars ---

func (s *SQLiteStore) metaString(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM shard_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) metaInt(key string) (int64, error) {
	value, ok, err := s.metaString(key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, nil // ConfigCorruption-style tolerance: treat as absent, not fatal.
	}
	return n, nil
}

func (s *SQLiteStore) setMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO shard_meta(key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// LoadConfig deserializes the persisted ShardConfig. A corrupt or absent
// record is treated as an empty config rather than an error — the shard
// logs and keeps accepting writes rather than refusing to start; the bool
// return distinguishes "never configured" from "configured but empty",
// which callers use to decide whether the shard is in state Fresh.
func (s *SQLiteStore) LoadConfig(_ context.Context) (cluster.ShardConfig, bool, error) {
	raw, ok, err := s.metaString("config")
	if err != nil {
		return cluster.ShardConfig{}, false, err
	}
	if !ok {
		return cluster.ShardConfig{}, false, nil
	}
	var cfg cluster.ShardConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cluster.ShardConfig{}, true, nil // corrupt: empty config, but "was configured" stays true
	}
	return cfg, true, nil
}

// SaveConfig persists cfg as the shard's durable configuration.
func (s *SQLiteStore) SaveConfig(_ context.Context, cfg cluster.ShardConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return s.setMeta("config", string(raw))
}

// LoadCursor returns the persisted lastSyncedRowid, or 0 if never set.
func (s *SQLiteStore) LoadCursor(_ context.Context) (int64, error) {
	return s.metaInt("lastSyncedRowid")
}

// SaveCursor persists the replication cursor as an individually-durable
// scalar write rather than folding it into a larger transaction.
func (s *SQLiteStore) SaveCursor(_ context.Context, rowid int64) error {
	return s.setMeta("lastSyncedRowid", strconv.FormatInt(rowid, 10))
}

// LoadColdIndex returns the persisted currentColdIndex, or 0 if never set.
func (s *SQLiteStore) LoadColdIndex(_ context.Context) (int, error) {
	n, err := s.metaInt("currentColdIndex")
	return int(n), err
}

// SaveColdIndex persists currentColdIndex.
func (s *SQLiteStore) SaveColdIndex(_ context.Context, idx int) error {
	return s.setMeta("currentColdIndex", strconv.Itoa(idx))
}
