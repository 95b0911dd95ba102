package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/torua/internal/cluster"
)

func openTestStore(t *testing.T, idType cluster.IDType) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:", idType)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndMatchStringMode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)

	err := s.Upsert(ctx, []cluster.StoredDocument{
		{ID: "a", FilteredContent: "javascript programming tutorial"},
	})
	require.NoError(t, err)

	hits, err := s.Match(ctx, "javascript", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestUpsertIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)

	require.NoError(t, s.Upsert(ctx, []cluster.StoredDocument{{ID: "u", FilteredContent: "a"}}))
	require.NoError(t, s.Upsert(ctx, []cluster.StoredDocument{{ID: "u", FilteredContent: "b"}}))

	stats, err := s.CountAndBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count)

	hits, err := s.Match(ctx, "b", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "u", hits[0].ID)
}

func TestUpsertIntegerModeUsesIDAsRowid(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeInteger)

	require.NoError(t, s.Upsert(ctx, []cluster.StoredDocument{
		{ID: int64(42), FilteredContent: "hello world"},
	}))

	rows, err := s.ScanSince(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 42, rows[0].Rowid)
	assert.EqualValues(t, 42, rows[0].ID)
}

func TestUpsertChunksLargeBatches(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)

	batch := make([]cluster.StoredDocument, 0, 40)
	for i := 0; i < 40; i++ {
		batch = append(batch, cluster.StoredDocument{
			ID:              idFor(i),
			FilteredContent: "unique term " + idFor(i),
		})
	}
	require.NoError(t, s.Upsert(ctx, batch))

	stats, err := s.CountAndBytes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 40, stats.Count)
}

func idFor(i int) string {
	return "doc-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestMatchQuotesQueriesContainingSpecialChars(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)
	require.NoError(t, s.Upsert(ctx, []cluster.StoredDocument{
		{ID: "x", FilteredContent: "select value"},
	}))

	// "select; drop" contains ';' and would otherwise be invalid FTS5
	// syntax; Match must quote it instead of erroring.
	hits, err := s.Match(ctx, "select; drop", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMatchFallsBackToQuotedPhraseOnParseFailure(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)
	require.NoError(t, s.Upsert(ctx, []cluster.StoredDocument{
		{ID: "x", FilteredContent: "open bracket term"},
	}))

	// An unbalanced FTS5 operator like a lone '(' is a parse error that
	// does not contain any of the pre-quoting trigger characters.
	hits, err := s.Match(ctx, "(", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteByRowidUpTo(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeInteger)
	require.NoError(t, s.Upsert(ctx, []cluster.StoredDocument{
		{ID: int64(1), FilteredContent: "one"},
		{ID: int64(2), FilteredContent: "two"},
		{ID: int64(3), FilteredContent: "three"},
	}))

	n, err := s.DeleteByRowidUpTo(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	stats, err := s.CountAndBytes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Count)
}

func TestReadOnlyRejectsUpsertButAllowsPurge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)
	require.NoError(t, s.Upsert(ctx, []cluster.StoredDocument{{ID: "a", FilteredContent: "x"}}))
	require.NoError(t, s.SetReadOnly(ctx, true))

	err := s.Upsert(ctx, []cluster.StoredDocument{{ID: "b", FilteredContent: "y"}})
	assert.ErrorIs(t, err, ErrReadOnly)

	// Lifecycle migration and count-based purge must keep working on a
	// sealed shard, so DeleteByRowidUpTo is not gated by read-only.
	n, err := s.DeleteByRowidUpTo(ctx, 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCountAndBytesReflectsActualDiskSize(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)
	stats, err := s.CountAndBytes(ctx)
	require.NoError(t, err)
	assert.Greater(t, stats.Bytes, int64(0))
}

func TestScanSinceOrdersByRowidAscending(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeInteger)
	require.NoError(t, s.Upsert(ctx, []cluster.StoredDocument{
		{ID: int64(3), FilteredContent: "c"},
		{ID: int64(1), FilteredContent: "a"},
		{ID: int64(2), FilteredContent: "b"},
	}))

	rows, err := s.ScanSince(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.EqualValues(t, 1, rows[0].Rowid)
	assert.EqualValues(t, 2, rows[1].Rowid)
	assert.EqualValues(t, 3, rows[2].Rowid)
}

func TestPersistedConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)

	cfg := cluster.ShardConfig{IDType: cluster.IDTypeString, ColdShardPrefix: "cold"}
	require.NoError(t, s.SaveConfig(ctx, cfg))

	loaded, found, err := s.LoadConfig(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cfg.ColdShardPrefix, loaded.ColdShardPrefix)
}

func TestLoadConfigAbsentIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)

	_, found, err := s.LoadConfig(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCursorAndColdIndexPersist(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, cluster.IDTypeString)

	require.NoError(t, s.SaveCursor(ctx, 99))
	cursor, err := s.LoadCursor(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 99, cursor)

	require.NoError(t, s.SaveColdIndex(ctx, 2))
	idx, err := s.LoadColdIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}
