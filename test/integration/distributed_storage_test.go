// Package integration exercises shard.Shard end-to-end, wiring real
// *shard.Shard instances together through a registry.InMemoryRegistry the
// way production wiring would connect them over HTTP — without paying for
// process spawn or a network.
package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/lifecycle"
	"github.com/dreamware/torua/internal/registry"
	"github.com/dreamware/torua/internal/replicator"
	"github.com/dreamware/torua/internal/shard"
	"github.com/dreamware/torua/internal/store"
)

// newShard opens an in-memory store and constructs a *shard.Shard
// registered under name in reg, ready for the caller to Configure.
func newShard(t *testing.T, name string, idType cluster.IDType, reg *registry.InMemoryRegistry) *shard.Shard {
	t.Helper()
	st, err := store.Open(":memory:", idType)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s, err := shard.New(name, idType, st, reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	reg.RegisterReplica(cluster.NewLocalReplica(name), s)
	return s
}

func TestBasicIndexAndSearch(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	primary := newShard(t, "primary", cluster.IDTypeString, reg)
	require.NoError(t, primary.Configure(context.Background(), cluster.ShardConfig{}))

	_, err := primary.Index(context.Background(), []cluster.Document{
		{ID: "doc1", Content: "the quick brown fox jumps over the lazy dog"},
		{ID: "doc2", Content: "golang concurrency patterns with channels"},
	})
	require.NoError(t, err)

	resp, err := primary.Search(context.Background(), registry.SearchRequest{Query: "golang channels", Max: 10})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "doc2", resp.Hits[0].ID)
}

func TestStopWordAndCommonWordFiltering(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	primary := newShard(t, "primary", cluster.IDTypeString, reg)
	require.NoError(t, primary.Configure(context.Background(), cluster.ShardConfig{}))

	_, err := primary.Index(context.Background(), []cluster.Document{
		{ID: "doc1", Content: "the the the fox meme"},
	})
	require.NoError(t, err)

	// Stop words and common words never reach the index; "fox" does, and
	// is findable.
	resp, err := primary.Search(context.Background(), registry.SearchRequest{Query: "fox", Max: 10})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)

	// "meme" is a common word, so the index lacks it and requiring it
	// alongside "fox" matches nothing.
	resp, err = primary.Search(context.Background(), registry.SearchRequest{Query: "fox meme", Max: 10})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
}

func TestOverlyCommonQueryIsRejected(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	primary := newShard(t, "primary", cluster.IDTypeString, reg)
	require.NoError(t, primary.Configure(context.Background(), cluster.ShardConfig{}))

	_, err := primary.Search(context.Background(), registry.SearchRequest{Query: "the and or cat meme", Max: 10})
	var rejected *shard.ErrQueryRejected
	assert.ErrorAs(t, err, &rejected)
}

func TestUpsertIsIdempotentByID(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	primary := newShard(t, "primary", cluster.IDTypeString, reg)
	require.NoError(t, primary.Configure(context.Background(), cluster.ShardConfig{}))

	for i := 0; i < 3; i++ {
		_, err := primary.Index(context.Background(), []cluster.Document{
			{ID: "doc1", Content: "golang concurrency patterns"},
		})
		require.NoError(t, err)
	}

	stats, err := primary.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Count)
}

func TestReplicationStepPropagatesToReplica(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	primary := newShard(t, "primary", cluster.IDTypeString, reg)
	replica := newShard(t, "replica", cluster.IDTypeString, reg)

	require.NoError(t, replica.Configure(context.Background(), cluster.ShardConfig{}))
	require.NoError(t, primary.Configure(context.Background(), cluster.ShardConfig{
		Replicas: []cluster.ReplicaDescriptor{cluster.NewLocalReplica("replica")},
	}))

	_, err := primary.Index(context.Background(), []cluster.Document{
		{ID: "doc1", Content: "golang concurrency patterns"},
	})
	require.NoError(t, err)

	require.NoError(t, replicator.Step(context.Background(), primary, reg))

	resp, err := replica.Search(context.Background(), registry.SearchRequest{Query: "golang", Max: 10})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "doc1", resp.Hits[0].ID)
}

func TestReplicationCursorHoldsBackOnReplicaFailure(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	primary := newShard(t, "primary", cluster.IDTypeString, reg)
	// "missing-replica" is referenced but never registered, so Resolve fails every tick.
	require.NoError(t, primary.Configure(context.Background(), cluster.ShardConfig{
		Replicas: []cluster.ReplicaDescriptor{cluster.NewLocalReplica("missing-replica")},
	}))

	_, err := primary.Index(context.Background(), []cluster.Document{
		{ID: "doc1", Content: "golang concurrency patterns"},
	})
	require.NoError(t, err)

	cursorBefore := primary.Cursor()
	assert.Error(t, replicator.Step(context.Background(), primary, reg))
	assert.Equal(t, cursorBefore, primary.Cursor())
}

func TestRollingColdStorageMigration(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	primary := newShard(t, "primary", cluster.IDTypeString, reg)
	cold0 := newShard(t, "primary-cold-0", cluster.IDTypeString, reg)
	cold1 := newShard(t, "primary-cold-1", cluster.IDTypeString, reg)
	reg.RegisterCold("primary", 0, cold0)
	reg.RegisterCold("primary", 1, cold1)

	require.NoError(t, cold0.Configure(context.Background(), cluster.ShardConfig{}))
	require.NoError(t, cold1.Configure(context.Background(), cluster.ShardConfig{}))
	require.NoError(t, primary.Configure(context.Background(), cluster.ShardConfig{
		ColdShardPrefix:    "primary",
		SizeThresholdBytes: 1, // force rollover on the very next tick
	}))

	_, err := primary.Index(context.Background(), []cluster.Document{
		{ID: "doc1", Content: "golang concurrency patterns"},
		{ID: "doc2", Content: "distributed systems design"},
	})
	require.NoError(t, err)

	require.NoError(t, lifecycle.Step(context.Background(), primary, reg))

	// the primary itself never seals; it keeps accepting new writes
	// indefinitely while the oldest rows shed off to cold storage
	stats, err := primary.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.ReadOnly)
	assert.EqualValues(t, 0, stats.Count)

	_, err = primary.Index(context.Background(), []cluster.Document{{ID: "doc3", Content: "x"}})
	require.NoError(t, err)

	// the cold shard that received the migrated rows is sealed on its
	// first write
	coldStats, err := cold0.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, coldStats.ReadOnly)
	assert.EqualValues(t, 2, coldStats.Count)

	resp, err := primary.Search(context.Background(), registry.SearchRequest{Query: "golang", Max: 10, IncludeCold: true})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "doc1", resp.Hits[0].ID)
}
