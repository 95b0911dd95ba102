package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/registry"
	"github.com/dreamware/torua/internal/shard"
	"github.com/dreamware/torua/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *shard.Shard) {
	t.Helper()
	st, err := store.Open(":memory:", cluster.IDTypeString)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := registry.NewInMemoryRegistry()
	s, err := shard.New("s0", cluster.IDTypeString, st, reg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Configure(context.Background(), cluster.ShardConfig{}))
	t.Cleanup(func() { _ = s.Close() })

	srv := httptest.NewServer(NewServer(s))
	t.Cleanup(srv.Close)
	return srv, s
}

func TestServerHealthReturnsOK(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerIndexAndSearchRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL)

	fieldErrs, err := client.Index(context.Background(), []cluster.Document{
		{ID: "doc1", Content: "golang concurrency patterns"},
	})
	require.NoError(t, err)
	require.Empty(t, fieldErrs)

	resp, err := client.Search(context.Background(), registry.SearchRequest{Query: "concurrency", Max: 10})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
}

func TestServerConfigureReturnsNoContentAndSeals(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL)

	require.NoError(t, client.Configure(context.Background(), cluster.ShardConfig{ReadOnly: true}))

	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	require.True(t, stats.ReadOnly)
}

func TestServerGeneratesAndEchoesRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestServerEchoesCallerSuppliedRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/stats", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "caller-supplied-id")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "caller-supplied-id", resp.Header.Get(requestIDHeader))
}

func TestServerIndexOnUnconfiguredShardReturnsError(t *testing.T) {
	st, err := store.Open(":memory:", cluster.IDTypeString)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	reg := registry.NewInMemoryRegistry()
	s, err := shard.New("fresh", cluster.IDTypeString, st, reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := httptest.NewServer(NewServer(s))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL)

	_, err = client.Index(context.Background(), []cluster.Document{{ID: "a", Content: "x"}})
	require.Error(t, err)
}
