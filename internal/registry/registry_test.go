package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/torua/internal/cluster"
)

type fakeStub struct {
	RPCStub
	name string
}

func TestInMemoryRegistryResolveReplica(t *testing.T) {
	reg := NewInMemoryRegistry()
	d := cluster.NewLocalReplica("peer-1")
	stub := &fakeStub{name: "peer-1"}
	reg.RegisterReplica(d, stub)

	got, err := reg.Resolve(context.Background(), d)
	require.NoError(t, err)
	assert.Same(t, stub, got)
}

func TestInMemoryRegistryResolveRegionReplica(t *testing.T) {
	reg := NewInMemoryRegistry()
	d := cluster.NewRegionReplica("us-east")
	stub := &fakeStub{name: "us-east"}
	reg.RegisterReplica(d, stub)

	got, err := reg.Resolve(context.Background(), d)
	require.NoError(t, err)
	assert.Same(t, stub, got)
}

func TestInMemoryRegistryResolveUnknownReplicaReturnsNotFound(t *testing.T) {
	reg := NewInMemoryRegistry()
	_, err := reg.Resolve(context.Background(), cluster.NewLocalReplica("ghost"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryRegistryResolveCold(t *testing.T) {
	reg := NewInMemoryRegistry()
	stub := &fakeStub{name: "cold-1"}
	reg.RegisterCold("orders", 1, stub)

	got, err := reg.ResolveCold(context.Background(), "orders", 1)
	require.NoError(t, err)
	assert.Same(t, stub, got)
}

func TestInMemoryRegistryResolveColdUnknownIndexReturnsNotFound(t *testing.T) {
	reg := NewInMemoryRegistry()
	reg.RegisterCold("orders", 1, &fakeStub{name: "cold-1"})

	_, err := reg.ResolveCold(context.Background(), "orders", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryRegistryDistinguishesRegionAndLocalSameName(t *testing.T) {
	reg := NewInMemoryRegistry()
	regionStub := &fakeStub{name: "region"}
	localStub := &fakeStub{name: "local"}
	reg.RegisterReplica(cluster.NewRegionReplica("shared"), regionStub)
	reg.RegisterReplica(cluster.NewLocalReplica("shared"), localStub)

	got, err := reg.Resolve(context.Background(), cluster.NewRegionReplica("shared"))
	require.NoError(t, err)
	assert.Same(t, regionStub, got)

	got, err = reg.Resolve(context.Background(), cluster.NewLocalReplica("shared"))
	require.NoError(t, err)
	assert.Same(t, localStub, got)
}
