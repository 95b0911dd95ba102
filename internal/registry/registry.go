// Package registry resolves shard addresses to typed stubs.
// See doc.go for complete package documentation.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/dreamware/torua/internal/cluster"
)

// SearchRequest is the typed argument to RPCStub.Search.
type SearchRequest struct {
	Query       string
	IncludeCold bool
	Max         int
}

// SearchResponse is the typed result of RPCStub.Search.
type SearchResponse struct {
	Hits []cluster.Hit
}

// StatsResponse is the typed result of RPCStub.Stats.
type StatsResponse struct {
	Count    int64
	Bytes    int64
	ReadOnly bool
}

// RPCStub is the typed, five-method surface every shard exposes to its
// peers. A *shard.Shard satisfies this interface directly — no adapter
// required — so InMemoryRegistry can register real shard instances for
// integration tests.
type RPCStub interface {
	Index(ctx context.Context, batch []cluster.Document) ([]cluster.FieldError, error)
	Sync(ctx context.Context, batch []cluster.ScannedDocument) ([]cluster.FieldError, error)
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
	Stats(ctx context.Context) (StatsResponse, error)
	Configure(ctx context.Context, partial cluster.ShardConfig) error
}

// Registry resolves addresses to stubs. Resolve handles a replica
// descriptor (region- or local-addressed); ResolveCold handles the
// "(prefix, index)" addressing scheme cold shards use, named
// "<prefix>-<index>".
type Registry interface {
	Resolve(ctx context.Context, d cluster.ReplicaDescriptor) (RPCStub, error)
	ResolveCold(ctx context.Context, prefix string, index int) (RPCStub, error)
}

// ErrNotFound is returned when a descriptor or cold index has no
// registered stub.
var ErrNotFound = fmt.Errorf("registry: address not found")

// InMemoryRegistry is a thread-safe, in-process map implementation of
// Registry, suitable for substituting into tests in place of a networked
// registry.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	byKey map[string]RPCStub
	cold  map[string]RPCStub
}

// NewInMemoryRegistry returns an empty in-process registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		byKey: make(map[string]RPCStub),
		cold:  make(map[string]RPCStub),
	}
}

// RegisterReplica makes stub resolvable via d.
func (r *InMemoryRegistry) RegisterReplica(d cluster.ReplicaDescriptor, stub RPCStub) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[d.Key()] = stub
}

// RegisterCold makes stub resolvable as "<prefix>-<index>".
func (r *InMemoryRegistry) RegisterCold(prefix string, index int, stub RPCStub) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cold[coldKey(prefix, index)] = stub
}

func coldKey(prefix string, index int) string {
	return fmt.Sprintf("%s-%d", prefix, index)
}

// Resolve implements Registry.
func (r *InMemoryRegistry) Resolve(_ context.Context, d cluster.ReplicaDescriptor) (RPCStub, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stub, ok := r.byKey[d.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, d.Key())
	}
	return stub, nil
}

// ResolveCold implements Registry.
func (r *InMemoryRegistry) ResolveCold(_ context.Context, prefix string, index int) (RPCStub, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := coldKey(prefix, index)
	stub, ok := r.cold[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return stub, nil
}
