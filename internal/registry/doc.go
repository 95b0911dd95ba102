// Package registry resolves a shard's declared replica descriptors and
// cold-shard addresses into callable stubs, so the rest of the module
// never has to know whether a peer lives in the same process, on another
// machine, or behind a region-aware load balancer.
//
// Two implementations exist: InMemoryRegistry, an in-process map used by
// unit and integration tests to wire real *shard.Shard instances together
// without a network, and an HTTP-backed registry (internal/rpc) used by
// the running daemon.
//
// The capability is always injected at construction — a Shard never
// constructs its own Registry — so tests can substitute whichever
// implementation fits.
package registry
