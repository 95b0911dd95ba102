// Package shard implements the Shard actor: the single-writer unit that
// binds together an FTS5-backed store, a replication step, and a
// lifecycle step behind one RPC surface.
//
// # Overview
//
// A shard is the atomic unit of the search service. Each shard owns
// exactly one store.Store and serializes every operation that touches it
// through a single mutex, so there is never more than one writer active
// against the underlying SQLite connection at a time — matching SQLite's
// own single-connection discipline instead of fighting it with a
// connection pool.
//
// # States
//
// A shard moves through three states over its lifetime:
//
//	Fresh ──Configure──▶ Active ──SetReadOnly(true)──▶ ReadOnly
//
// Fresh means Configure has never succeeded; the shard rejects Index,
// Sync, and Search until it is. Active accepts all RPCs. ReadOnly is
// reached by an explicit Configure({ReadOnly: true}) — the lifecycle role
// uses this to seal a cold shard on its first write, never on the
// primary, which keeps accepting Index calls indefinitely as it sheds its
// oldest rows to cold storage. A sealed shard rejects both Index and
// Sync, serving only Search and Stats.
//
// # RPC surface
//
// Shard implements registry.RPCStub directly (Index, Sync, Search,
// Stats, Configure), so an InMemoryRegistry can hold live *Shard
// instances in tests without any adapter, and internal/rpc's HTTP server
// can dispatch requests straight onto a *Shard.
//
// # Scheduling
//
// Configure arms an internal/scheduler.Scheduler on first success, which
// drives runTick: a replicator.Step followed by a lifecycle.Step, on the
// shard's configured tick interval. Each mutable-state accessor the
// scheduler's callers need (Config, Cursor, SetCursor, SetColdIndex) takes
// the shard's lock independently and briefly (Name and Store return
// fields fixed at construction and take no lock), so a tick never holds the lock
// for the full duration of a network round trip to a replica or cold
// shard.
package shard
