// Package replicator implements the Replicator role: fanning out newly
// indexed rows from a shard's primary to every configured replica, and
// advancing the shard's persisted sync cursor once they have all
// acknowledged.
//
// Replication is eventually consistent and best-effort: a replica that is
// unreachable on one tick is retried on the next, because the cursor is
// only advanced past rows every replica has accepted. There is no
// cross-shard transaction and no quorum — a slow or down replica falls
// behind without blocking the primary's own writes.
package replicator
