// Package lifecycle implements the LifecycleManager role: the background
// maintenance pass that keeps a primary shard within its configured size
// and count budgets.
//
// Either a count overage (the document count reaching
// PurgeCountThreshold) or a size overage (the on-disk size exceeding
// SizeThresholdBytes) triggers the same procedure: the oldest rows
// (lowest rowid) are written, batch by batch, into the cold-shard chain
// named by ColdShardPrefix, starting at CurrentColdIndex, and only then
// deleted from the primary. The number of rows moved is the count minus
// PurgeTargetCount, or the count minus a fifth of it (rounded down) when
// PurgeTargetCount is unset. If one cold shard fills during the same
// tick, migration continues into the next index rather than waiting for
// the following tick, so a single large overflow drains in one pass
// instead of trickling out one cold shard per minute.
//
// The primary itself is never sealed by this pass and keeps accepting new
// documents; each cold shard is sealed read-only after its first write.
package lifecycle
