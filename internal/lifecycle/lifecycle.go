package lifecycle

import (
	"context"
	"fmt"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/metrics"
	"github.com/dreamware/torua/internal/registry"
	"github.com/dreamware/torua/internal/store"
)

// ShardView is the slice of *shard.Shard state a lifecycle step needs.
type ShardView interface {
	Name() string
	Store() store.Store
	Config() cluster.ShardConfig
	SetColdIndex(idx int)
}

// Step runs one lifecycle pass. Either a count or a size overage triggers
// the same migrate-then-delete procedure: the oldest rows move to cold
// shards (addressed prefix-currentColdIndex, prefix-currentColdIndex+1,
// ...), and a row is deleted from the primary only after it has been
// durably written to a cold shard. The primary itself never becomes
// read-only here — only cold shards are sealed, on their first write.
func Step(ctx context.Context, view ShardView, reg registry.Registry) error {
	cfg := view.Config()

	stats, err := view.Store().CountAndBytes(ctx)
	if err != nil {
		return fmt.Errorf("lifecycle: size check: %w", err)
	}

	threshold := cfg.SizeThresholdBytes
	if threshold <= 0 {
		threshold = cluster.DefaultSizeThresholdBytes
	}
	overCount := cfg.PurgeCountThreshold > 0 && stats.Count >= cfg.PurgeCountThreshold
	overSize := stats.Bytes > threshold
	if !overCount && !overSize {
		return nil
	}

	toPurge := cfg.PurgeTargetCount
	if toPurge <= 0 {
		toPurge = int64(float64(stats.Count) * 0.2)
	}
	toPurge = stats.Count - toPurge
	if toPurge <= 0 {
		return nil
	}

	rows, err := view.Store().ScanSince(ctx, 0, int(toPurge))
	if err != nil {
		return fmt.Errorf("lifecycle: scan for migration: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	return migrate(ctx, view, reg, cfg, rows)
}

// migrate walks rows (oldest first) into the cold-shard chain starting at
// cfg.CurrentColdIndex, filling each cold shard to coldShardCapacity
// before moving to the next, then deletes from the primary everything
// that was successfully written cold.
func migrate(ctx context.Context, view ShardView, reg registry.Registry, cfg cluster.ShardConfig, rows []cluster.ScannedDocument) error {
	i := cfg.CurrentColdIndex
	var lastMovedRowid int64
	remaining := rows

	for len(remaining) > 0 {
		stub, err := reg.ResolveCold(ctx, cfg.ColdShardPrefix, i)
		if err != nil {
			// No cold shard registered yet at this index; stop for this
			// tick. The primary keeps everything it could not migrate
			// and retries on the next tick once capacity is added.
			break
		}

		coldStats, err := stub.Stats(ctx)
		if err != nil {
			// The source treats an unreachable/erroring cold shard as
			// empty rather than aborting the whole migration.
			coldStats = registry.StatsResponse{Count: 0}
		}

		available := cfg.ColdShardCapacity - coldStats.Count
		if cfg.ColdShardCapacity <= 0 {
			available = int64(len(remaining)) // unbounded capacity: take everything this pass
		}
		if available <= 0 {
			i++
			continue
		}

		move := available
		if move > int64(len(remaining)) {
			move = int64(len(remaining))
		}
		batch := remaining[:move]

		docs := make([]cluster.Document, len(batch))
		for j, r := range batch {
			docs[j] = cluster.Document{ID: r.ID, Content: r.Content}
		}
		fieldErrs, err := stub.Index(ctx, docs)
		if err != nil {
			return fmt.Errorf("lifecycle: migrate to cold shard %s-%d: %w", cfg.ColdShardPrefix, i, err)
		}
		if len(fieldErrs) > 0 {
			return fmt.Errorf("lifecycle: cold shard %s-%d rejected batch: %v", cfg.ColdShardPrefix, i, fieldErrs[0])
		}

		if coldStats.Count == 0 {
			if err := stub.Configure(ctx, cluster.ShardConfig{ReadOnly: true}); err != nil {
				return fmt.Errorf("lifecycle: seal cold shard %s-%d: %w", cfg.ColdShardPrefix, i, err)
			}
		}

		lastMovedRowid = batch[len(batch)-1].Rowid
		metrics.LifecycleRotationsTotal.Inc()

		remaining = remaining[move:]
		if move == available {
			i++
		}
	}

	if i != cfg.CurrentColdIndex {
		view.SetColdIndex(i)
	}

	if lastMovedRowid == 0 {
		return nil
	}
	n, err := view.Store().DeleteByRowidUpTo(ctx, lastMovedRowid)
	if err != nil {
		return fmt.Errorf("lifecycle: purge migrated rows: %w", err)
	}
	metrics.LifecyclePurgedRows.Add(float64(n))
	return nil
}
