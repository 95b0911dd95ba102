package replicator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/metrics"
	"github.com/dreamware/torua/internal/registry"
	"github.com/dreamware/torua/internal/store"
)

// ShardView is the slice of *shard.Shard state a replication step needs.
// A real Shard satisfies it with plain accessor methods; tests can stub
// it directly.
type ShardView interface {
	Name() string
	Store() store.Store
	Config() cluster.ShardConfig
	Cursor() int64
	SetCursor(rowid int64)
}

// scanBatchSize bounds how many rows one replication step considers, so a
// shard that has been offline for a long time catches up incrementally
// across several ticks rather than shipping an unbounded batch.
const scanBatchSize = 5000

// Step runs one replication pass: scan rows since the shard's persisted
// cursor, and ship them to every configured replica concurrently. The
// cursor advances to the highest rowid shipped only if every replica
// accepted the batch; a single failing replica holds the cursor back so
// the same rows are retried on the next tick, rather than silently
// leaving that replica behind.
func Step(ctx context.Context, view ShardView, reg registry.Registry) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SyncDuration)

	cfg := view.Config()
	if len(cfg.Replicas) == 0 {
		return nil
	}

	cursor := view.Cursor()
	rows, err := view.Store().ScanSince(ctx, cursor, scanBatchSize)
	if err != nil {
		return fmt.Errorf("replicator: scan since %d: %w", cursor, err)
	}
	if len(rows) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range cfg.Replicas {
		d := d
		g.Go(func() error {
			stub, err := reg.Resolve(gctx, d)
			if err != nil {
				return fmt.Errorf("resolve replica %s: %w", d.Key(), err)
			}
			fieldErrs, err := stub.Sync(gctx, rows)
			if err != nil {
				return fmt.Errorf("sync replica %s: %w", d.Key(), err)
			}
			if len(fieldErrs) > 0 {
				return fmt.Errorf("sync replica %s: batch rejected: %v", d.Key(), fieldErrs[0])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	maxRowid := cursor
	for _, r := range rows {
		if r.Rowid > maxRowid {
			maxRowid = r.Rowid
		}
	}
	view.SetCursor(maxRowid)
	metrics.SyncRowsReplicated.Add(float64(len(rows)))
	return nil
}
