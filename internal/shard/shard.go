// Package shard implements the Shard actor.
// See doc.go for complete package documentation.
package shard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/filter"
	"github.com/dreamware/torua/internal/lifecycle"
	"github.com/dreamware/torua/internal/logging"
	"github.com/dreamware/torua/internal/metrics"
	"github.com/dreamware/torua/internal/planner"
	"github.com/dreamware/torua/internal/registry"
	"github.com/dreamware/torua/internal/replicator"
	"github.com/dreamware/torua/internal/router"
	"github.com/dreamware/torua/internal/scheduler"
	"github.com/dreamware/torua/internal/store"
)

// State names where a shard sits in its Fresh → Active → ReadOnly
// lifecycle.
type State string

const (
	// StateFresh means Configure has never succeeded; Index, Sync, and
	// Search are all rejected.
	StateFresh State = "fresh"
	// StateActive means the shard accepts every RPC.
	StateActive State = "active"
	// StateReadOnly means the shard was sealed by Configure({ReadOnly:
	// true}); it still serves Search and Stats but rejects Index and Sync.
	StateReadOnly State = "read_only"
)

// ErrNotConfigured is returned by Index/Sync/Search while the shard is
// StateFresh.
var ErrNotConfigured = errors.New("shard: not configured")

// ErrImmutableIDType is returned by Configure when a caller names an
// idType different from the one the shard was constructed with.
var ErrImmutableIDType = errors.New("shard: idType is immutable once configured")

// ErrQueryRejected wraps a planner rejection reason (too common, or only
// stop words) surfaced from Search.
type ErrQueryRejected struct{ Reason string }

func (e *ErrQueryRejected) Error() string { return fmt.Sprintf("shard: query rejected: %s", e.Reason) }

// Shard is the single-writer actor binding a store.Store, a registry of
// peers, and the replication/lifecycle roles behind one RPC surface.
type Shard struct {
	name       string
	idType     cluster.IDType
	st         store.Store
	reg        registry.Registry
	invalidate func()
	log        zerolog.Logger
	sched      *scheduler.Scheduler

	mu     sync.Mutex
	cfg    cluster.ShardConfig
	state  State
	cursor int64
}

// New constructs a Shard over an already-open store opened with idType.
// invalidate, if non-nil, is called once per tick after replication and
// lifecycle both run, letting a caching layer in front of the shard drop
// stale entries; it may be nil.
func New(name string, idType cluster.IDType, st store.Store, reg registry.Registry, invalidate func()) (*Shard, error) {
	s := &Shard{
		name:       name,
		idType:     idType,
		st:         st,
		reg:        reg,
		invalidate: invalidate,
		log:        logging.WithShard(name),
		state:      StateFresh,
	}

	cfg, found, err := st.LoadConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("shard %s: load config: %w", name, err)
	}
	cursor, err := st.LoadCursor(context.Background())
	if err != nil {
		return nil, fmt.Errorf("shard %s: load cursor: %w", name, err)
	}
	s.cursor = cursor

	if !found {
		return s, nil
	}
	coldIndex, err := st.LoadColdIndex(context.Background())
	if err != nil {
		return nil, fmt.Errorf("shard %s: load cold index: %w", name, err)
	}
	cfg.CurrentColdIndex = coldIndex
	s.cfg = cfg.WithDefaults()
	if st.IsReadOnly() || cfg.ReadOnly {
		s.state = StateReadOnly
	} else {
		s.state = StateActive
	}
	s.armScheduler()
	return s, nil
}

func (s *Shard) armScheduler() {
	interval := time.Duration(s.cfg.TickIntervalMs) * time.Millisecond
	s.sched = scheduler.New(interval, s.runTick)
	s.sched.Start(context.Background())
}

// Close stops the shard's scheduler and closes its store.
func (s *Shard) Close() error {
	if s.sched != nil {
		s.sched.Stop()
	}
	return s.st.Close()
}

// --- registry.RPCStub ---

// Index validates and stores a batch of new or updated documents.
func (s *Shard) Index(ctx context.Context, batch []cluster.Document) ([]cluster.FieldError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFresh {
		metrics.IndexRequestsTotal.WithLabelValues("not_configured").Inc()
		return nil, ErrNotConfigured
	}
	if s.state == StateReadOnly {
		metrics.IndexRequestsTotal.WithLabelValues("read_only").Inc()
		return nil, store.ErrReadOnly
	}

	metrics.IndexBatchSize.Observe(float64(len(batch)))
	fieldErrs, err := s.upsertLocked(ctx, batch)
	if err != nil {
		metrics.IndexRequestsTotal.WithLabelValues("error").Inc()
		return fieldErrs, err
	}
	if len(fieldErrs) > 0 {
		metrics.IndexRequestsTotal.WithLabelValues("rejected").Inc()
		return fieldErrs, nil
	}
	metrics.IndexRequestsTotal.WithLabelValues("ok").Inc()
	return nil, nil
}

// Sync applies a batch of already-filtered documents received from a
// primary's ScanSince, reusing Index's validate-filter-upsert path since
// filter.Filter is idempotent on already-filtered content.
func (s *Shard) Sync(ctx context.Context, batch []cluster.ScannedDocument) ([]cluster.FieldError, error) {
	docs := make([]cluster.Document, len(batch))
	for i, d := range batch {
		docs[i] = cluster.Document{ID: d.ID, Content: d.Content}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFresh {
		return nil, ErrNotConfigured
	}
	if s.state == StateReadOnly {
		return nil, store.ErrReadOnly
	}
	return s.upsertLocked(ctx, docs)
}

// upsertLocked validates, filters, and stores docs. Callers must hold
// s.mu. It rejects the whole batch on any validation failure rather than
// committing a partial batch.
func (s *Shard) upsertLocked(ctx context.Context, docs []cluster.Document) ([]cluster.FieldError, error) {
	normalized, fieldErrs := validateBatch(s.idType, docs)
	if len(fieldErrs) > 0 {
		return fieldErrs, nil
	}

	stored := make([]cluster.StoredDocument, len(normalized))
	for i, d := range normalized {
		stored[i] = cluster.StoredDocument{ID: d.ID, FilteredContent: filter.Filter(d.Content)}
	}
	if err := s.st.Upsert(ctx, stored); err != nil {
		return nil, fmt.Errorf("shard %s: upsert: %w", s.name, err)
	}
	return nil, nil
}

// Search plans and executes a query against this shard's local index,
// optionally fanning out to every cold shard in this shard's chain.
func (s *Shard) Search(ctx context.Context, req registry.SearchRequest) (registry.SearchResponse, error) {
	s.mu.Lock()
	if s.state == StateFresh {
		s.mu.Unlock()
		return registry.SearchResponse{}, ErrNotConfigured
	}
	cfg := s.cfg
	s.mu.Unlock()

	requestedMax := planner.ClampRequestedMax(req.Max)
	plan := planner.Plan(req.Query, requestedMax)
	if !plan.Accepted {
		metrics.SearchRequestsTotal.WithLabelValues("rejected", "").Inc()
		return registry.SearchResponse{}, &ErrQueryRejected{Reason: plan.Reason}
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.SearchDuration, string(plan.CostBucket))

	hits, err := s.st.Match(ctx, plan.Processed, plan.RowCap)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error", string(plan.CostBucket)).Inc()
		s.log.Warn().Err(err).Msg("search: local match failed, returning empty result")
		return registry.SearchResponse{}, nil
	}
	resp := registry.SearchResponse{Hits: hits}

	if req.IncludeCold && cfg.ColdShardPrefix != "" {
		coldResp, err := s.searchColdChain(ctx, cfg, registry.SearchRequest{Query: req.Query, Max: plan.RowCap})
		if err != nil {
			metrics.SearchRequestsTotal.WithLabelValues("error", string(plan.CostBucket)).Inc()
			s.log.Warn().Err(err).Msg("search: cold-shard fan-out failed, ignoring cold results")
		} else {
			resp.Hits = append(resp.Hits, coldResp.Hits...)
			if plan.RowCap > 0 && len(resp.Hits) > plan.RowCap {
				resp.Hits = resp.Hits[:plan.RowCap]
			}
		}
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok", string(plan.CostBucket)).Inc()
	return resp, nil
}

// searchColdChain fans out to every cold shard this primary has filled so
// far, addressed prefix-0 through prefix-currentColdIndex inclusive (the
// shard currently being filled is still searchable).
func (s *Shard) searchColdChain(ctx context.Context, cfg cluster.ShardConfig, req registry.SearchRequest) (registry.SearchResponse, error) {
	stubs := make([]registry.RPCStub, 0, cfg.CurrentColdIndex+1)
	for i := 0; i <= cfg.CurrentColdIndex; i++ {
		stub, err := s.reg.ResolveCold(ctx, cfg.ColdShardPrefix, i)
		if err != nil {
			continue // a cold shard that has not registered yet is skipped, not fatal
		}
		stubs = append(stubs, stub)
	}
	return router.FanOut(ctx, stubs, req)
}

// Stats reports the shard's current document count, on-disk size, and
// read-only status.
func (s *Shard) Stats(ctx context.Context) (registry.StatsResponse, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	stats, err := s.st.CountAndBytes(ctx)
	if err != nil {
		return registry.StatsResponse{}, fmt.Errorf("shard %s: stats: %w", s.name, err)
	}
	metrics.ShardDocumentCount.WithLabelValues(s.name).Set(float64(stats.Count))
	metrics.ShardBytesUsed.WithLabelValues(s.name).Set(float64(stats.Bytes))
	readOnly := state == StateReadOnly
	if readOnly {
		metrics.ShardReadOnly.WithLabelValues(s.name).Set(1)
	} else {
		metrics.ShardReadOnly.WithLabelValues(s.name).Set(0)
	}
	return registry.StatsResponse{Count: stats.Count, Bytes: stats.Bytes, ReadOnly: readOnly}, nil
}

// Configure validates and persists partial as the shard's full
// configuration. idType may not change once the shard has configured
// successfully once. The first successful Configure moves the shard out
// of StateFresh and arms its scheduler.
func (s *Shard) Configure(ctx context.Context, partial cluster.ShardConfig) error {
	if err := partial.Validate(); err != nil {
		return fmt.Errorf("shard %s: invalid config: %w", s.name, err)
	}
	if partial.IDType != "" && partial.IDType != s.idType {
		return ErrImmutableIDType
	}
	partial.IDType = s.idType

	s.mu.Lock()
	defer s.mu.Unlock()

	wasFresh := s.state == StateFresh
	next := partial.WithDefaults()
	next.CurrentColdIndex = s.cfg.CurrentColdIndex
	if s.state == StateReadOnly {
		// A sealed shard stays sealed, including in the persisted config.
		next.ReadOnly = true
	}
	s.cfg = next

	if err := s.st.SaveConfig(ctx, s.cfg); err != nil {
		return fmt.Errorf("shard %s: save config: %w", s.name, err)
	}

	if s.cfg.ReadOnly {
		if err := s.st.SetReadOnly(ctx, true); err != nil {
			return fmt.Errorf("shard %s: set read-only: %w", s.name, err)
		}
		s.state = StateReadOnly
	} else if s.state != StateReadOnly {
		s.state = StateActive
	}

	if wasFresh {
		s.armScheduler()
	} else if s.sched != nil {
		s.sched.SetInterval(time.Duration(s.cfg.TickIntervalMs) * time.Millisecond)
	}
	return nil
}

// IsConfigured reports whether Configure has ever succeeded, letting a
// caller (e.g. shardd's startup path) decide whether to seed the shard
// with a bootstrap config without clobbering a configuration already
// persisted from a prior run.
func (s *Shard) IsConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateFresh
}

// --- replicator.ShardView / lifecycle.ShardView ---

// Name returns the shard's immutable name.
func (s *Shard) Name() string { return s.name }

// Store returns the shard's underlying store.Store.
func (s *Shard) Store() store.Store { return s.st }

// Config returns a snapshot of the shard's current configuration.
func (s *Shard) Config() cluster.ShardConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Cursor returns the shard's current replication cursor.
func (s *Shard) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// SetCursor persists and updates the shard's replication cursor.
func (s *Shard) SetCursor(rowid int64) {
	s.mu.Lock()
	s.cursor = rowid
	s.mu.Unlock()
	if err := s.st.SaveCursor(context.Background(), rowid); err != nil {
		s.log.Error().Err(err).Msg("persist sync cursor")
	}
}

// SetColdIndex persists and updates the shard's current cold-shard index.
func (s *Shard) SetColdIndex(idx int) {
	s.mu.Lock()
	s.cfg.CurrentColdIndex = idx
	s.mu.Unlock()
	if err := s.st.SaveColdIndex(context.Background(), idx); err != nil {
		s.log.Error().Err(err).Msg("persist cold index")
	}
}

// runTick drives one replication step followed by one lifecycle step.
// It never holds s.mu for its own duration — every ShardView accessor
// above takes the lock independently — so a slow network call to a
// replica or cold shard does not block Index/Search/Stats/Configure.
func (s *Shard) runTick(ctx context.Context) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TickDuration)

	if err := replicator.Step(ctx, s, s.reg); err != nil {
		s.log.Warn().Err(err).Msg("replication step failed")
	}
	if err := lifecycle.Step(ctx, s, s.reg); err != nil {
		s.log.Warn().Err(err).Msg("lifecycle step failed")
	}
	if s.invalidate != nil {
		s.invalidate()
	}
}
