// Package cluster provides the shared data model for Torua's search shards.
// See doc.go for complete package documentation.
package cluster

import "fmt"

// IDType names the id shape a shard accepts, fixed for the shard's lifetime
// once configured.
type IDType string

const (
	// IDTypeInteger means every Document.ID is a non-negative integer and
	// StoredDocument.Rowid equals that integer directly.
	IDTypeInteger IDType = "integer"
	// IDTypeString means every Document.ID is a non-empty string up to 255
	// bytes, and Rowid is assigned by the store independently of ID.
	IDTypeString IDType = "string"
)

// Document is the caller-supplied form of a record to index: an id matching
// the shard's configured IDType, plus content to be filtered and indexed.
// Fields beyond ID/Content are the caller's concern, not the core's.
type Document struct {
	ID      interface{} `json:"id"`
	Content string      `json:"content"`
}

// StoredDocument is the indexed form persisted by Store.Upsert. Rowid is
// the monotonically increasing insertion-order key used for both
// replication (SyncCursor) and age-based purge (LifecycleManager); it is
// never reused. FilteredContent is ContentFilter(Content) truncated to 500
// bytes.
type StoredDocument struct {
	ID              interface{} `json:"id"`
	FilteredContent string      `json:"filtered_content"`
	Rowid           int64       `json:"rowid"`
}

// ScannedDocument is one row returned by Store.ScanSince: the rowid/id plus
// the already-filtered content exactly as it sits in the primary's index.
// A replica's Sync call runs this content through ContentFilter again on
// its way in — a no-op, since ContentFilter is idempotent — rather than
// special-casing "this content is pre-filtered", so Sync can share Index's
// validate-filter-upsert path verbatim.
type ScannedDocument struct {
	ID      interface{} `json:"id"`
	Content string      `json:"content"`
	Rowid   int64       `json:"rowid"`
}

// Hit is one result row returned from a search, ranked ascending (lower
// rank is a better match, per SQLite FTS5's bm25() convention).
type Hit struct {
	ID      interface{} `json:"id"`
	Content string      `json:"content"`
	Rank    float64     `json:"rank"`
}

// FieldError names one failed validation check against a single document in
// a batch. Shard.Index/Shard.Sync reject the whole batch and return the
// full list, never a partial commit.
type FieldError struct {
	Value   interface{} `json:"value,omitempty"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ReplicaDescriptorKind discriminates the two shapes a ReplicaDescriptor
// can take.
type ReplicaDescriptorKind string

const (
	// DescriptorKindRegion addresses a replica by name with a "prefer this
	// region" hint; resolution is opaque to the core.
	DescriptorKindRegion ReplicaDescriptorKind = "region"
	// DescriptorKindLocal addresses a replica by a stable local identifier.
	DescriptorKindLocal ReplicaDescriptorKind = "local"
)

// ReplicaDescriptor is a tagged union over two addressing schemes: either
// {kind: region, name} or {kind: local, id}. Exactly one of Name/ID is
// populated depending on Kind — construct via NewRegionReplica or
// NewLocalReplica rather than the struct literal to keep that invariant.
type ReplicaDescriptor struct {
	Kind ReplicaDescriptorKind `json:"kind"`
	Name string                `json:"name,omitempty"`
	ID   string                `json:"id,omitempty"`
}

// NewRegionReplica builds a region-addressed descriptor. name must be
// non-empty.
func NewRegionReplica(name string) ReplicaDescriptor {
	return ReplicaDescriptor{Kind: DescriptorKindRegion, Name: name}
}

// NewLocalReplica builds a locally-addressed descriptor. id must be
// non-empty.
func NewLocalReplica(id string) ReplicaDescriptor {
	return ReplicaDescriptor{Kind: DescriptorKindLocal, ID: id}
}

// Key returns the descriptor's address as a single comparable string,
// used by Configure to reject duplicate replicas within one config and by
// the registry to key its resolution cache.
func (d ReplicaDescriptor) Key() string {
	switch d.Kind {
	case DescriptorKindRegion:
		return "region:" + d.Name
	case DescriptorKindLocal:
		return "local:" + d.ID
	default:
		return "invalid:" + string(d.Kind)
	}
}

// Validate checks the descriptor is a well-formed member of the union:
// a known Kind with its corresponding field non-empty.
func (d ReplicaDescriptor) Validate() error {
	switch d.Kind {
	case DescriptorKindRegion:
		if d.Name == "" {
			return fmt.Errorf("region replica descriptor requires a non-empty name")
		}
	case DescriptorKindLocal:
		if d.ID == "" {
			return fmt.Errorf("local replica descriptor requires a non-empty id")
		}
	default:
		return fmt.Errorf("unknown replica descriptor kind %q", d.Kind)
	}
	return nil
}

// ShardConfig is the persistent, per-shard configuration: addressing mode,
// replica set, scheduler tick period, and the thresholds that drive
// rolling cold-storage migration. It is round-tripped through YAML
// (on-disk default seed, see internal/config) and through the shard's own
// persisted state (see internal/store).
type ShardConfig struct {
	IDType              IDType              `yaml:"idType" json:"idType"`
	ColdShardPrefix     string              `yaml:"coldShardPrefix" json:"coldShardPrefix"`
	Replicas            []ReplicaDescriptor `yaml:"replicas" json:"replicas"`
	TickIntervalMs      int64               `yaml:"tickIntervalMs" json:"tickIntervalMs"`
	PurgeCountThreshold int64               `yaml:"purgeCountThreshold" json:"purgeCountThreshold"`
	PurgeTargetCount    int64               `yaml:"purgeTargetCount" json:"purgeTargetCount"`
	SizeThresholdBytes  int64               `yaml:"sizeThresholdBytes" json:"sizeThresholdBytes"`
	ColdShardCapacity   int64               `yaml:"coldShardCapacity" json:"coldShardCapacity"`
	CurrentColdIndex    int                 `yaml:"currentColdIndex" json:"currentColdIndex"`
	ReadOnly            bool                `yaml:"readOnly" json:"readOnly"`
}

// DefaultTickIntervalMs is the default scheduler period applied when a
// config leaves TickIntervalMs unset.
const DefaultTickIntervalMs = 60_000

// MinTickIntervalMs is the floor applied to any configured tick period.
const MinTickIntervalMs = 1_000

// DefaultSizeThresholdBytes is the default on-disk size ceiling (9GB,
// comfortably under the practical 10GB FTS5 working-set limit) applied
// when a config leaves SizeThresholdBytes unset.
const DefaultSizeThresholdBytes = 9_000_000_000

// WithDefaults returns a copy of cfg with zero-valued fields replaced by
// their defaults, and TickIntervalMs floored to the minimum.
func (c ShardConfig) WithDefaults() ShardConfig {
	out := c
	if out.TickIntervalMs == 0 {
		out.TickIntervalMs = DefaultTickIntervalMs
	}
	if out.TickIntervalMs < MinTickIntervalMs {
		out.TickIntervalMs = MinTickIntervalMs
	}
	if out.SizeThresholdBytes == 0 {
		out.SizeThresholdBytes = DefaultSizeThresholdBytes
	}
	return out
}

// Validate rejects a config with duplicate replicas or a malformed
// descriptor; it does not know about the shard's own IDType, which is
// Shard.Configure's job (it compares the config's IDType against the one
// the shard was constructed with).
func (c ShardConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Replicas))
	for _, r := range c.Replicas {
		if err := r.Validate(); err != nil {
			return err
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate replica descriptor %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
