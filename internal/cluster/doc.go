// Package cluster defines the data model shared by every shard component:
// the wire form of a document, its indexed form, the shard's persistent
// configuration, and the tagged union used to address a replica.
//
// # Overview
//
// These types cross package boundaries constantly — store, shard, rpc,
// registry, replicator and lifecycle all import cluster rather than define
// their own copies, so that a JSON payload decoded at the RPC boundary is
// the same Go value the Store and the Scheduler see.
//
// # Identity
//
// A shard is configured with exactly one IDType at creation (IDTypeInteger
// or IDTypeString); the choice is fixed for the shard's lifetime (see
// Shard.Configure, which rejects any other IDType). A Document's ID is
// validated against that choice before anything is written.
//
// # Replica addressing
//
// ReplicaDescriptor is a discriminated union: either a region-qualified
// name (DescriptorKindRegion) or a stable local id (DescriptorKindLocal).
// Only one of Name/ID is meaningful depending on Kind; NewRegionReplica and
// NewLocalReplica are the only supported constructors, each setting just
// the field its Kind uses. They do not check for an empty value;
// Validate rejects a descriptor whose field is empty.
package cluster
