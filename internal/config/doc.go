// Package config loads the static, on-disk bootstrap configuration a
// shardd process reads at startup: which shard it hosts, what id shape
// that shard accepts, where it listens, and the initial
// cluster.ShardConfig to seed a never-before-configured shard with.
//
// Runtime configuration changes (replica set, thresholds, read-only) flow
// through Shard.Configure over RPC afterward; this package only concerns
// the one-time values a process needs before it can open its store.
package config
