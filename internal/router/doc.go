// Package router fans a search request out across multiple shard stubs
// concurrently and merges their hits into a single rank-ordered result,
// used by Shard.Search when a query must also cover a chain of cold
// shards.
package router
