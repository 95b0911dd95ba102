// Package rpc implements the HTTP transport for registry.RPCStub:
// Server exposes a *shard.Shard over HTTP, and Client/HTTPRegistry
// resolve replica and cold-shard descriptors to stubs that make those
// calls across the network.
//
// # Endpoints
//
//	POST /index      {docs: []Document}              -> {fieldErrors: []FieldError}
//	POST /sync       {docs: []ScannedDocument}         -> {fieldErrors: []FieldError}
//	POST /search     {query, includeCold, max}         -> {hits: []Hit}
//	GET  /stats                                        -> {count, bytes, readOnly}
//	POST /configure  ShardConfig                        -> 204 No Content
//	GET  /health                                        -> 200 OK
package rpc
