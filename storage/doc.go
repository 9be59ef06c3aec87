// Package storage provides the durable key-value layer that session state is
// mirrored into.
//
// # Backends
//
//   - [RedisBackend]: origin-scoped keys in Redis. A multi-key [RedisBackend.Delete]
//     is a single DEL, so clearing every session key is atomic from the caller's view.
//   - [MemoryBackend]: process-local map for tests, tooling and deployments
//     where durable storage is disabled.
//
// # Architecture boundaries
//
// This package stores opaque strings. It does NOT encode or decode session
// fields and does NOT decide what happens when a read or write fails; the
// session package owns recovery.
package storage
