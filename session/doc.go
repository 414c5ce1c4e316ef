// Package session provides session persistence behind a single [Store] contract with two
// backends, plus the request-scoped [Handle] the HTTP layer mutates.
//
// # Backends
//
//   - [MemoryStore]: sharded in-process map with a background expiry sweep. Default;
//     single process only, lost on restart.
//   - [RedisStore]: Redis keys with native TTL for deployments that share session state
//     across instances.
//
// Both backends treat an entry whose expiry has passed as absent, whether or not it has
// been physically removed yet.
//
// # Payload encoding
//
// Payloads are stored as one format-version byte followed by a deterministic CBOR body.
// Unknown versions are rejected on read.
//
// # Architecture boundaries
//
// This package owns storage and the [Data] payload model. It does NOT read cookies,
// sign identifiers, or decide whether a request is authenticated; those belong to the
// middleware package and the Engine.
//
// # What this package must NOT do
//
//   - Import goSession, cookie, or middleware (no upward imports).
//   - Store secrets or credentials in [Data].
package session
