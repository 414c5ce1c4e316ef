// Package middleware binds goSession.Engine to net/http.
//
// # Handlers
//
//   - [Manager]: loads the session named by the cookie, attaches it to the request
//     context and commits it before the first response byte.
//   - [RequireUser]: rejects requests whose session carries no identity.
//   - [RequestID], [AccessLog], [Recover]: request correlation, structured access
//     logging and panic recovery.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Store access, cookie signing
// and identity decisions are delegated to the Engine.
//
// # What this package must NOT do
//
//   - Read or write the session store directly.
//   - Issue cookies under any name other than the Engine's cookie policy.
package middleware
