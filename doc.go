// Package goSession provides cookie-bound server-side sessions: a pluggable session store,
// signed session cookies, and the Login, Logout and WhoAmI operations of a small web app.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config] and value types
// ([User], [LoginRequest], [CommitResult], [MetricsSnapshot]). Storage lives in the session
// package, cookie signing in the cookie package, and the HTTP binding in middleware.
//
// # Request lifecycle
//
//  1. middleware.Manager verifies the cookie and calls [Engine.LoadSession].
//  2. Handlers call [Engine.Login], [Engine.Logout] or [Engine.WhoAmI] with the request
//     context; these mutate the session handle only.
//  3. Before the response is written the Manager calls [Engine.CommitSession], which is the
//     single point where the store is written.
//
// # What this package must NOT do
//
//   - Verify passwords. Login requires a non-empty password and nothing more.
//   - Retry store operations or switch backends after Build.
//   - Import middleware or internal/httpapi (no import cycles).
package goSession
