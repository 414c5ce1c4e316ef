// Package internal contains helpers that are intentionally private to goSession,
// chiefly secure session identifier and cookie secret generation.
//
// # Sub-packages
//
//   - catalog: in-memory feature, household and todo collections served by the demo API
//   - clock: injectable time source for expiry and sweep scheduling
//   - httpapi: HTTP routes and handlers for the demo application
//   - settings: YAML + environment configuration loading for the server binary
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
