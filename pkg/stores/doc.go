// Package stores provides persistence for provider initialization statuses.
//
// The SQLite store backs the engine's status cache: each successful provider
// init is persisted keyed by (project, environment, provider) together with
// the hash of the config it was initialized with, so subsequent invocations
// can skip providers whose configuration has not changed.
package stores
