// Package store persists pipeline diagnostics to SQLite: stream
// validation attempts and encoder-complexity samples, queryable through
// the stats API.
package store
