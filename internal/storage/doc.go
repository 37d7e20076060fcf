// Package storage keeps the emission history.
//
// Two drivers are available:
//   - "file": append-only JSON Lines next to the configured path
//   - "sqlite": a single SQLite database file
//
// History is best effort. The scheduler never waits on it and a failing
// store only produces warnings.
package storage
