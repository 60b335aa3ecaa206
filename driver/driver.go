// Package driver defines the narrow contract the mapper core consumes to
// talk to a Cypher query engine, along with backend temporal value types,
// connection configuration, and a record/replay Conn for offline fixtures.
//
// The core never depends on a concrete backend: anything that can run a
// parameterized query and manage explicit transactions satisfies Conn.
package driver

import (
	"context"
	"errors"
)

// Record is one row of a query result, keyed by return-clause names.
type Record = map[string]any

// ErrClosed is returned when a transaction is used after commit, rollback,
// or close.
var ErrClosed = errors.New("driver: transaction is closed")

// Tx is an explicit transaction handle. A handle is owned by exactly one
// logical call chain and must be released exactly once, by Commit or
// Rollback.
type Tx interface {
	// Run executes a query inside the transaction and returns its rows.
	Run(ctx context.Context, query string, params map[string]any) ([]Record, error)
	// Commit persists the transaction's writes and closes the handle.
	Commit(ctx context.Context) error
	// Rollback discards the transaction's writes and closes the handle.
	Rollback(ctx context.Context) error
	// Closed reports whether the handle has already been released.
	Closed() bool
}

// Conn is a connection to a query engine.
type Conn interface {
	// Run executes a query in an auto-commit session and returns its rows.
	Run(ctx context.Context, query string, params map[string]any) ([]Record, error)
	// Begin opens a new explicit transaction.
	Begin(ctx context.Context) (Tx, error)
	// Close releases the connection.
	Close(ctx context.Context) error
}
