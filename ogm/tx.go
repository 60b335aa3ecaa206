package ogm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/neogm/neogm/driver"
)

// QueryEvent is one executed query kept in the session history.
type QueryEvent struct {
	Query  string
	Params map[string]any
	At     time.Time
}

// DB is a session bound to one connection and one registry. All Manager
// and relationship operations go through a DB, which routes them either to
// the ambient transaction carried in the context or straight to the
// connection.
type DB struct {
	conn driver.Conn
	reg  *Registry
	log  *slog.Logger

	mu         sync.Mutex
	history    []QueryEvent
	historyCap int
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the structured logger queries are traced through.
func WithLogger(log *slog.Logger) Option {
	return func(db *DB) { db.log = log }
}

// WithRegistry uses a dedicated registry instead of the package-level one.
func WithRegistry(reg *Registry) Option {
	return func(db *DB) { db.reg = reg }
}

// WithHistory keeps the last n executed queries retrievable via History.
// Zero disables the history.
func WithHistory(n int) Option {
	return func(db *DB) { db.historyCap = n }
}

// New creates a session over conn.
func New(conn driver.Conn, opts ...Option) *DB {
	db := &DB{
		conn:       conn,
		reg:        defaultRegistry,
		log:        slog.Default(),
		historyCap: 100,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Registry returns the registry this session resolves types against.
func (db *DB) Registry() *Registry { return db.reg }

type txKey struct{}

// TxFromContext extracts the ambient transaction, if the context carries
// one.
func TxFromContext(ctx context.Context) (driver.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(driver.Tx)
	return tx, ok
}

// Run executes a query inside the ambient transaction when the context
// carries one, otherwise in its own auto-commit unit.
func (db *DB) Run(ctx context.Context, query string, params map[string]any) ([]driver.Record, error) {
	db.record(query, params)
	db.log.DebugContext(ctx, "cypher", "query", query, "params", params)
	if tx, ok := TxFromContext(ctx); ok {
		return tx.Run(ctx, query, params)
	}
	return db.conn.Run(ctx, query, params)
}

// Transaction opens a managed transaction, runs fn with it bound to the
// context, and commits on success or rolls back on error or panic. Opening
// a transaction inside a context that already carries one fails with
// ErrNestedTransaction; use Atomic to join instead.
func (db *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return ErrNestedTransaction
	}
	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if !tx.Closed() {
				_ = tx.Rollback(ctx)
			}
			panic(r)
		}
	}()

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		if !tx.Closed() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				db.log.ErrorContext(ctx, "rollback failed", "err", rbErr)
			}
		}
		return err
	}
	if tx.Closed() {
		return nil
	}
	return tx.Commit(ctx)
}

// Atomic runs fn in the ambient transaction when one is already active,
// and otherwise behaves exactly like Transaction. Nested Atomic blocks
// therefore join their enclosing unit and commit only once, at the
// outermost level.
func (db *DB) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}
	return db.Transaction(ctx, fn)
}

func (db *DB) record(query string, params map[string]any) {
	if db.historyCap <= 0 {
		return
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.history = append(db.history, QueryEvent{Query: query, Params: params, At: time.Now()})
	if len(db.history) > db.historyCap {
		db.history = db.history[len(db.history)-db.historyCap:]
	}
}

// History returns a snapshot of the most recent executed queries.
func (db *DB) History() []QueryEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]QueryEvent(nil), db.history...)
}

// ClearHistory drops the recorded query history.
func (db *DB) ClearHistory() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.history = nil
}
