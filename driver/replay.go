package driver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// ErrNoRecording is returned by a Replayer when no recorded exchange
// matches the requested query and parameters.
var ErrNoRecording = errors.New("driver: no recorded rows for query")

// Store persists recorded query exchanges in a sqlite file. Rows are
// encoded with msgpack, the same wire shape the query engine hands back.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) a recording store at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	query       TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	rows        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS exchanges_key ON exchanges (query, fingerprint);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the backing database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records one query exchange.
func (s *Store) Save(query string, params map[string]any, rows []Record) error {
	blob, err := msgpack.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO exchanges (query, fingerprint, rows) VALUES (?, ?, ?)",
		query, fingerprint(params), blob,
	)
	if err != nil {
		return fmt.Errorf("save exchange: %w", err)
	}
	return nil
}

// Lookup returns the most recently recorded rows for a query and parameter
// set, and whether a recording exists.
func (s *Store) Lookup(query string, params map[string]any) ([]Record, bool, error) {
	var blob []byte
	err := s.db.QueryRow(
		"SELECT rows FROM exchanges WHERE query = ? AND fingerprint = ? ORDER BY id DESC LIMIT 1",
		query, fingerprint(params),
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup exchange: %w", err)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(blob))
	dec.UseLooseInterfaceDecoding(true)
	var rows []Record
	if err := dec.Decode(&rows); err != nil {
		return nil, false, fmt.Errorf("decode rows: %w", err)
	}
	return rows, true, nil
}

// fingerprint derives a stable key for a parameter map. Keys are sorted so
// equal maps always fingerprint identically.
func fingerprint(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, params[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Recorder wraps a Conn and persists every exchange it observes, so a later
// Replayer can serve the same traffic without a backend.
type Recorder struct {
	inner Conn
	store *Store
}

// NewRecorder creates a recording wrapper around an existing connection.
func NewRecorder(inner Conn, store *Store) *Recorder {
	return &Recorder{inner: inner, store: store}
}

// Run executes the query on the wrapped connection and records the result.
func (r *Recorder) Run(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	rows, err := r.inner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(query, params, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Begin opens a recording transaction on the wrapped connection.
func (r *Recorder) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.inner.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &recorderTx{inner: tx, store: r.store}, nil
}

// Close closes the wrapped connection.
func (r *Recorder) Close(ctx context.Context) error {
	return r.inner.Close(ctx)
}

type recorderTx struct {
	inner Tx
	store *Store
}

func (t *recorderTx) Run(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	rows, err := t.inner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if err := t.store.Save(query, params, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *recorderTx) Commit(ctx context.Context) error   { return t.inner.Commit(ctx) }
func (t *recorderTx) Rollback(ctx context.Context) error { return t.inner.Rollback(ctx) }
func (t *recorderTx) Closed() bool                       { return t.inner.Closed() }

// Replayer serves previously recorded exchanges. It satisfies Conn, so
// mapper code runs unchanged against it.
type Replayer struct {
	store *Store
}

// NewReplayer creates a connection that replays from store.
func NewReplayer(store *Store) *Replayer {
	return &Replayer{store: store}
}

// Run serves the recorded rows for the query, or ErrNoRecording.
func (r *Replayer) Run(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, ok, err := r.store.Lookup(query, params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecording, query)
	}
	return rows, nil
}

// Begin opens a replay transaction.
func (r *Replayer) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &replayTx{store: r.store}, nil
}

// Close is a no-op; the caller owns the store's lifecycle.
func (r *Replayer) Close(ctx context.Context) error { return nil }

type replayTx struct {
	store  *Store
	closed bool
}

func (t *replayTx) Run(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	if t.closed {
		return nil, ErrClosed
	}
	rows, ok, err := t.store.Lookup(query, params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecording, query)
	}
	return rows, nil
}

func (t *replayTx) Commit(ctx context.Context) error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	return nil
}

func (t *replayTx) Rollback(ctx context.Context) error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	return nil
}

func (t *replayTx) Closed() bool { return t.closed }
