package ogm

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/neogm/neogm/driver"
)

// Test models shared across the package tests.

type Company struct {
	BaseNode
	Name string `node:"name,unique"`
}

type WorkAt struct {
	Since int64 `node:"since"`
}

type Person struct {
	BaseNode
	Name     string  `node:"name,index"`
	Age      int     `node:"age"`
	Nickname *string `node:"nickname"`

	WorksAt RelSet[Company, WorkAt] `rel:"works_at,type=WORK_AT,dir=out"`
	Friends RelSet[Person, Props]   `rel:"friends,type=FRIEND,dir=undirected"`
}

type Employee struct {
	Person
	Salary float64 `node:"salary"`
}

type Account struct {
	BaseNode
	Email     string `node:"email,unique"`
	IsDeleted bool   `node:"is_deleted"`
}

// script is a shared exchange log and canned-result queue used by the mock
// connection and its transactions.
type script struct {
	calls   []scriptCall
	results [][]driver.Record
	err     error
}

type scriptCall struct {
	query  string
	params map[string]any
}

func (s *script) run(query string, params map[string]any) ([]driver.Record, error) {
	s.calls = append(s.calls, scriptCall{query: query, params: params})
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) == 0 {
		return nil, nil
	}
	rows := s.results[0]
	s.results = s.results[1:]
	return rows, nil
}

// reply queues one result set for the next executed query.
func (s *script) reply(rows ...driver.Record) {
	s.results = append(s.results, rows)
}

func (s *script) lastQuery() string {
	if len(s.calls) == 0 {
		return ""
	}
	return s.calls[len(s.calls)-1].query
}

type mockConn struct {
	script *script
	txs    []*mockTx
}

func (c *mockConn) Run(ctx context.Context, query string, params map[string]any) ([]driver.Record, error) {
	return c.script.run(query, params)
}

func (c *mockConn) Begin(ctx context.Context) (driver.Tx, error) {
	tx := &mockTx{script: c.script}
	c.txs = append(c.txs, tx)
	return tx, nil
}

func (c *mockConn) Close(ctx context.Context) error { return nil }

type mockTx struct {
	script    *script
	commits   int
	rollbacks int
	closed    bool
}

func (t *mockTx) Run(ctx context.Context, query string, params map[string]any) ([]driver.Record, error) {
	if t.closed {
		return nil, driver.ErrClosed
	}
	return t.script.run(query, params)
}

func (t *mockTx) Commit(ctx context.Context) error {
	t.commits++
	t.closed = true
	return nil
}

func (t *mockTx) Rollback(ctx context.Context) error {
	t.rollbacks++
	t.closed = true
	return nil
}

func (t *mockTx) Closed() bool { return t.closed }

// newTestDB builds a session over a scripted connection with the shared
// test models registered in an isolated registry.
func newTestDB(t *testing.T) (*DB, *mockConn) {
	t.Helper()
	reg := NewRegistry()
	for _, model := range []any{Person{}, Company{}, Employee{}, Account{}} {
		if _, err := reg.Add(reflect.TypeOf(model)); err != nil {
			t.Fatalf("register %T: %v", model, err)
		}
	}
	conn := &mockConn{script: &script{}}
	db := New(conn,
		WithRegistry(reg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return db, conn
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("expected %q to contain %q", s, substr)
	}
}

func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("got:\n  %s\nwant:\n  %s", got, want)
	}
}
