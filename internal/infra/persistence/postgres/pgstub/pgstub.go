// Package pgstub registers an in-memory database/sql driver that mimics the
// single deck_state table the postgres store writes, so store behavior is
// testable without a server.
package pgstub

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
)

var (
	_ driver.Pinger         = (*Conn)(nil)
	_ driver.ConnBeginTx    = (*Conn)(nil)
	_ driver.ExecerContext  = (*Conn)(nil)
	_ driver.QueryerContext = (*Conn)(nil)
)

// Conn is the shared stub connection. The error fields inject failures at
// each stage of the persistence path; State holds the upserted section
// payloads and Statements every statement the store issued.
type Conn struct {
	Statements []string
	State      map[string][]byte
	PingErr    error
	BeginErr   error
	ExecErr    error
	CommitErr  error
	WriteErrs  map[string]error
	IterErr    error
}

var openSeq atomic.Uint64

// Open registers a fresh driver instance and returns a handle together with
// the connection backing it.
func Open() (*sql.DB, *Conn) {
	conn := &Conn{State: make(map[string][]byte)}
	name := fmt.Sprintf("flowpg-%d", openSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "pgstub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *Conn
}

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare stays unimplemented; the store only goes through the context-aware
// exec and query entry points.
func (c *Conn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("pgstub: prepared statements unsupported")
}

func (c *Conn) Close() error { return nil }

func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *Conn) Ping(context.Context) error { return c.PingErr }

func (c *Conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	return stubTx{conn: c}, nil
}

// ExecContext acknowledges DDL and routes deck_state upserts into State.
func (c *Conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Statements = append(c.Statements, query)
	if c.ExecErr != nil {
		return nil, c.ExecErr
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO DECK_STATE") {
		return driver.RowsAffected(0), nil
	}
	return c.upsert(args)
}

func (c *Conn) upsert(args []driver.NamedValue) (driver.Result, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("pgstub: want section and payload, got %d args", len(args))
	}
	section, ok := args[0].Value.(string)
	if !ok {
		return nil, fmt.Errorf("pgstub: section must be a string, got %T", args[0].Value)
	}
	if err := c.WriteErrs[section]; err != nil {
		return nil, err
	}
	payload, ok := args[1].Value.([]byte)
	if !ok {
		return nil, fmt.Errorf("pgstub: payload must be bytes, got %T", args[1].Value)
	}
	if c.State == nil {
		c.State = make(map[string][]byte)
	}
	c.State[section] = bytes.Clone(payload)
	return driver.RowsAffected(1), nil
}

// QueryContext serves the snapshot select over the recorded sections in
// deterministic order.
func (c *Conn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToLower(query), "from deck_state") {
		return nil, fmt.Errorf("pgstub: unexpected query %q", query)
	}
	data := make([][]driver.Value, 0, len(c.State))
	for _, section := range slices.Sorted(maps.Keys(c.State)) {
		data = append(data, []driver.Value{section, bytes.Clone(c.State[section])})
	}
	return &stubRows{names: []string{"section", "payload"}, data: data, iterErr: c.IterErr}, nil
}

type stubTx struct {
	conn *Conn
}

func (t stubTx) Commit() error   { return t.conn.CommitErr }
func (t stubTx) Rollback() error { return nil }

type stubRows struct {
	names   []string
	data    [][]driver.Value
	cursor  int
	iterErr error
}

func (r *stubRows) Columns() []string { return r.names }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.cursor == len(r.data) {
		if r.iterErr != nil {
			return r.iterErr
		}
		return io.EOF
	}
	copy(dest, r.data[r.cursor])
	r.cursor++
	return nil
}
