// Package testutil holds test doubles shared across packages.
package testutil

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Statement is one SQL call seen by FakeDB.
type Statement struct {
	SQL  string
	Args []any
}

// FakeDB stands in for a pgx pool or transaction. It records every statement
// and answers Query and QueryRow from Rows. QueryRow with no rows returns
// pgx.ErrNoRows.
type FakeDB struct {
	mu sync.Mutex

	Execs   []Statement
	Queries []Statement
	Batches [][]Statement
	// Committed holds the batches whose every statement succeeded.
	Committed [][]Statement

	Rows     [][]any
	ExecErr  error
	QueryErr error
	// BatchFailAt makes the n-th statement of a batch (1-based) fail with BatchErr.
	BatchFailAt int
	BatchErr    error
}

func (f *FakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Execs = append(f.Execs, Statement{SQL: sql, Args: args})
	if f.ExecErr != nil {
		return pgconn.CommandTag{}, f.ExecErr
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (f *FakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, Statement{SQL: sql, Args: args})
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return &fakeRows{rows: f.Rows}, nil
}

func (f *FakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, Statement{SQL: sql, Args: args})
	return &fakeRow{rows: f.Rows, err: f.QueryErr}
}

// SendBatch records the queued statements. Like a real batch they succeed or
// fail together: only a fully successful batch lands in Committed.
func (f *FakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	stmts := make([]Statement, 0, len(b.QueuedQueries))
	for _, q := range b.QueuedQueries {
		stmts = append(stmts, Statement{SQL: q.SQL, Args: q.Arguments})
	}
	f.Batches = append(f.Batches, stmts)
	return &fakeBatch{db: f, stmts: stmts}
}

// LastBatch returns the most recently sent batch.
func (f *FakeDB) LastBatch() []Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Batches) == 0 {
		return nil
	}
	return f.Batches[len(f.Batches)-1]
}

type fakeBatch struct {
	db    *FakeDB
	stmts []Statement
	n     int
	err   error
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) {
	b.n++
	if b.n > len(b.stmts) {
		return pgconn.CommandTag{}, fmt.Errorf("batch has %d statements", len(b.stmts))
	}
	if b.db.BatchFailAt == b.n && b.err == nil {
		b.err = b.db.BatchErr
		return pgconn.CommandTag{}, b.err
	}
	if b.err != nil {
		return pgconn.CommandTag{}, b.err
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (b *fakeBatch) Query() (pgx.Rows, error) {
	if _, err := b.Exec(); err != nil {
		return nil, err
	}
	return &fakeRows{}, nil
}

func (b *fakeBatch) QueryRow() pgx.Row {
	_, err := b.Exec()
	return &fakeRow{err: err}
}

func (b *fakeBatch) Close() error {
	if b.db.BatchFailAt > b.n && b.db.BatchFailAt <= len(b.stmts) && b.err == nil {
		b.err = b.db.BatchErr
	}
	if b.err != nil {
		return b.err
	}
	b.db.mu.Lock()
	b.db.Committed = append(b.db.Committed, b.stmts)
	b.db.mu.Unlock()
	return nil
}

type fakeRows struct {
	rows [][]any
	i    int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.err != nil || r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.i == 0 || r.i > len(r.rows) {
		return fmt.Errorf("scan called without a current row")
	}
	if err := scanInto(r.rows[r.i-1], dest); err != nil {
		r.err = err
		return err
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	if r.i == 0 || r.i > len(r.rows) {
		return nil, fmt.Errorf("no current row")
	}
	return r.rows[r.i-1], nil
}

type fakeRow struct {
	rows [][]any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(r.rows) == 0 {
		return pgx.ErrNoRows
	}
	return scanInto(r.rows[0], dest)
}

// scanInto copies row values into pointer destinations, converting between
// compatible kinds (int to int64, string to a named string type).
func scanInto(row []any, dest []any) error {
	if len(row) != len(dest) {
		return fmt.Errorf("row has %d columns, scan wants %d", len(row), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("column %d: destination is not a pointer", i)
		}
		target := dv.Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		sv := reflect.ValueOf(row[i])
		switch {
		case sv.Type().AssignableTo(target.Type()):
			target.Set(sv)
		case sv.Type().ConvertibleTo(target.Type()):
			target.Set(sv.Convert(target.Type()))
		default:
			return fmt.Errorf("column %d: cannot scan %T into %s", i, row[i], target.Type())
		}
	}
	return nil
}
