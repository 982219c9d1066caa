// Package backendtest provides backend clients for tests: a temp-dir SQLite
// store and a Recorder that counts calls and injects failures.
package backendtest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/sqlite"
	"github.com/purriosity/purriosity-server/internal/logger"
)

// Operations recorded by Recorder.
const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// NewSQLite opens a fresh SQLite store in a temp dir, closed on cleanup.
func NewSQLite(t testing.TB) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "backend.db"), logger.Discard())
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Call is one recorded request.
type Call struct {
	Op    string
	Table string
	Query backend.Query
	Rows  []backend.Row
}

type failure struct {
	op    string
	table string
	err   error
	// sticky failures apply until cleared
	sticky bool
}

// Recorder wraps a client, recording calls and failing on demand.
type Recorder struct {
	next backend.Client

	mu       sync.Mutex
	calls    []Call
	failures []failure
	// blocked ops wait on the channel before reaching next
	gates map[string]chan struct{}
}

var _ backend.Client = (*Recorder)(nil)

// NewRecorder wraps next.
func NewRecorder(next backend.Client) *Recorder {
	return &Recorder{next: next, gates: make(map[string]chan struct{})}
}

// FailNext makes the next op on table (any table when empty) return err.
func (r *Recorder) FailNext(op, table string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure{op: op, table: table, err: err})
}

// FailAlways makes every op on table return err until Reset.
func (r *Recorder) FailAlways(op, table string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure{op: op, table: table, err: err, sticky: true})
}

// Block holds every op on table until the returned release func is called.
func (r *Recorder) Block(op, table string) (release func()) {
	ch := make(chan struct{})
	r.mu.Lock()
	r.gates[op+":"+table] = ch
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.gates, op+":"+table)
			r.mu.Unlock()
			close(ch)
		})
	}
}

// Reset clears recorded calls and pending failures.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.failures = nil
}

// Calls returns recorded calls, optionally restricted to one op.
func (r *Recorder) Calls(op string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many op calls hit table (any table when empty).
func (r *Recorder) Count(op, table string) int {
	n := 0
	for _, c := range r.Calls(op) {
		if table == "" || c.Table == table {
			n++
		}
	}
	return n
}

// Driver reports the wrapped driver.
func (r *Recorder) Driver() string { return r.next.Driver() }

// Select implements backend.Client.
func (r *Recorder) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	if err := r.enter(ctx, Call{Op: OpSelect, Table: q.Table, Query: q}); err != nil {
		return nil, err
	}
	return r.next.Select(ctx, q)
}

// Insert implements backend.Client.
func (r *Recorder) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	if err := r.enter(ctx, Call{Op: OpInsert, Table: table, Rows: rows}); err != nil {
		return nil, err
	}
	return r.next.Insert(ctx, table, rows...)
}

// Update implements backend.Client.
func (r *Recorder) Update(ctx context.Context, q backend.Query, values backend.Row) ([]backend.Row, error) {
	if err := r.enter(ctx, Call{Op: OpUpdate, Table: q.Table, Query: q, Rows: []backend.Row{values}}); err != nil {
		return nil, err
	}
	return r.next.Update(ctx, q, values)
}

// Delete implements backend.Client.
func (r *Recorder) Delete(ctx context.Context, q backend.Query) error {
	if err := r.enter(ctx, Call{Op: OpDelete, Table: q.Table, Query: q}); err != nil {
		return err
	}
	return r.next.Delete(ctx, q)
}

// enter records c, waits on any gate, and returns an injected failure.
func (r *Recorder) enter(ctx context.Context, c Call) error {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	gate := r.gates[c.Op+":"+c.Table]
	var injected error
	for i, f := range r.failures {
		if f.op != c.Op || (f.table != "" && f.table != c.Table) {
			continue
		}
		injected = f.err
		if !f.sticky {
			r.failures = append(r.failures[:i], r.failures[i+1:]...)
		}
		break
	}
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return injected
}
