// Package storetest provides a scripted in-memory store.TxRunner for repo tests
package storetest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"moonmining/internal/platform/store"

	"github.com/jackc/pgx/v5"
)

// Result is the canned answer to a statement
type Result struct {
	Rows     [][]any
	Affected int64
	Err      error
}

// Call records one statement sent to the fake
type Call struct {
	SQL  string
	Args []any
}

type route struct {
	match string
	queue []Result
	last  Result
}

// DB is a fake TxRunner. Statements are answered by the first route whose match string is
// contained in the SQL; queued results are consumed in order and the last one repeats.
// Unmatched statements succeed with no rows
type DB struct {
	mu     sync.Mutex
	routes []*route
	calls  []Call

	// TxErr, when set, fails every Tx before fn runs
	TxErr error
	// Txs counts started transactions
	Txs int
}

// New returns an empty fake
func New() *DB { return &DB{} }

// On answers statements containing match with results, in order
func (d *DB) On(match string, results ...Result) *DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := &route{match: match, queue: results}
	if len(results) > 0 {
		r.last = results[len(results)-1]
	}
	d.routes = append(d.routes, r)
	return d
}

// Calls returns every statement seen so far
func (d *DB) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallsMatching returns statements containing match
func (d *DB) CallsMatching(match string) []Call {
	var out []Call
	for _, c := range d.Calls() {
		if strings.Contains(c.SQL, match) {
			out = append(out, c)
		}
	}
	return out
}

func (d *DB) answer(sql string, args []any) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{SQL: sql, Args: args})
	for _, r := range d.routes {
		if !strings.Contains(sql, r.match) {
			continue
		}
		if len(r.queue) == 0 {
			return r.last
		}
		res := r.queue[0]
		r.queue = r.queue[1:]
		return res
	}
	return Result{}
}

// Exec implements store.RowQuerier
func (d *DB) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	res := d.answer(sql, args)
	return tag(res.Affected), res.Err
}

// Query implements store.RowQuerier
func (d *DB) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	res := d.answer(sql, args)
	if res.Err != nil {
		return nil, res.Err
	}
	return &rows{data: res.Rows}, nil
}

// QueryRow implements store.RowQuerier
func (d *DB) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	res := d.answer(sql, args)
	return row{rows: &rows{data: res.Rows}, err: res.Err}
}

// Tx implements store.TxRunner by running fn against the same fake
func (d *DB) Tx(_ context.Context, fn func(q store.RowQuerier) error) error {
	d.mu.Lock()
	d.Txs++
	txErr := d.TxErr
	d.mu.Unlock()
	if txErr != nil {
		return txErr
	}
	return fn(d)
}

var _ store.TxRunner = (*DB)(nil)

type tag int64

func (t tag) String() string      { return fmt.Sprintf("OK %d", int64(t)) }
func (t tag) RowsAffected() int64 { return int64(t) }

type rows struct {
	data [][]any
	i    int
}

func (r *rows) Next() bool { r.i++; return r.i <= len(r.data) }
func (r *rows) Err() error { return nil }
func (r *rows) Close()     {}

func (r *rows) Scan(dst ...any) error {
	if r.i < 1 || r.i > len(r.data) {
		return fmt.Errorf("storetest: scan without row")
	}
	return Assign(r.data[r.i-1], dst...)
}

type row struct {
	rows *rows
	err  error
}

func (r row) Scan(dst ...any) error {
	if r.err != nil {
		return r.err
	}
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dst...)
}

// Assign copies values into scan destinations, converting between compatible kinds.
// A nil value zeroes the destination; pointer destinations get a fresh pointer
func Assign(values []any, dst ...any) error {
	if len(values) != len(dst) {
		return fmt.Errorf("storetest: %d values for %d destinations", len(values), len(dst))
	}
	for i, d := range dst {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("storetest: destination %d is not a pointer", i)
		}
		dv = dv.Elem()
		if values[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		sv := reflect.ValueOf(values[i])
		target := dv.Type()
		if target.Kind() == reflect.Pointer && sv.Kind() != reflect.Pointer {
			if !sv.Type().ConvertibleTo(target.Elem()) {
				return fmt.Errorf("storetest: cannot assign %T to %s", values[i], target)
			}
			p := reflect.New(target.Elem())
			p.Elem().Set(sv.Convert(target.Elem()))
			dv.Set(p)
			continue
		}
		if !sv.Type().ConvertibleTo(target) {
			return fmt.Errorf("storetest: cannot assign %T to %s", values[i], target)
		}
		dv.Set(sv.Convert(target))
	}
	return nil
}
