package docstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"wellscope/pkg/domain"
)

// pgStub emulates just enough of a postgres connection for the state table:
// ping, DDL, bucket upserts inside a transaction, and the full-table select.
type pgStub struct {
	mu       sync.Mutex
	execs    []string
	buckets  map[string][]byte
	failPing bool
	failExec bool
}

var pgStubSeq uint64

func newPGStubDB(t *testing.T, conn *pgStub) *sql.DB {
	t.Helper()
	if conn.buckets == nil {
		conn.buckets = make(map[string][]byte)
	}
	name := fmt.Sprintf("pgstub%d", atomic.AddUint64(&pgStubSeq, 1))
	sql.Register(name, &pgStubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	return db
}

type pgStubDriver struct{ conn *pgStub }

func (d *pgStubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *pgStub) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *pgStub) Close() error                        { return nil }

func (c *pgStub) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *pgStub) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return pgStubTx{}, nil
}

func (c *pgStub) Ping(context.Context) error {
	if c.failPing {
		return errors.New("connection refused")
	}
	return nil
}

func (c *pgStub) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	if c.failExec {
		return nil, errors.New("exec fail")
	}
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO STATE") {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 args, got %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("bucket arg type %T", args[0].Value)
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("payload arg type %T", args[1].Value)
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		c.buckets[bucket] = cp
	}
	return driver.RowsAffected(1), nil
}

func (c *pgStub) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToLower(query), "from state") {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.buckets))
	for k := range c.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]driver.Value, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []driver.Value{k, c.buckets[k]})
	}
	return &pgStubRows{cols: []string{"bucket", "payload"}, rows: rows}, nil
}

type pgStubTx struct{}

func (pgStubTx) Commit() error   { return nil }
func (pgStubTx) Rollback() error { return nil }

type pgStubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *pgStubRows) Columns() []string { return r.cols }
func (r *pgStubRows) Close() error      { return nil }

func (r *pgStubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func TestPostgresSnapshotterEnsuresStateTable(t *testing.T) {
	conn := &pgStub{}
	db := newPGStubDB(t, conn)
	restore := OverrideSQLOpen(func(_, dsn string) (*sql.DB, error) {
		if dsn != defaultPostgresDSN {
			t.Fatalf("expected default DSN, got %q", dsn)
		}
		return db, nil
	})
	defer restore()

	snap, err := NewPostgresSnapshotter(context.Background(), "")
	if err != nil {
		t.Fatalf("NewPostgresSnapshotter: %v", err)
	}
	defer func() { _ = snap.Close() }()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	sawDDL := false
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.execs)
	}
}

func TestPostgresSnapshotterRoundTrip(t *testing.T) {
	conn := &pgStub{}
	db := newPGStubDB(t, conn)
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	ctx := context.Background()
	snap, err := NewPostgresSnapshotter(ctx, "postgres://stub/wellscope")
	if err != nil {
		t.Fatalf("NewPostgresSnapshotter: %v", err)
	}
	defer func() { _ = snap.Close() }()

	if _, found, err := snap.Load(ctx); err != nil || found {
		t.Fatalf("expected empty state, found=%v err=%v", found, err)
	}

	want := testDocument()
	if err := snap.Write(ctx, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.mu.Lock()
	bucketCount := len(conn.buckets)
	conn.mu.Unlock()
	if bucketCount != len(stateBuckets) {
		t.Fatalf("expected %d buckets written, got %d", len(stateBuckets), bucketCount)
	}

	got, found, err := snap.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot found after write")
	}
	if got.Meta.Version != want.Meta.Version || len(got.Wells) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestPostgresSnapshotterUnreachableServer(t *testing.T) {
	conn := &pgStub{failPing: true}
	db := newPGStubDB(t, conn)
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewPostgresSnapshotter(context.Background(), "postgres://stub/down"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestPostgresSnapshotterCorruptBucket(t *testing.T) {
	conn := &pgStub{buckets: map[string][]byte{"meta": []byte(`{"version":`)}}
	db := newPGStubDB(t, conn)
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	ctx := context.Background()
	snap, err := NewPostgresSnapshotter(ctx, "postgres://stub/wellscope")
	if err != nil {
		t.Fatalf("NewPostgresSnapshotter: %v", err)
	}
	defer func() { _ = snap.Close() }()

	_, _, err = snap.Load(ctx)
	var corrupt domain.CorruptStateError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptStateError, got %v", err)
	}
}
