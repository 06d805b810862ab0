// Package audit keeps a queryable index of dispatched actions in SQLite.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const defaultQueueSize = 1024

// Entry is one dispatch decision.
type Entry struct {
	Time    time.Time `json:"time"`
	TurnID  string    `json:"turn_id"`
	Issuer  string    `json:"issuer"`
	Tool    string    `json:"tool"`
	Params  string    `json:"params"`
	Outcome string    `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
}

// Stats reports the writer queue.
type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
	WriteErrors   uint64
}

type req struct {
	entry Entry
	// barrier is closed by the writer once every earlier entry is stored.
	barrier chan struct{}
}

// Recorder appends entries from a single writer goroutine. Record never
// blocks the caller; entries are dropped when the queue is full.
type Recorder struct {
	db  *sql.DB
	log *zap.Logger

	ch     chan req
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed atomic.Bool

	drops     atomic.Uint64
	writeErrs atomic.Uint64
}

// Open creates (or reuses) the index at path.
func Open(path string, logger *zap.Logger) (*Recorder, error) {
	if path == "" {
		return nil, errors.New("audit: empty db path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: schema: %w", err)
	}

	r := &Recorder{
		db:  db,
		log: logger,
		ch:  make(chan req, defaultQueueSize),
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()
	return r, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			issuer TEXT NOT NULL,
			tool TEXT NOT NULL,
			params_json TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_issuer ON actions(issuer, id);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_tool ON actions(tool, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Record queues e for writing.
func (r *Recorder) Record(e Entry) {
	if r == nil || r.closed.Load() {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return
	}
	select {
	case r.ch <- req{entry: e}:
	default:
		r.drops.Add(1)
	}
}

// Sync waits until every entry queued before the call is written.
func (r *Recorder) Sync(ctx context.Context) error {
	if r == nil || r.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	r.mu.RLock()
	if r.closed.Load() {
		r.mu.RUnlock()
		return nil
	}
	select {
	case r.ch <- req{barrier: done}:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recent returns up to n entries, newest first.
func (r *Recorder) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT ts, turn_id, issuer, tool, params_json, outcome, COALESCE(detail, '')
		 FROM actions ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&ts, &e.TurnID, &e.Issuer, &e.Tool, &e.Params, &e.Outcome, &e.Detail); err != nil {
			return nil, err
		}
		e.Time, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByOutcome groups all recorded entries by outcome.
func (r *Recorder) CountByOutcome(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, `SELECT outcome, COUNT(*) FROM actions GROUP BY outcome`)
}

// CountByTool groups all recorded entries by tool name.
func (r *Recorder) CountByTool(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, `SELECT tool, COUNT(*) FROM actions GROUP BY tool`)
}

func (r *Recorder) countBy(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (r *Recorder) Stats() Stats {
	return Stats{
		QueueDepth:    len(r.ch),
		QueueCapacity: cap(r.ch),
		DropTotal:     r.drops.Load(),
		WriteErrors:   r.writeErrs.Load(),
	}
}

// Close drains the queue and closes the database.
func (r *Recorder) Close() error {
	var err error
	r.once.Do(func() {
		r.mu.Lock()
		r.closed.Store(true)
		close(r.ch)
		r.mu.Unlock()
		r.wg.Wait()
		err = r.db.Close()
	})
	return err
}

func (r *Recorder) loop() {
	insert, err := r.db.Prepare(`INSERT INTO actions(ts,turn_id,issuer,tool,params_json,outcome,detail) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		r.log.Error("audit: prepare failed", zap.Error(err))
	} else {
		defer insert.Close()
	}

	for q := range r.ch {
		if q.barrier != nil {
			close(q.barrier)
			continue
		}
		if insert == nil {
			r.writeErrs.Add(1)
			continue
		}
		e := q.entry
		if e.Time.IsZero() {
			e.Time = time.Now()
		}
		if _, err := insert.Exec(e.Time.UTC().Format(time.RFC3339Nano), e.TurnID, e.Issuer, e.Tool,
			e.Params, e.Outcome, nullable(e.Detail)); err != nil {
			r.writeErrs.Add(1)
			r.log.Warn("audit: insert failed", zap.String("tool", e.Tool), zap.Error(err))
		}
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
