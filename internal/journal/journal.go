// Package journal records every program run and its top-level results in a
// SQL database. sqlite3, mysql and postgres are supported; MySQL DSNs need
// parseTime=true so timestamps scan back into time.Time.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

type dialect struct {
	timeType     string
	numberedArgs bool
}

var dialects = map[string]dialect{
	"sqlite3":  {timeType: "TIMESTAMP"},
	"mysql":    {timeType: "DATETIME(6)"},
	"postgres": {timeType: "TIMESTAMPTZ", numberedArgs: true},
}

// rebind rewrites '?' placeholders into $n for drivers that need it.
func (d dialect) rebind(query string) string {
	if !d.numberedArgs {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS runs (
	id VARCHAR(36) PRIMARY KEY,
	source VARCHAR(1024) NOT NULL,
	started_at %[1]s NOT NULL,
	finished_at %[1]s NULL,
	status VARCHAR(16) NOT NULL,
	error TEXT NULL
)`, d.timeType),
		`CREATE TABLE IF NOT EXISTS results (
	run_id VARCHAR(36) NOT NULL,
	position INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
)`,
	}
}

// Journal is safe to use as a nil pointer, in which case every method is a
// no-op. That is how a disabled journal is represented.
type Journal struct {
	db      *sql.DB
	driver  string
	dialect dialect
}

func Open(ctx context.Context, driver, dsn string) (*Journal, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("journal: unsupported driver %q (want sqlite3, mysql or postgres)", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// one connection keeps ":memory:" databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: connect %s: %w", driver, err)
	}

	j := &Journal{db: db, driver: driver, dialect: d}
	for _, stmt := range d.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: create schema: %w", err)
		}
	}
	slog.Info("journal opened", slog.String("driver", driver))
	return j, nil
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) exec(ctx context.Context, query string, args ...any) error {
	_, err := j.db.ExecContext(ctx, j.dialect.rebind(query), args...)
	return err
}

// Run is one journaled program execution.
type Run struct {
	ID        string
	Source    string
	StartedAt time.Time

	journal *Journal
}

func (j *Journal) Begin(ctx context.Context, source string) (*Run, error) {
	if j == nil {
		return nil, nil
	}
	r := &Run{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UTC(),
		journal:   j,
	}
	err := j.exec(ctx,
		`INSERT INTO runs (id, source, started_at, status) VALUES (?, ?, ?, ?)`,
		r.ID, source, r.StartedAt, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("journal: begin run: %w", err)
	}
	return r, nil
}

// Record stores the rendered result of the top-level element at position.
func (r *Run) Record(ctx context.Context, position int, rendered string) error {
	if r == nil {
		return nil
	}
	err := r.journal.exec(ctx,
		`INSERT INTO results (run_id, position, value) VALUES (?, ?, ?)`,
		r.ID, position, rendered)
	if err != nil {
		return fmt.Errorf("journal: record result %d: %w", position, err)
	}
	return nil
}

// Finish marks the run ok, or failed with runErr's message.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	if r == nil {
		return nil
	}
	status := StatusOK
	var message sql.NullString
	if runErr != nil {
		status = StatusFailed
		message = sql.NullString{String: runErr.Error(), Valid: true}
	}
	err := r.journal.exec(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), status, message, r.ID)
	if err != nil {
		return fmt.Errorf("journal: finish run: %w", err)
	}
	return nil
}

type RunSummary struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Error      string
	Results    int
}

func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Runs lists the most recent runs first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, j.dialect.rebind(`
SELECT r.id, r.source, r.started_at, r.finished_at, r.status, r.error,
	(SELECT COUNT(*) FROM results x WHERE x.run_id = r.id)
FROM runs r
ORDER BY r.started_at DESC
LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			s        RunSummary
			finished sql.NullTime
			message  sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Source, &s.StartedAt, &finished, &s.Status, &message, &s.Results); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		if finished.Valid {
			s.FinishedAt = finished.Time
		}
		s.Error = message.String
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// Results returns the rendered results of one run in position order.
func (j *Journal) Results(ctx context.Context, runID string) ([]string, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, j.dialect.rebind(
		`SELECT value FROM results WHERE run_id = ? ORDER BY position`), runID)
	if err != nil {
		return nil, fmt.Errorf("journal: list results: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("journal: scan result: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
