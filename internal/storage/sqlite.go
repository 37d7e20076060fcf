package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"js8bulletin/internal/scheduler"
	logx "js8bulletin/pkg/logx"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS emissions (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL,
	at           TEXT NOT NULL,
	text         TEXT NOT NULL,
	char_count   INTEGER NOT NULL,
	frequency_hz INTEGER NOT NULL DEFAULT 0,
	outcome      TEXT NOT NULL,
	manual       INTEGER NOT NULL DEFAULT 0,
	err          TEXT
);
CREATE INDEX IF NOT EXISTS emissions_at ON emissions(at);
`

type sqliteStore struct {
	db     *sql.DB
	log    logx.Logger
	closed atomic.Bool
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return st, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Append(ctx context.Context, rec scheduler.EmissionRecord) error {
	if s == nil || s.db == nil || s.closed.Load() {
		return ErrDisabled
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	manual := 0
	if rec.Manual {
		manual = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO emissions(id, at, text, char_count, frequency_hz, outcome, manual, err)
		 VALUES(?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Timestamp.Format(time.RFC3339Nano), rec.Text, rec.CharCount,
		rec.FrequencyHz, string(rec.Outcome), manual, nullStr(rec.Error),
	)
	return err
}

func (s *sqliteStore) Recent(ctx context.Context, n int) ([]scheduler.EmissionRecord, error) {
	if s == nil || s.db == nil || s.closed.Load() {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, text, char_count, frequency_hz, outcome, manual, err
		 FROM emissions ORDER BY seq DESC LIMIT ?`, limitOrDefault(n))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scheduler.EmissionRecord
	for rows.Next() {
		var (
			rec    scheduler.EmissionRecord
			at     string
			oc     string
			manual int
			errStr sql.NullString
		)
		if err := rows.Scan(&rec.ID, &at, &rec.Text, &rec.CharCount, &rec.FrequencyHz, &oc, &manual, &errStr); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, at)
		rec.Outcome = scheduler.Outcome(oc)
		rec.Manual = manual != 0
		rec.Error = errStr.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
