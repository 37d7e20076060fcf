package storage

import (
	"context"
	"errors"
	"strings"

	"js8bulletin/internal/scheduler"
	logx "js8bulletin/pkg/logx"
)

// Store is the persistence API for emission history.
type Store interface {
	Append(ctx context.Context, rec scheduler.EmissionRecord) error
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]scheduler.EmissionRecord, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultRecent
	}
	return n
}
