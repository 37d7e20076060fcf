package config

import (
	"context"
	"os"
	"sync"

	logx "js8bulletin/pkg/logx"
)

// WatchSettings reloads the store's file whenever its content changes on disk
// and hands the result to apply. Files written by store.Save are skipped.
func WatchSettings(ctx context.Context, store *FileStore, log logx.Logger, apply func(Snapshot)) error {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "settings-watch"))

	var (
		mu   sync.Mutex
		last uint64
	)
	if b, err := os.ReadFile(store.Path()); err == nil {
		last = hashBytes(b)
	}
	return WatchFile(ctx, store.Path(), log, func() {
		b, err := os.ReadFile(store.Path())
		if err != nil {
			return
		}
		h := hashBytes(b)
		mu.Lock()
		seen := h == last || h == store.written.Load()
		last = h
		mu.Unlock()
		if seen {
			return
		}
		snap, ok := store.Load()
		if !ok {
			return
		}
		log.Info("settings changed on disk")
		apply(snap)
	})
}
