package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "js8bulletin/pkg/logx"
)

// Manager owns the runtime options file and publishes reloads.
type Manager struct {
	path string

	mu       sync.RWMutex
	opts     *Options
	lastHash uint64

	// subsMu guards subs so publish never sends on a closed channel.
	subsMu sync.Mutex
	subs   []chan *Options

	log logx.Logger
}

func NewManager(path string) *Manager {
	return &Manager{path: path, log: logx.Nop()}
}

func (m *Manager) SetLogger(log logx.Logger) {
	if !log.IsZero() {
		m.log = log
	}
}

func (m *Manager) Path() string { return m.path }

// Parse reads and strictly decodes the options file (JSON or YAML).
// Unknown keys and trailing data are errors.
func (m *Manager) Parse() (*Options, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	return ParseOptions(m.path, b)
}

// ParseOptions decodes options bytes; the format follows the extension of path.
func ParseOptions(path string, b []byte) (*Options, error) {
	jb, err := optionsJSON(path, b)
	if err != nil {
		return nil, err
	}
	opts := DefaultOptions()
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(opts); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid options: trailing data")
		}
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks durations and enumerations.
func (o *Options) Validate() error {
	for _, d := range o.durationOptions() {
		if _, err := ParseDuration(d.key, d.raw); err != nil {
			return err
		}
	}
	if o.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(o.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unsupported %q (file or sqlite)", o.Storage.Driver)
		}
	}
	return nil
}

// PollEvery returns the scheduler tick.
func (o *Options) PollEvery() time.Duration {
	return DurationOr(o.PollInterval, time.Second)
}

// Load parses and commits the options. An empty path commits the defaults.
func (m *Manager) Load() (*Options, error) {
	if strings.TrimSpace(m.path) == "" {
		opts := DefaultOptions()
		m.commit(opts)
		return opts, nil
	}
	opts, err := m.Parse()
	if err != nil {
		return nil, err
	}
	m.commit(opts)
	return opts, nil
}

func (m *Manager) commit(opts *Options) {
	m.mu.Lock()
	m.opts = opts
	m.lastHash = hashJSON(opts)
	m.mu.Unlock()
}

func (m *Manager) Get() *Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts
}

func (m *Manager) Subscribe(buffer int) chan *Options {
	ch := make(chan *Options, max(1, buffer))
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan *Options) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s == ch {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// publish delivers the latest options, dropping the oldest queued value when
// a subscriber is full.
func (m *Manager) publish(opts *Options) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- opts:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- opts:
		default:
			m.log.Debug("options update dropped (subscriber slow)", logx.Int("queue_cap", cap(ch)))
		}
	}
}

// Watch reloads the options file on change until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	if strings.TrimSpace(m.path) == "" {
		<-ctx.Done()
		return nil
	}
	return WatchFile(ctx, m.path, m.log, func() {
		opts, err := m.Parse()
		if err != nil {
			m.log.Warn("options parse failed", logx.String("path", m.path), logx.Err(err))
			return
		}
		h := hashJSON(opts)
		m.mu.RLock()
		unchanged := h != 0 && h == m.lastHash
		m.mu.RUnlock()
		if unchanged {
			m.log.Debug("options unchanged; skipping publish", logx.String("path", m.path))
			return
		}
		m.commit(opts)
		m.publish(opts)
		m.log.Debug("options published", logx.String("path", m.path), logx.String("hash", fmt.Sprintf("%x", h)))
	})
}

// WatchFile calls onChange (debounced) whenever path is written, created,
// renamed or removed. The directory is watched so editors that replace the
// file are handled. A broken fsnotify watcher is recreated with jittered
// backoff. WatchFile returns nil when ctx is done.
func WatchFile(ctx context.Context, path string, log logx.Logger, onChange func()) error {
	if log.IsZero() {
		log = logx.Nop()
	}
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
		debounceDelay      = 250 * time.Millisecond
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		backoff = min(backoff*2, restartBackoffMax)
		return wait
	}
	sleep := func(d time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() {
			if ctx.Err() == nil {
				onChange()
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for ctx.Err() == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("file watch init failed", logx.Err(err), logx.String("dir", dir))
			if !sleep(nextWait()) {
				return nil
			}
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			log.Warn("file watch add failed", logx.Err(err), logx.String("dir", dir))
			if !sleep(nextWait()) {
				return nil
			}
			continue
		}

		backoff = restartBackoffBase
		log.Debug("file watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					debounce()
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					log.Warn("file watch overflow; forcing reload", logx.Err(err), logx.String("dir", dir))
					debounce()
					continue
				}
				log.Warn("file watch error", logx.Err(err), logx.String("dir", dir))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = w.Close()
		wait := nextWait()
		log.Warn("file watcher stopped; restarting", logx.String("file", file), logx.Duration("backoff", wait))
		if !sleep(wait) {
			return nil
		}
	}
	return nil
}

func hashJSON(v any) uint64 {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return hashBytes(b)
}

// hashBytes returns a stable 64-bit hash of b. Empty input returns 0.
func hashBytes(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
