package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"js8bulletin/internal/budget"
	"js8bulletin/internal/js8call"
	"js8bulletin/internal/schedule"
	logx "js8bulletin/pkg/logx"
)

// DefaultSettingsFile is the snapshot written on quit and read on launch.
const DefaultSettingsFile = "js8_bulletin_last.json"

// Connection is where the JS8Call API listens.
// FrequencyHz 0 means "keep the rig's current frequency".
type Connection struct {
	Host        string
	Port        int
	FrequencyHz int64
}

func DefaultConnection() Connection {
	return Connection{Host: js8call.DefaultHost, Port: js8call.DefaultPort}
}

// Snapshot is the persisted bulletin state.
type Snapshot struct {
	Message          string
	Schedule         schedule.Spec
	LimitChars       int
	Connection       Connection
	AutostartEnabled bool
	SavedAt          time.Time
}

// DefaultSnapshot is used when nothing could be loaded.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Schedule:   schedule.Default(),
		LimitChars: budget.DefaultLimit,
		Connection: DefaultConnection(),
	}
}

// Store loads and saves the settings snapshot. Neither operation fails
// loudly: problems are logged and Load reports false.
type Store interface {
	Load() (Snapshot, bool)
	Save(s Snapshot)
}

// settingsFile is the on-disk layout. Keys are shared with older versions of
// the tool, so they stay snake_case and flat.
type settingsFile struct {
	Message          string `json:"message"`
	Interval         string `json:"interval"`
	MaxChars         int    `json:"max_chars"`
	JS8Host          string `json:"js8_host"`
	JS8Port          int    `json:"js8_port"`
	JS8Frequency     *int64 `json:"js8_frequency"`
	AutostartEnabled *bool  `json:"autostart_enabled"`
	SavedAt          string `json:"saved_at"`
}

// FileStore is the JSON file Store.
type FileStore struct {
	path string
	log  logx.Logger
	now  func() time.Time

	written atomic.Uint64 // hash of the last bytes Save wrote
}

func NewFileStore(path string, log logx.Logger) *FileStore {
	if strings.TrimSpace(path) == "" {
		path = DefaultSettingsFile
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &FileStore{path: path, log: log.With(logx.String("comp", "settings")), now: time.Now}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the snapshot. Fields that are missing or out of range fall back
// to defaults individually; a message longer than the stored limit is cut to
// that limit.
func (s *FileStore) Load() (Snapshot, bool) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("no saved settings", logx.String("path", s.path))
		} else {
			s.log.Warn("settings read failed", logx.String("path", s.path), logx.Err(err))
		}
		return Snapshot{}, false
	}
	snap, err := decodeSettings(b, s.log)
	if err != nil {
		s.log.Warn("settings file corrupt; using defaults", logx.String("path", s.path), logx.Err(err))
		return Snapshot{}, false
	}
	s.log.Info("settings loaded",
		logx.String("endpoint", js8call.Addr(snap.Connection.Host, snap.Connection.Port)),
		logx.Bool("autostart", snap.AutostartEnabled),
	)
	return snap, true
}

func decodeSettings(b []byte, log logx.Logger) (Snapshot, error) {
	var f settingsFile
	if err := json.Unmarshal(b, &f); err != nil {
		return Snapshot{}, err
	}
	snap := DefaultSnapshot()

	if h := strings.TrimSpace(f.JS8Host); h != "" {
		snap.Connection.Host = h
	}
	if f.JS8Port > 0 && f.JS8Port <= 65535 {
		snap.Connection.Port = f.JS8Port
	}
	if f.JS8Frequency != nil && *f.JS8Frequency >= 0 {
		snap.Connection.FrequencyHz = *f.JS8Frequency
	}
	if f.AutostartEnabled != nil {
		snap.AutostartEnabled = *f.AutostartEnabled
	}
	if f.MaxChars != 0 {
		if f.MaxChars >= budget.MinLimit {
			snap.LimitChars = f.MaxChars
		} else {
			log.Warn("saved max_chars below minimum; using default", logx.Int("max_chars", f.MaxChars))
		}
	}
	if f.Interval != "" {
		spec, err := schedule.Parse(f.Interval)
		if err != nil {
			log.Warn("saved interval invalid; using default", logx.String("interval", f.Interval), logx.Err(err))
		} else {
			snap.Schedule = spec
		}
	}
	if f.SavedAt != "" {
		if t, ok := parseSavedAt(f.SavedAt); ok {
			snap.SavedAt = t
		}
	}
	snap.Message = budget.Truncate(f.Message, snap.LimitChars)
	return snap, nil
}

// parseSavedAt accepts RFC 3339 and the zone-less ISO form older files used.
func parseSavedAt(v string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", v, time.Local); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Save overwrites the snapshot file via a temp file and rename. A zero
// SavedAt is stamped with the current time.
func (s *FileStore) Save(snap Snapshot) {
	if err := s.save(snap); err != nil {
		s.log.Warn("settings save failed", logx.String("path", s.path), logx.Err(err))
		return
	}
	s.log.Debug("settings saved", logx.String("path", s.path))
}

func (s *FileStore) save(snap Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = s.now()
	}
	freq := snap.Connection.FrequencyHz
	auto := snap.AutostartEnabled
	f := settingsFile{
		Message:          snap.Message,
		Interval:         snap.Schedule.String(),
		MaxChars:         snap.LimitChars,
		JS8Host:          snap.Connection.Host,
		JS8Port:          snap.Connection.Port,
		JS8Frequency:     &freq,
		AutostartEnabled: &auto,
		SavedAt:          snap.SavedAt.Format(time.RFC3339Nano),
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := WriteFileAtomic(s.path, raw); err != nil {
		return err
	}
	s.written.Store(hashBytes(raw))
	return nil
}

// WriteFileAtomic replaces path with data so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}

