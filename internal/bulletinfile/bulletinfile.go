// Package bulletinfile reads and writes bulletin files.
//
// A ".json" file carries the message with its schedule, limit and endpoint
// settings. Any other extension is plain text holding only the message.
package bulletinfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"js8bulletin/internal/budget"
	"js8bulletin/internal/config"
	"js8bulletin/internal/schedule"
)

type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// FormatFor picks the format from the file extension.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatText
}

// Bulletin is what gets exported.
type Bulletin struct {
	Message    string
	Schedule   schedule.Spec
	LimitChars int
	Connection config.Connection
}

type fileJSON struct {
	Message      string `json:"message"`
	Interval     string `json:"interval,omitempty"`
	MaxChars     int    `json:"max_chars,omitempty"`
	CharCount    int    `json:"char_count"`
	JS8Host      string `json:"js8_host,omitempty"`
	JS8Port      int    `json:"js8_port,omitempty"`
	JS8Frequency int64  `json:"js8_frequency"`
	SavedAt      string `json:"saved_at,omitempty"`
}

// Export writes b to path. Surrounding whitespace of the message is dropped
// in both formats.
func Export(path string, b Bulletin, now time.Time) error {
	msg := strings.TrimSpace(b.Message)
	var data []byte
	switch FormatFor(path) {
	case FormatJSON:
		f := fileJSON{
			Message:      msg,
			Interval:     b.Schedule.String(),
			MaxChars:     b.LimitChars,
			CharCount:    budget.Count(msg),
			JS8Host:      b.Connection.Host,
			JS8Port:      b.Connection.Port,
			JS8Frequency: b.Connection.FrequencyHz,
			SavedAt:      now.Format(time.RFC3339Nano),
		}
		raw, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return fmt.Errorf("encode bulletin: %w", err)
		}
		data = raw
	default:
		data = []byte(msg)
	}
	if err := config.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Imported is the result of reading a bulletin file.
type Imported struct {
	Format  Format
	Message string
	// Truncated is set when Message was cut to the limit passed to Import.
	Truncated     bool
	OriginalChars int
	// FileLimit is the file's own max_chars (JSON only, 0 when absent). When it
	// differs from the current limit the caller may offer to adopt it.
	FileLimit int
	// Schedule is the file's interval (JSON only, nil when absent or invalid).
	Schedule *schedule.Spec
}

// Import reads path and clamps the message to limit characters.
func Import(path string, limit int) (Imported, error) {
	im, err := Read(path)
	if err != nil {
		return Imported{}, err
	}
	return im.Clamp(limit), nil
}

// Read parses path without enforcing any limit.
func Read(path string) (Imported, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Imported{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	out := Imported{Format: FormatFor(path)}

	msg := string(raw)
	if out.Format == FormatJSON {
		var f fileJSON
		if err := json.Unmarshal(raw, &f); err != nil {
			return Imported{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
		}
		msg = f.Message
		if f.MaxChars >= budget.MinLimit {
			out.FileLimit = f.MaxChars
		}
		if f.Interval != "" {
			if spec, err := schedule.Parse(f.Interval); err == nil {
				out.Schedule = &spec
			}
		}
	}
	out.Message = msg
	out.OriginalChars = budget.Count(msg)
	return out, nil
}

// Clamp truncates the message to limit characters and sets Truncated.
func (im Imported) Clamp(limit int) Imported {
	cut := budget.Truncate(im.Message, limit)
	im.Truncated = im.Truncated || len(cut) != len(im.Message)
	im.Message = cut
	return im
}
