package scheduler

import (
	"context"
	"errors"
	"time"

	"js8bulletin/internal/schedule"
)

var ErrAlreadyRunning = errors.New("scheduler already running")

// Outcome of one emission.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeSimulated Outcome = "simulated"
	OutcomeFailed    Outcome = "failed"
)

// EmissionRecord describes one transmit attempt. Records are immutable once
// reported.
type EmissionRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Text        string    `json:"text"`
	CharCount   int       `json:"char_count"`
	FrequencyHz int64     `json:"frequency_hz"`
	Outcome     Outcome   `json:"outcome"`
	Manual      bool      `json:"manual"`
	Error       string    `json:"error,omitempty"`
}

// Transmission is what a TransmitFunc reports about the attempt it made.
type Transmission struct {
	Text        string
	FrequencyHz int64
	Simulated   bool
}

// TransmitFunc performs one emission. It runs on the polling worker (or the
// SendOnce caller) and may block on socket I/O. The context is never
// canceled by Stop: an in-flight transmit always runs to completion.
type TransmitFunc func(ctx context.Context) (Transmission, error)

// Hooks receive scheduler notifications. They are called from the worker
// goroutine; callers that need foreground delivery wrap them with a poster.
// OnSchedule runs under the scheduler's ordering lock and must not call Start
// or Stop.
type Hooks struct {
	OnSchedule func(next *time.Time)
	OnEmission func(rec EmissionRecord)
}

// Runtime is a snapshot of the scheduler state.
// Next is non-nil only while Active.
type Runtime struct {
	Active bool            `json:"active"`
	Spec   schedule.Spec   `json:"-"`
	Next   *time.Time      `json:"next,omitempty"`
	Last   *EmissionRecord `json:"last,omitempty"`
}
