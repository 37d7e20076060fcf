package js8call

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	ErrNotConnected     = errors.New("not connected to JS8Call")
	ErrInvalidFrequency = errors.New("frequency must be > 0 (0 means keep the current rig frequency)")
)

// ConnectKind classifies a failed dial.
type ConnectKind string

const (
	ConnectRefused ConnectKind = "refused"
	ConnectTimeout ConnectKind = "timeout"
	ConnectResolve ConnectKind = "resolve"
	ConnectOther   ConnectKind = "other"
)

// ConnectionError is returned by Dial. No client exists after it.
type ConnectionError struct {
	Addr string
	Kind ConnectKind
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func classifyDialErr(err error) ConnectKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ConnectTimeout
		}
		return ConnectResolve
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ConnectTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ConnectTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectRefused
	}
	return ConnectOther
}

// SendKind classifies a failed command write.
type SendKind string

const (
	SendNotConnected SendKind = "not_connected"
	SendIOFailure    SendKind = "io_failure"
)

// SendError is returned by SendMessage and SetFrequency.
// errors.Is(err, ErrNotConnected) holds for SendNotConnected.
type SendError struct {
	Op   string
	Kind SendKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
