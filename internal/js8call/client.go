// Package js8call is a fire-and-forget client for the JS8Call TCP API.
//
// A Client owns exactly one TCP connection. It never reads responses and never
// reconnects on its own: after an I/O failure the client is Disconnected for
// good and the owner replaces it with a freshly dialed one.
package js8call

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	logx "js8bulletin/pkg/logx"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 2442

	// DialTimeout bounds connection establishment and each command write.
	DialTimeout = 5 * time.Second
)

// State is the two-state connection model.
type State int32

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

type Option func(*Client)

func WithLogger(log logx.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithStateHook registers fn to be called after every state transition.
// fn runs on the goroutine that caused the transition.
func WithStateHook(fn func(State)) Option {
	return func(c *Client) { c.onState = fn }
}

type Client struct {
	addr string
	log  logx.Logger

	mu   sync.Mutex // guards conn; writes are serialized through it
	conn net.Conn

	state   atomic.Int32
	onState func(State)
}

// Addr formats host:port the way Dial uses it.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Dial connects to the endpoint with the fixed DialTimeout. On failure it
// returns a *ConnectionError and no client.
func Dial(ctx context.Context, host string, port int, opts ...Option) (*Client, error) {
	addr := Addr(host, port)
	c := &Client{addr: addr}
	for _, o := range opts {
		o(c)
	}
	if c.log.IsZero() {
		c.log = logx.Nop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d := net.Dialer{Timeout: DialTimeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		cerr := &ConnectionError{Addr: addr, Kind: classifyDialErr(err), Err: err}
		c.log.Warn("connect failed", logx.String("addr", addr), logx.String("kind", string(cerr.Kind)), logx.Err(err))
		return nil, cerr
	}
	c.conn = conn
	c.setState(Connected)
	c.log.Info("connected", logx.String("addr", addr), logx.Duration("took", time.Since(start)))
	return c, nil
}

// Probe dials and immediately disconnects. It is used for connection tests
// that must not disturb the live client.
func Probe(ctx context.Context, host string, port int) error {
	c, err := Dial(ctx, host, port)
	if err != nil {
		return err
	}
	c.Disconnect()
	return nil
}

func (c *Client) Addr() string { return c.addr }

func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) Connected() bool { return c.State() == Connected }

// SendMessage writes a TX.SEND_MESSAGE command. freqHz 0 keeps the current
// rig frequency. Success only means the write did not fail.
func (c *Client) SendMessage(text string, freqHz int64) error {
	return c.write("send_message", SendMessageCommand(text, freqHz))
}

// SendDirected sends text addressed to call.
func (c *Client) SendDirected(call, text string, freqHz int64) error {
	return c.SendMessage(Directed(call, text), freqHz)
}

// SetFrequency writes a RIG.SET_FREQ command. hz must be > 0.
func (c *Client) SetFrequency(hz int64) error {
	if hz <= 0 {
		return fmt.Errorf("set_frequency %d: %w", hz, ErrInvalidFrequency)
	}
	return c.write("set_frequency", SetFreqCommand(hz))
}

func (c *Client) write(op string, cmd Command) error {
	line, err := Encode(cmd)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil || c.State() != Connected {
		c.mu.Unlock()
		return &SendError{Op: op, Kind: SendNotConnected, Err: ErrNotConnected}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(DialTimeout))
	_, werr := conn.Write(line)
	if werr != nil {
		_ = conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	if werr != nil {
		c.setState(Disconnected)
		c.log.Warn("command write failed", logx.String("op", op), logx.String("addr", c.addr), logx.Err(werr))
		return &SendError{Op: op, Kind: SendIOFailure, Err: werr}
	}
	c.log.Debug("command written", logx.String("type", cmd.Type), logx.Int("bytes", len(line)))
	return nil
}

// Disconnect closes the connection. It is idempotent and never fails.
func (c *Client) Disconnect() {
	if c == nil {
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if c.setState(Disconnected) {
		c.log.Info("disconnected", logx.String("addr", c.addr))
	}
}

// setState stores s and reports whether it changed.
func (c *Client) setState(s State) bool {
	prev := State(c.state.Swap(int32(s)))
	if prev == s {
		return false
	}
	if c.onState != nil {
		c.onState(s)
	}
	return true
}
