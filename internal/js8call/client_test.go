package js8call

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeEndpoint accepts one connection and collects every line written to it.
type fakeEndpoint struct {
	ln    net.Listener
	mu    sync.Mutex
	lines []string
	done  chan struct{}
}

func newFakeEndpoint(t *testing.T) *fakeEndpoint {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeEndpoint{ln: ln, done: make(chan struct{})}
	go func() {
		defer close(f.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			f.mu.Lock()
			f.lines = append(f.lines, sc.Text())
			f.mu.Unlock()
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeEndpoint) hostPort(t *testing.T) (string, int) {
	t.Helper()
	host, p, err := net.SplitHostPort(f.ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return host, port
}

func (f *fakeEndpoint) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.lines) >= n {
			out := append([]string(nil), f.lines...)
			f.mu.Unlock()
			return out
		}
		f.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines", n)
	return nil
}

func TestEncodeWireFormat(t *testing.T) {
	t.Parallel()
	line, err := Encode(SendMessageCommand("CQ CQ DE N0CALL <73>", 0))
	require.NoError(t, err)
	require.Equal(t, `{"type":"TX.SEND_MESSAGE","value":"CQ CQ DE N0CALL <73>","params":{"FREQ":0,"SPEED":0}}`+"\n", string(line))

	line, err = Encode(SetFreqCommand(7078000))
	require.NoError(t, err)
	require.Equal(t, `{"type":"RIG.SET_FREQ","value":"7078000","params":{}}`+"\n", string(line))
}

func TestClientSendsCommands(t *testing.T) {
	t.Parallel()
	ep := newFakeEndpoint(t)
	host, port := ep.hostPort(t)

	var states []State
	var smu sync.Mutex
	c, err := Dial(context.Background(), host, port, WithStateHook(func(s State) {
		smu.Lock()
		states = append(states, s)
		smu.Unlock()
	}))
	require.NoError(t, err)
	require.Equal(t, Connected, c.State())

	require.NoError(t, c.SetFrequency(14078000))
	require.NoError(t, c.SendMessage("HELLO", 14078000))
	require.NoError(t, c.SendDirected("@ALLCALL", "QST", 0))

	lines := ep.waitLines(t, 3)
	var cmd struct {
		Type   string         `json:"type"`
		Value  string         `json:"value"`
		Params map[string]any `json:"params"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &cmd))
	require.Equal(t, TypeSetFreq, cmd.Type)
	require.Equal(t, "14078000", cmd.Value)
	require.Empty(t, cmd.Params)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &cmd))
	require.Equal(t, TypeSendMessage, cmd.Type)
	require.Equal(t, "HELLO", cmd.Value)
	require.EqualValues(t, 14078000, cmd.Params["FREQ"])
	require.EqualValues(t, 0, cmd.Params["SPEED"])

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &cmd))
	require.Equal(t, "@ALLCALL: QST", cmd.Value)

	c.Disconnect()
	c.Disconnect()
	require.Equal(t, Disconnected, c.State())

	smu.Lock()
	require.Equal(t, []State{Connected, Disconnected}, states)
	smu.Unlock()
}

func TestSetFrequencyRejectsZero(t *testing.T) {
	t.Parallel()
	ep := newFakeEndpoint(t)
	host, port := ep.hostPort(t)
	c, err := Dial(context.Background(), host, port)
	require.NoError(t, err)
	defer c.Disconnect()

	err = c.SetFrequency(0)
	require.ErrorIs(t, err, ErrInvalidFrequency)
	require.Equal(t, Connected, c.State())
}

func TestSendWhileDisconnected(t *testing.T) {
	t.Parallel()
	ep := newFakeEndpoint(t)
	host, port := ep.hostPort(t)
	c, err := Dial(context.Background(), host, port)
	require.NoError(t, err)
	c.Disconnect()

	err = c.SendMessage("X", 0)
	require.ErrorIs(t, err, ErrNotConnected)
	var se *SendError
	require.True(t, errors.As(err, &se))
	require.Equal(t, SendNotConnected, se.Kind)
}

func TestWriteFailureDisconnects(t *testing.T) {
	t.Parallel()
	ep := newFakeEndpoint(t)
	host, port := ep.hostPort(t)
	c, err := Dial(context.Background(), host, port)
	require.NoError(t, err)

	// Break the socket underneath the client.
	c.mu.Lock()
	_ = c.conn.Close()
	c.mu.Unlock()

	err = c.SendMessage("X", 0)
	var se *SendError
	require.True(t, errors.As(err, &se))
	require.Equal(t, SendIOFailure, se.Kind)
	require.Equal(t, Disconnected, c.State())

	// Subsequent sends report not connected; no automatic reconnect.
	require.ErrorIs(t, c.SetFrequency(7078000), ErrNotConnected)
}

func TestDialRefused(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	c, err := Dial(context.Background(), "127.0.0.1", addr.Port)
	require.Nil(t, c)
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, ConnectRefused, ce.Kind)
}

func TestDialUnreachableIsBounded(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a non-routable address")
	}
	t.Parallel()
	start := time.Now()
	c, err := Dial(context.Background(), "10.255.255.1", DefaultPort)
	require.Nil(t, c)
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce))
	require.Less(t, time.Since(start), DialTimeout+time.Second)
}

func TestProbe(t *testing.T) {
	t.Parallel()
	ep := newFakeEndpoint(t)
	host, port := ep.hostPort(t)
	require.NoError(t, Probe(context.Background(), host, port))
}

func TestNilClientDisconnect(t *testing.T) {
	t.Parallel()
	var c *Client
	c.Disconnect()
}
