package realtime

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 8), closed: make(chan struct{})}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// drop simulates the server closing the connection.
func (c *fakeConn) drop() { _ = c.Close() }

type fakeDialer struct {
	calls atomic.Int32
	dial  func(n int32) (Conn, error)
}

func (d *fakeDialer) Dial(context.Context, string) (Conn, error) {
	return d.dial(d.calls.Add(1))
}

func testConfig() Config {
	cfg := DefaultConfig("ws://ems.test/socket")
	cfg.ReconnectionDelay = time.Millisecond
	return cfg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestDefaultConfigMatchesClientOptions(t *testing.T) {
	cfg := DefaultConfig("wss://example")
	if cfg.AutoConnect || !cfg.Reconnection || cfg.ReconnectionAttempts != 5 || cfg.ReconnectionDelay != time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.Transports) != 1 || cfg.Transports[0] != "websocket" {
		t.Fatalf("unexpected transports %v", cfg.Transports)
	}
}

func TestNoAutoConnect(t *testing.T) {
	d := &fakeDialer{dial: func(int32) (Conn, error) { return newFakeConn(), nil }}
	s := New(testConfig(), d, Options{})
	if d.calls.Load() != 0 || s.Connected() {
		t.Fatalf("socket dialed before being gated open")
	}
	if err := s.Gate(context.Background(), false); err != nil {
		t.Fatalf("gate closed: %v", err)
	}
	if d.calls.Load() != 0 {
		t.Fatalf("closed gate must not dial")
	}
}

func TestAutoConnect(t *testing.T) {
	d := &fakeDialer{dial: func(int32) (Conn, error) { return newFakeConn(), nil }}
	cfg := testConfig()
	cfg.AutoConnect = true
	s := New(cfg, d, Options{})
	defer s.Disconnect()
	if !s.Connected() {
		t.Fatalf("expected auto-connect")
	}
}

func TestGateDeliversNotifications(t *testing.T) {
	conn := newFakeConn()
	d := &fakeDialer{dial: func(int32) (Conn, error) { return conn, nil }}
	var connects atomic.Int32
	s := New(testConfig(), d, Options{OnConnect: func() { connects.Add(1) }})

	got := make(chan Notification, 2)
	s.OnNotification(func(n Notification) { got <- n })

	if err := s.Gate(context.Background(), true); err != nil {
		t.Fatalf("gate open: %v", err)
	}
	if err := s.Gate(context.Background(), true); err != nil {
		t.Fatalf("second gate open: %v", err)
	}
	if d.calls.Load() != 1 || connects.Load() != 1 {
		t.Fatalf("expected one dial, got %d", d.calls.Load())
	}

	conn.frames <- []byte(`{"type":"ticket","message":"New ticket assigned"}`)
	conn.frames <- []byte(`ping`)

	first := <-got
	if first.Type != "ticket" || first.Message != "New ticket assigned" {
		t.Fatalf("unexpected notification %+v", first)
	}
	second := <-got
	if second.Type != "raw" || string(second.Raw) != "ping" {
		t.Fatalf("unexpected raw notification %+v", second)
	}

	if err := s.Gate(context.Background(), false); err != nil {
		t.Fatalf("gate close: %v", err)
	}
	if s.Connected() {
		t.Fatalf("expected disconnected after gate close")
	}
	s.Disconnect()
}

func TestConnectBoundedAttempts(t *testing.T) {
	dialErr := errors.New("connection refused")
	d := &fakeDialer{dial: func(int32) (Conn, error) { return nil, dialErr }}
	gaveUp := make(chan error, 1)
	s := New(testConfig(), d, Options{OnGiveUp: func(err error) { gaveUp <- err }})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect should defer retries, got %v", err)
	}
	select {
	case err := <-gaveUp:
		if !errors.Is(err, ErrGaveUp) {
			t.Fatalf("expected ErrGaveUp, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("socket never gave up")
	}
	if got := d.calls.Load(); got != 6 {
		t.Fatalf("expected 1 attempt + 5 retries, got %d", got)
	}
	if s.Connected() {
		t.Fatalf("expected disconnected")
	}
}

func TestConnectReturnsBeforeRetrying(t *testing.T) {
	d := &fakeDialer{dial: func(int32) (Conn, error) { return nil, errors.New("down") }}
	cfg := testConfig()
	cfg.ReconnectionDelay = time.Second
	var gaveUp atomic.Bool
	s := New(cfg, d, Options{OnGiveUp: func(error) { gaveUp.Store(true) }})

	start := time.Now()
	if err := s.Gate(context.Background(), true); err != nil {
		t.Fatalf("gate open: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("connect blocked for %v", elapsed)
	}
	if d.calls.Load() != 1 {
		t.Fatalf("expected a single synchronous attempt, got %d", d.calls.Load())
	}
	if err := s.Gate(context.Background(), true); err != nil {
		t.Fatalf("second gate open: %v", err)
	}
	if d.calls.Load() != 1 {
		t.Fatalf("pending retries should make connect a no-op, got %d dials", d.calls.Load())
	}

	start = time.Now()
	s.Disconnect()
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("disconnect waited %v for pending retries", elapsed)
	}
	if gaveUp.Load() {
		t.Fatalf("cancelled retries must not report a give-up")
	}
	if d.calls.Load() != 1 {
		t.Fatalf("expected no dial after disconnect, got %d", d.calls.Load())
	}
}

func TestBackgroundRetryConnects(t *testing.T) {
	conn := newFakeConn()
	d := &fakeDialer{dial: func(n int32) (Conn, error) {
		if n < 3 {
			return nil, errors.New("transient")
		}
		return conn, nil
	}}
	var connects atomic.Int32
	s := New(testConfig(), d, Options{OnConnect: func() { connects.Add(1) }})
	defer s.Disconnect()

	got := make(chan Notification, 1)
	s.OnNotification(func(n Notification) { got <- n })
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	waitFor(t, func() bool { return s.Connected() })
	if connects.Load() != 1 || d.calls.Load() != 3 {
		t.Fatalf("expected one connect after 3 dials, got %d connects %d dials", connects.Load(), d.calls.Load())
	}
	conn.frames <- []byte(`{"type":"ticket","message":"Escalated"}`)
	if n := <-got; n.Message != "Escalated" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestConnectWithoutReconnectionDialsOnce(t *testing.T) {
	d := &fakeDialer{dial: func(int32) (Conn, error) { return nil, errors.New("down") }}
	cfg := testConfig()
	cfg.Reconnection = false
	s := New(cfg, d, Options{})

	if err := s.Connect(context.Background()); !errors.Is(err, ErrGaveUp) {
		t.Fatalf("expected ErrGaveUp, got %v", err)
	}
	if d.calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", d.calls.Load())
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	d := &fakeDialer{dial: func(n int32) (Conn, error) {
		if n == 2 {
			return nil, errors.New("transient")
		}
		if n == 1 {
			return conns[0], nil
		}
		return conns[1], nil
	}}
	var reconnects atomic.Int32
	s := New(testConfig(), d, Options{OnReconnect: func() { reconnects.Add(1) }})
	defer s.Disconnect()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	conns[0].drop()

	waitFor(t, func() bool { return reconnects.Load() == 1 })
	if !s.Connected() {
		t.Fatalf("expected connected after reconnect")
	}
	if d.calls.Load() != 3 {
		t.Fatalf("expected 3 dials, got %d", d.calls.Load())
	}
}

func TestGiveUpAfterDrop(t *testing.T) {
	conn := newFakeConn()
	d := &fakeDialer{dial: func(n int32) (Conn, error) {
		if n == 1 {
			return conn, nil
		}
		return nil, errors.New("down")
	}}
	gaveUp := make(chan error, 1)
	s := New(testConfig(), d, Options{OnGiveUp: func(err error) { gaveUp <- err }})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn.drop()

	select {
	case err := <-gaveUp:
		if !errors.Is(err, ErrGaveUp) {
			t.Fatalf("expected ErrGaveUp, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("socket never gave up")
	}
	waitFor(t, func() bool { return !s.Connected() })
	if d.calls.Load() != 7 {
		t.Fatalf("expected 1 + 6 dials, got %d", d.calls.Load())
	}

	d.dial = func(int32) (Conn, error) { return newFakeConn(), nil }
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect after give-up: %v", err)
	}
	if !s.Connected() {
		t.Fatalf("expected a fresh connection after give-up")
	}
	s.Disconnect()
}

func TestWebSocketDialer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		_ = c.Write(r.Context(), websocket.MessageText, []byte(`{"type":"leave","message":"Leave request approved"}`))
		for {
			if _, _, err := c.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	s := New(cfg, WebSocketDialer{}, Options{})

	got := make(chan Notification, 1)
	s.OnNotification(func(n Notification) { got <- n })
	if err := s.Gate(context.Background(), true); err != nil {
		t.Fatalf("gate open: %v", err)
	}
	defer s.Disconnect()

	select {
	case n := <-got:
		if n.Type != "leave" || n.Message != "Leave request approved" {
			t.Fatalf("unexpected notification %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no notification received")
	}
}
