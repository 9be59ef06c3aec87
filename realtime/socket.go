package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// ErrGaveUp is returned when every dial attempt failed.
var ErrGaveUp = errors.New("realtime: reconnection attempts exhausted")

// Config mirrors the client's socket options.
type Config struct {
	URL                  string
	Transports           []string
	AutoConnect          bool
	Reconnection         bool
	ReconnectionAttempts int
	ReconnectionDelay    time.Duration
}

// DefaultConfig returns the client defaults: websocket only, no auto-connect,
// five reconnection attempts one second apart.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		Transports:           []string{"websocket"},
		AutoConnect:          false,
		Reconnection:         true,
		ReconnectionAttempts: 5,
		ReconnectionDelay:    time.Second,
	}
}

// Conn is one open transport connection.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens transport connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Notification is one realtime event pushed by the backend. Frames that are
// not JSON notifications arrive with Type "raw".
type Notification struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	Raw       []byte    `json:"-"`
}

func parseNotification(data []byte) Notification {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil || n.Type == "" {
		return Notification{Type: "raw", Raw: data}
	}
	n.Raw = data
	return n
}

// Options carries optional collaborators. Callbacks run on the socket's
// goroutine and must not block.
type Options struct {
	Logger      *slog.Logger
	OnConnect   func()
	OnReconnect func()
	OnGiveUp    func(error)
}

// Socket is a lazily connected, self-reconnecting notification stream.
type Socket struct {
	cfg    Config
	dialer Dialer
	opts   Options
	logger *slog.Logger
	id     string

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	handlers []func(Notification)

	connected atomic.Bool
}

// New creates a [Socket]. It dials immediately only when cfg.AutoConnect is set.
func New(cfg Config, dialer Dialer, opts Options) *Socket {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if dialer == nil {
		dialer = WebSocketDialer{}
	}
	s := &Socket{
		cfg:    cfg,
		dialer: dialer,
		opts:   opts,
		id:     uuid.NewString(),
	}
	s.logger = logger.With("component", "realtime", "socket_id", s.id)

	if cfg.AutoConnect {
		if err := s.Connect(context.Background()); err != nil {
			s.logger.Warn("auto-connect failed", "err", err)
		}
	}
	return s
}

// ID returns the socket's client-side identifier.
func (s *Socket) ID() string { return s.id }

// Connected reports whether a transport connection is currently open.
func (s *Socket) Connected() bool { return s.connected.Load() }

// OnNotification registers h for every received notification.
func (s *Socket) OnNotification(h func(Notification)) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
}

// Gate connects when loggedIn is true and disconnects otherwise.
func (s *Socket) Gate(ctx context.Context, loggedIn bool) error {
	if !loggedIn {
		s.Disconnect()
		return nil
	}
	return s.Connect(ctx)
}

// Connect makes one dial attempt and starts the read loop. It is a no-op
// while a loop is already running. ctx bounds that first attempt only.
//
// When the first attempt fails and reconnection is enabled, Connect returns
// nil and the remaining attempts run in the background, where [Socket.Disconnect]
// can cancel them. Their outcome is reported through OnConnect or OnGiveUp.
// Without reconnection a failed attempt is returned as [ErrGaveUp].
func (s *Socket) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running() {
		s.mu.Unlock()
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	dialCtx, stop := context.WithCancel(ctx)
	release := context.AfterFunc(runCtx, stop)
	conn, err := s.dialer.Dial(dialCtx, s.cfg.URL)
	release()
	stop()

	if runCtx.Err() != nil {
		if err == nil {
			_ = conn.Close()
		}
		close(done)
		return nil
	}
	if err == nil {
		s.established(conn)
		go s.run(runCtx, conn, done)
		return nil
	}

	if s.retries() == 0 {
		cancel()
		close(done)
		return fmt.Errorf("%w: %v", ErrGaveUp, err)
	}
	s.logger.Warn("realtime dial failed, retrying in background", "err", err, "attempts", s.retries())
	go s.retry(runCtx, done)
	return nil
}

func (s *Socket) established(conn Conn) {
	s.connected.Store(true)
	s.logger.Info("realtime connected", "url", s.cfg.URL)
	if s.opts.OnConnect != nil {
		s.opts.OnConnect()
	}
}

// retry spends the reconnection attempts left after a failed first dial.
func (s *Socket) retry(ctx context.Context, done chan struct{}) {
	t := time.NewTimer(s.cfg.ReconnectionDelay)
	select {
	case <-ctx.Done():
		t.Stop()
		close(done)
		return
	case <-t.C:
	}

	conn, err := s.dial(ctx, s.retries()-1)
	if err != nil {
		close(done)
		if ctx.Err() == nil {
			s.giveUp(err)
		}
		return
	}
	s.established(conn)
	s.run(ctx, conn, done)
}

func (s *Socket) running() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Disconnect closes the connection and stops reconnection. It waits for the
// read loop to exit and is safe to call when not connected.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("realtime disconnected")
}

func (s *Socket) run(ctx context.Context, conn Conn, done chan struct{}) {
	err := s.serve(ctx, conn)
	s.connected.Store(false)
	close(done)
	if err != nil {
		s.giveUp(err)
	}
}

// serve reads from conn and reconnects on loss. It returns nil when ctx is
// cancelled and the terminal error when reconnection is exhausted.
func (s *Socket) serve(ctx context.Context, conn Conn) error {
	for {
		err := s.readLoop(ctx, conn)
		_ = conn.Close()
		s.connected.Store(false)

		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("realtime connection lost", "err", err)
		if !s.cfg.Reconnection {
			return fmt.Errorf("%w: %v", ErrGaveUp, err)
		}

		next, dialErr := s.dial(ctx, s.retries())
		if dialErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return dialErr
		}
		conn = next
		s.connected.Store(true)
		s.logger.Info("realtime reconnected")
		if s.opts.OnReconnect != nil {
			s.opts.OnReconnect()
		}
	}
}

func (s *Socket) giveUp(err error) {
	s.logger.Error("realtime gave up", "err", err)
	if s.opts.OnGiveUp != nil {
		s.opts.OnGiveUp(err)
	}
}

func (s *Socket) readLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		n := parseNotification(data)

		s.mu.Lock()
		handlers := make([]func(Notification), len(s.handlers))
		copy(handlers, s.handlers)
		s.mu.Unlock()
		for _, h := range handlers {
			h(n)
		}
	}
}

func (s *Socket) retries() int {
	if s.cfg.Reconnection && s.cfg.ReconnectionAttempts > 0 {
		return s.cfg.ReconnectionAttempts
	}
	return 0
}

// dial makes one attempt plus up to retries more, spaced by the fixed
// ReconnectionDelay.
func (s *Socket) dial(ctx context.Context, retries int) (Conn, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.ReconnectionDelay), uint64(retries)),
		ctx,
	)

	var conn Conn
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		c, err := s.dialer.Dial(ctx, s.cfg.URL)
		if err != nil {
			s.logger.Debug("realtime dial failed", "attempt", attempt, "err", err)
			return err
		}
		conn = c
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGaveUp, err)
	}
	return conn, nil
}
