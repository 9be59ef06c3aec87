package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goEMS/storage"
)

// Observer receives store outcomes. Callbacks run after the store's lock is
// released, so an implementation may read the [Store] but should not block.
type Observer interface {
	// HydrateCompleted is called once per Hydrate. restored is true when at
	// least one durable entry was applied; err is the failure that forced a
	// reset, if any.
	HydrateCompleted(restored bool, err error)
	// MirrorFailed is called when a write-through or delete for key failed
	// and the field is held in memory only.
	MirrorFailed(key string, err error)
	// MirrorLatency is called after every successful write-through.
	MirrorLatency(d time.Duration)
}

type noopObserver struct{}

func (noopObserver) HydrateCompleted(bool, error) {}
func (noopObserver) MirrorFailed(string, error)   {}
func (noopObserver) MirrorLatency(time.Duration)  {}

// notice is one observer callback captured under the lock.
type notice func(Observer)

type notices []notice

func (n notices) deliver(o Observer) {
	for _, f := range n {
		f(o)
	}
}

// Options configures a [Store]. The zero value is usable.
type Options struct {
	// Logger receives storage degradation warnings. Defaults to a discard logger.
	Logger *slog.Logger
	// Observer receives hydrate and mirror outcomes.
	Observer Observer
	// OpTimeout bounds each durable operation. Zero means no extra bound.
	OpTimeout time.Duration
}

// Store is the single source of truth for session state during the life of
// one client process. It writes every mutation through to a durable backend.
//
// Store is safe for concurrent use; calls are serialized, and [Store.Get]
// never observes a half-applied setter.
type Store struct {
	mu       sync.RWMutex
	state    State
	backend  storage.Backend
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
}

// NewStore creates a [Store] in the empty (logged-out) state. Call
// [Store.Hydrate] once, before any setter, to restore persisted state.
func NewStore(backend storage.Backend, opts Options) *Store {
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var observer Observer = noopObserver{}
	if opts.Observer != nil {
		observer = opts.Observer
	}
	return &Store{
		backend:  backend,
		logger:   logger.With("component", "session"),
		observer: observer,
		timeout:  opts.OpTimeout,
	}
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// Hydrate rebuilds state from durable storage. It must run at most once, before
// any setter; the composition root enforces that.
//
// Hydrate is all-or-nothing: if any entry cannot be read or decoded, both the
// in-memory state and every durable key are cleared and the empty state is
// returned. Hydrate never returns an error.
func (s *Store) Hydrate(ctx context.Context) State {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	s.mu.Lock()
	next, restored, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("failed to load session state from storage", "err", err)
		pending := s.resetLocked(ctx)
		s.mu.Unlock()

		pending.deliver(s.observer)
		s.observer.HydrateCompleted(false, err)
		return State{}
	}
	s.state = next
	st := s.state.Clone()
	s.mu.Unlock()

	s.observer.HydrateCompleted(restored, nil)
	return st
}

func (s *Store) load(ctx context.Context) (State, bool, error) {
	raw := make(map[string]string, len(Keys))
	for _, key := range Keys {
		v, ok, err := s.backend.Get(ctx, key)
		if err != nil {
			return State{}, false, err
		}
		if ok {
			raw[key] = v
		}
	}

	user, err := DecodeUser(raw[KeyUser])
	if err != nil {
		return State{}, false, err
	}
	record, err := DecodeAttendanceRecord(raw[KeyAttendanceRecord])
	if err != nil {
		return State{}, false, err
	}

	st := State{
		User:             user,
		IsLoggedIn:       decodeLoggedIn(raw[KeyIsLoggedIn]),
		LoginTime:        raw[KeyLoginTime],
		AttendanceRecord: record,
		LogoutTime:       raw[KeyLogoutTime],
	}
	restored := st.User != nil || st.IsLoggedIn || st.LoginTime != "" ||
		st.AttendanceRecord != nil || st.LogoutTime != ""
	return st, restored, nil
}

// Get returns a copy of the current in-memory state. It performs no I/O.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// SetUser replaces the user. nil removes the durable "user" entry.
func (s *Store) SetUser(ctx context.Context, user *User) {
	s.mu.Lock()
	var n notice
	if user == nil {
		s.state.User = nil
		n = s.mirror(ctx, KeyUser, "", false)
	} else {
		s.state.User = State{User: user}.Clone().User
		n = s.mirrorEncoded(ctx, KeyUser, s.state.User)
	}
	s.mu.Unlock()
	n(s.observer)
}

// SetLoggedIn sets the login flag. false removes the durable "isLoggedIn" entry.
func (s *Store) SetLoggedIn(ctx context.Context, loggedIn bool) {
	s.mu.Lock()
	s.state.IsLoggedIn = loggedIn
	n := s.mirror(ctx, KeyIsLoggedIn, "true", loggedIn)
	s.mu.Unlock()
	n(s.observer)
}

// SetLoginTime records the attendance check-in time. "" removes the entry.
func (s *Store) SetLoginTime(ctx context.Context, at string) {
	s.mu.Lock()
	s.state.LoginTime = at
	n := s.mirror(ctx, KeyLoginTime, at, at != "")
	s.mu.Unlock()
	n(s.observer)
}

// SetAttendanceRecord replaces the attendance snapshot. nil removes the entry.
func (s *Store) SetAttendanceRecord(ctx context.Context, record *AttendanceRecord) {
	s.mu.Lock()
	var n notice
	if record == nil {
		s.state.AttendanceRecord = nil
		n = s.mirror(ctx, KeyAttendanceRecord, "", false)
	} else {
		s.state.AttendanceRecord = State{AttendanceRecord: record}.Clone().AttendanceRecord
		n = s.mirrorEncoded(ctx, KeyAttendanceRecord, s.state.AttendanceRecord)
	}
	s.mu.Unlock()
	n(s.observer)
}

// SetLogoutTime records the attendance check-out time. "" removes the entry.
func (s *Store) SetLogoutTime(ctx context.Context, at string) {
	s.mu.Lock()
	s.state.LogoutTime = at
	n := s.mirror(ctx, KeyLogoutTime, at, at != "")
	s.mu.Unlock()
	n(s.observer)
}

// Reset clears every field and deletes every durable key. It is idempotent.
func (s *Store) Reset(ctx context.Context) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	s.mu.Lock()
	pending := s.resetLocked(ctx)
	s.mu.Unlock()
	pending.deliver(s.observer)
}

func (s *Store) resetLocked(ctx context.Context) notices {
	s.state = State{}
	err := s.backend.Delete(ctx, Keys...)
	if err == nil {
		return nil
	}
	s.logger.Warn("failed to clear session state from storage", "err", err)
	pending := make(notices, 0, len(Keys))
	for _, key := range Keys {
		pending = append(pending, func(o Observer) { o.MirrorFailed(key, err) })
	}
	return pending
}

func (s *Store) mirrorEncoded(ctx context.Context, key string, v any) notice {
	value, err := Encode(v)
	if err != nil {
		s.logger.Warn("failed to encode session entry", "key", key, "err", err)
		return func(o Observer) { o.MirrorFailed(key, err) }
	}
	return s.mirror(ctx, key, value, true)
}

// mirror writes value under key when present, and deletes key otherwise.
// Failures leave the in-memory field in place. The returned notice reports
// the outcome and must be delivered once the lock is released.
func (s *Store) mirror(ctx context.Context, key, value string, present bool) notice {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	start := time.Now()
	var err error
	if present {
		err = s.backend.Set(ctx, key, value)
	} else {
		err = s.backend.Delete(ctx, key)
	}
	if err != nil {
		s.logger.Warn("session entry held in memory only", "key", key, "err", err)
		return func(o Observer) { o.MirrorFailed(key, err) }
	}
	latency := time.Since(start)
	return func(o Observer) { o.MirrorLatency(latency) }
}
