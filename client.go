package goEMS

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goEMS/navigation"
	"github.com/MrEthical07/goEMS/projects"
	"github.com/MrEthical07/goEMS/realtime"
	"github.com/MrEthical07/goEMS/session"
	"github.com/MrEthical07/goEMS/storage"
	"github.com/MrEthical07/goEMS/token"
)

// TokenKey is the durable key holding the REST bearer token. It lives beside
// the session keys but is owned by [Client], not by the session store.
const TokenKey = "token"

// TimeLayout formats attendance timestamps: UTC, millisecond precision,
// trailing Z.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Client is the composition root of one client process: the hydrated
// session store plus every collaborator that reads or drives it.
type Client struct {
	config     Config
	logger     *slog.Logger
	metrics    *Metrics
	audit      *auditDispatcher
	backend    storage.Backend
	ownedRedis *redis.Client
	store      *session.Store
	projects   *projects.Client
	socket     *realtime.Socket

	mu         sync.Mutex
	bearer     string
	hydrateErr error

	closeOnce sync.Once
}

// Session returns a copy of the current session state.
func (c *Client) Session() session.State {
	return c.store.Get()
}

// Store exposes the hydrated session store for direct field access.
func (c *Client) Store() *session.Store {
	return c.store
}

// Config returns the configuration the Client was built with.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// Projects returns the REST client. Prefer [Client.CreateProject] for
// creation so an expired token ends the session.
func (c *Client) Projects() *projects.Client {
	return c.projects
}

// Socket returns the realtime handle, or nil when realtime is disabled.
func (c *Client) Socket() *realtime.Socket {
	return c.socket
}

// Menu returns the navigation entries for the current user.
func (c *Client) Menu() []navigation.MenuItem {
	st := c.store.Get()
	if !st.LoggedIn() {
		return nil
	}
	return navigation.Menu(st.User)
}

// Login records a successful backend login: the user, the logged-in flag
// and the bearer token are persisted, then the realtime stream is opened.
// An empty bearer leaves no token stored.
func (c *Client) Login(ctx context.Context, user *session.User, bearer string) error {
	if user == nil {
		return ErrUserRequired
	}

	c.store.SetUser(ctx, user)
	c.store.SetLoggedIn(ctx, true)
	c.setBearer(ctx, bearer)

	c.metricInc(MetricLogin)
	ev := newAuditEvent(AuditLogin, true, nil)
	ev.UserID = string(user.ID)
	ev.Role = user.Role
	c.emitAudit(ctx, ev)

	c.gate(ctx, true)
	return nil
}

// Logout closes the realtime stream, clears every session field and removes
// the bearer token. It is safe to call when already logged out.
func (c *Client) Logout(ctx context.Context) {
	prev := c.store.Get()

	c.gate(ctx, false)
	c.store.Reset(ctx)
	c.setBearer(ctx, "")

	c.metricInc(MetricLogout)
	ev := newAuditEvent(AuditLogout, true, nil)
	if prev.User != nil {
		ev.UserID = string(prev.User.ID)
		ev.Role = prev.User.Role
	}
	c.emitAudit(ctx, ev)
}

// CheckIn starts an attendance period at at. A previous check-out time is
// cleared. record may be nil when the backend has not returned one yet.
func (c *Client) CheckIn(ctx context.Context, at time.Time, record *session.AttendanceRecord) error {
	st := c.store.Get()
	if !st.LoggedIn() {
		return ErrNotLoggedIn
	}

	c.store.SetLoginTime(ctx, at.UTC().Format(TimeLayout))
	c.store.SetLogoutTime(ctx, "")
	if record != nil {
		c.store.SetAttendanceRecord(ctx, record)
	}

	c.metricInc(MetricCheckIn)
	c.emitAudit(ctx, c.attendanceEvent(AuditCheckIn, st.User, at))
	return nil
}

// CheckOut ends the current attendance period at at. record, when non-nil,
// replaces the stored snapshot.
func (c *Client) CheckOut(ctx context.Context, at time.Time, record *session.AttendanceRecord) error {
	st := c.store.Get()
	if !st.LoggedIn() {
		return ErrNotLoggedIn
	}

	c.store.SetLogoutTime(ctx, at.UTC().Format(TimeLayout))
	if record != nil {
		c.store.SetAttendanceRecord(ctx, record)
	}

	c.metricInc(MetricCheckOut)
	c.emitAudit(ctx, c.attendanceEvent(AuditCheckOut, st.User, at))
	return nil
}

func (c *Client) attendanceEvent(eventType string, user *session.User, at time.Time) AuditEvent {
	ev := newAuditEvent(eventType, true, nil)
	if user != nil {
		ev.UserID = string(user.ID)
		ev.Role = user.Role
	}
	ev.Metadata = map[string]string{"at": at.UTC().Format(TimeLayout)}
	return ev
}

// CreateProject submits form. A locally expired token or a 401 from the
// backend ends the session before the error is returned.
func (c *Client) CreateProject(ctx context.Context, form projects.Form) (*projects.Project, error) {
	project, err := c.projects.Create(ctx, form)

	ev := newAuditEvent(AuditProjectCreate, err == nil, err)
	ev.Metadata = map[string]string{"project_name": form.Name}
	if u := c.store.Get().User; u != nil {
		ev.UserID = string(u.ID)
		ev.Role = u.Role
	}
	c.emitAudit(ctx, ev)

	if err == nil {
		c.metricInc(MetricProjectCreateSuccess)
		return project, nil
	}

	c.metricInc(MetricProjectCreateFailure)
	if errors.Is(err, token.ErrExpired) || errors.Is(err, projects.ErrUnauthorized) {
		c.metricInc(MetricTokenExpired)
		c.logger.Info("bearer token rejected, ending session", "err", err)
		c.Logout(ctx)
	}
	return nil, err
}

// MetricsSnapshot copies the in-process counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full queue.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close stops the realtime stream, drains audit events and releases the
// Redis client Build created. Session state stays persisted.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		if c.socket != nil {
			c.socket.Disconnect()
		}
		c.audit.Close(c.config.Audit.CloseTimeout)
		if c.ownedRedis != nil {
			err = c.ownedRedis.Close()
		}
	})
	return err
}

/*
====================================
BEARER TOKEN
====================================
*/

func (c *Client) bearerToken(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearer, nil
}

func (c *Client) setBearer(ctx context.Context, raw string) {
	c.mu.Lock()
	c.bearer = raw
	c.mu.Unlock()

	var err error
	if raw == "" {
		err = c.backend.Delete(ctx, TokenKey)
	} else {
		err = c.backend.Set(ctx, TokenKey, raw)
	}
	if err != nil {
		c.logger.Warn("bearer token not mirrored", "key", TokenKey, "err", err)
		clientObserver{c: c}.MirrorFailed(TokenKey, err)
	}
}

// hydrateFailed reports whether the session store reset during Build.
func (c *Client) hydrateFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hydrateErr != nil
}

func (c *Client) loadBearer(ctx context.Context) {
	raw, ok, err := c.backend.Get(ctx, TokenKey)
	if err != nil {
		c.logger.Warn("bearer token not restored", "err", err)
		return
	}
	if !ok {
		return
	}
	c.mu.Lock()
	c.bearer = raw
	c.mu.Unlock()
}

/*
====================================
COLLABORATOR WIRING
====================================
*/

func (c *Client) gate(ctx context.Context, loggedIn bool) {
	if c.socket == nil {
		return
	}
	if err := c.socket.Gate(ctx, loggedIn); err != nil {
		c.logger.Warn("realtime gate failed", "logged_in", loggedIn, "err", err)
	}
}

func (c *Client) socketGaveUp(err error) {
	c.metricInc(MetricSocketGiveUp)
	c.emitAudit(context.Background(), newAuditEvent(AuditSocketGiveUp, false, err))
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) emitAudit(ctx context.Context, event AuditEvent) {
	if c == nil || c.audit == nil {
		return
	}
	c.audit.Emit(ctx, event)
}

// clientObserver turns session store outcomes into metrics and audit events.
type clientObserver struct {
	c *Client
}

func (o clientObserver) HydrateCompleted(restored bool, err error) {
	o.c.mu.Lock()
	o.c.hydrateErr = err
	o.c.mu.Unlock()

	switch {
	case err != nil:
		o.c.metricInc(MetricHydrateReset)
	case restored:
		o.c.metricInc(MetricHydrateRestored)
	default:
		o.c.metricInc(MetricHydrateEmpty)
	}
	ev := newAuditEvent(AuditHydrate, err == nil, err)
	ev.Metadata = map[string]string{"restored": strconv.FormatBool(restored)}
	o.c.emitAudit(context.Background(), ev)
}

func (o clientObserver) MirrorFailed(key string, err error) {
	o.c.metricInc(MetricMirrorFailure)
	ev := newAuditEvent(AuditMirrorFailure, false, err)
	ev.Metadata = map[string]string{"key": key}
	o.c.emitAudit(context.Background(), ev)
}

func (o clientObserver) MirrorLatency(d time.Duration) {
	if o.c.metrics == nil {
		return
	}
	o.c.metrics.Observe(MetricMirrorLatency, d)
}
