package goEMS

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goEMS/token"
)

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	// LintInfo marks a setting worth knowing about.
	LintInfo LintSeverity = iota
	// LintWarn marks a setting that is usually a mistake outside development.
	LintWarn
	// LintHigh marks a contradictory or unsafe combination.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding of [Config.Lint].
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above threshold.
func (r LintResult) BySeverity(threshold LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= threshold {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns nil when no warning reaches threshold, otherwise an error
// naming every such warning.
func (r LintResult) AsError(threshold LintSeverity) error {
	hits := r.BySeverity(threshold)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that pass [Config.Validate] but are risky for a
// deployed client. It never mutates c.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	// Storage
	if c.Storage.Backend == StorageMemory {
		add("storage_memory", LintWarn, "session state does not survive a restart")
	}
	if c.Storage.Backend == StorageRedis && c.Storage.RedisPassword == "" && !isLoopback(c.Storage.RedisAddr) {
		add("redis_no_password", LintWarn, "remote redis configured without a password")
	}
	if c.Storage.TTL > 0 {
		add("storage_ttl_set", LintInfo, "persisted sessions expire after "+c.Storage.TTL.String())
	}
	if c.Storage.OpTimeout == 0 {
		add("storage_no_timeout", LintWarn, "a stalled redis blocks every session write")
	}

	// Realtime
	if c.Realtime.Enabled {
		if !c.Realtime.Reconnection {
			add("reconnection_disabled", LintWarn, "a dropped socket stays down until the next login")
		}
		if c.Realtime.AutoConnect {
			add("realtime_autoconnect", LintHigh, "socket would connect before a user is logged in")
		}
		if u, err := url.Parse(c.Realtime.URL); err == nil && u.Scheme == "ws" && !isLoopback(u.Host) {
			add("realtime_plain_ws", LintWarn, "notifications travel unencrypted")
		}
	}

	// API
	if u, err := url.Parse(c.API.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Host) {
		add("api_plain_http", LintHigh, "bearer token sent over plain http to a remote host")
	}
	if c.API.Timeout == 0 {
		add("api_no_timeout", LintWarn, "backend calls have no deadline")
	}

	// Token
	if token.SigningMethod(c.Token.SigningMethod) == token.MethodNone {
		add("token_unverified", LintInfo, "token expiry is read without checking the signature")
	}
	if c.Token.Leeway > time.Minute {
		add("leeway_large", LintWarn, "expired tokens are accepted for more than a minute")
	}

	// Audit
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "session transitions are not audited")
	} else if !c.Audit.DropIfFull && c.Audit.SinkTimeout == 0 {
		add("audit_unbounded_block", LintHigh, "a stuck audit sink can block session operations forever")
	}

	// Metrics
	if !c.Metrics.Enabled {
		add("metrics_disabled", LintInfo, "counters and the /metrics endpoint report zeros")
	}

	return ws
}

func isLoopback(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
