package goEMS

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goEMS/token"
)

// Config is the full client configuration. Obtain one from [DefaultConfig]
// or [LoadConfig] and adjust it before passing it to [Builder.WithConfig].
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Realtime RealtimeConfig `yaml:"realtime"`
	API      APIConfig      `yaml:"api"`
	Token    TokenConfig    `yaml:"token"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	HTTP     HTTPConfig     `yaml:"http"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects the durable mirror for session state.
type StorageBackend string

const (
	// StorageRedis mirrors state into Redis.
	StorageRedis StorageBackend = "redis"
	// StorageMemory keeps state in process memory only.
	StorageMemory StorageBackend = "memory"
)

// StorageConfig configures the durable mirror.
type StorageConfig struct {
	Backend       StorageBackend `yaml:"backend"`
	RedisAddr     string         `yaml:"redis_addr"`
	RedisPassword string         `yaml:"redis_password"`
	RedisDB       int            `yaml:"redis_db"`
	// Prefix and Origin namespace every key as <prefix>:<origin>:<key>.
	Prefix string `yaml:"prefix"`
	Origin string `yaml:"origin"`
	// TTL expires mirrored entries; zero keeps them until deleted.
	TTL       time.Duration `yaml:"ttl"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

/*
====================================
REALTIME CONFIG
====================================
*/

// RealtimeConfig configures the notification socket.
type RealtimeConfig struct {
	Enabled              bool          `yaml:"enabled"`
	URL                  string        `yaml:"url"`
	Transports           []string      `yaml:"transports"`
	AutoConnect          bool          `yaml:"auto_connect"`
	Reconnection         bool          `yaml:"reconnection"`
	ReconnectionAttempts int           `yaml:"reconnection_attempts"`
	ReconnectionDelay    time.Duration `yaml:"reconnection_delay"`
}

// APIConfig configures the REST backend client.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// TokenConfig configures bearer-token inspection. An empty SigningMethod
// reads claims without verifying the signature.
type TokenConfig struct {
	SigningMethod string        `yaml:"signing_method"`
	VerifyKey     string        `yaml:"verify_key"`
	Leeway        time.Duration `yaml:"leeway"`
}

// AuditConfig configures asynchronous audit dispatch.
type AuditConfig struct {
	Enabled      bool          `yaml:"enabled"`
	BufferSize   int           `yaml:"buffer_size"`
	DropIfFull   bool          `yaml:"drop_if_full"`
	SinkTimeout  time.Duration `yaml:"sink_timeout"`
	CloseTimeout time.Duration `yaml:"close_timeout"`
}

// MetricsConfig configures in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// HTTPConfig configures the session facade served by cmd/ems-web.
type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	LoginPath string `yaml:"login_path"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend:   StorageRedis,
			RedisAddr: "127.0.0.1:6379",
			Prefix:    "ems",
			Origin:    "0",
			OpTimeout: 2 * time.Second,
		},
		Realtime: RealtimeConfig{
			Enabled:              true,
			URL:                  "ws://localhost:5000/socket",
			Transports:           []string{"websocket"},
			AutoConnect:          false,
			Reconnection:         true,
			ReconnectionAttempts: 5,
			ReconnectionDelay:    time.Second,
		},
		API: APIConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: 15 * time.Second,
		},
		Token: TokenConfig{
			Leeway: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:      false,
			BufferSize:   256,
			DropIfFull:   true,
			SinkTimeout:  time.Second,
			CloseTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		HTTP: HTTPConfig{
			Addr:      ":8080",
			LoginPath: "/login",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Realtime.Transports != nil {
		out.Realtime.Transports = append([]string(nil), cfg.Realtime.Transports...)
	}
	return out
}

/*
====================================
LOADING
====================================
*/

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig reads a YAML file over [DefaultConfig]. ${VAR} references are
// replaced with the environment value before parsing; unset variables
// expand to the empty string.
func LoadConfig(path string) (Config, error) {
	// #nosec G304 -- path comes from the operator's command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML bytes the way [LoadConfig] does.
func ParseConfig(data []byte) (Config, error) {
	data = []byte(expandEnvVars(string(data)))

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistent setting. Every returned error
// matches [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// Storage
	switch c.Storage.Backend {
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("Storage RedisAddr required for redis backend")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Prefix) == "" {
		return errors.New("Storage Prefix must not be empty")
	}
	if strings.Contains(c.Storage.Prefix, ":") {
		return errors.New("Storage Prefix must not contain ':'")
	}
	if c.Storage.TTL < 0 {
		return errors.New("Storage TTL must be >= 0")
	}
	if c.Storage.OpTimeout < 0 {
		return errors.New("Storage OpTimeout must be >= 0")
	}

	// Realtime
	if c.Realtime.Enabled {
		if strings.TrimSpace(c.Realtime.URL) == "" {
			return errors.New("Realtime URL required when enabled")
		}
		for _, t := range c.Realtime.Transports {
			if t != "websocket" {
				return fmt.Errorf("unsupported realtime transport %q", t)
			}
		}
		if c.Realtime.ReconnectionAttempts < 0 {
			return errors.New("Realtime ReconnectionAttempts must be >= 0")
		}
		if c.Realtime.ReconnectionDelay < 0 {
			return errors.New("Realtime ReconnectionDelay must be >= 0")
		}
	}

	// API
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	// Token
	switch token.SigningMethod(c.Token.SigningMethod) {
	case token.MethodNone:
	case token.MethodHS256, token.MethodEd25519:
		if c.Token.VerifyKey == "" {
			return errors.New("Token VerifyKey required when SigningMethod is set")
		}
	default:
		return fmt.Errorf("unsupported token signing method %q", c.Token.SigningMethod)
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be within [0, 2m]")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.SinkTimeout < 0 || c.Audit.CloseTimeout < 0 {
		return errors.New("Audit timeouts must be >= 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// HTTP
	if c.HTTP.LoginPath != "" && !strings.HasPrefix(c.HTTP.LoginPath, "/") {
		return errors.New("HTTP LoginPath must start with '/'")
	}

	return nil
}
