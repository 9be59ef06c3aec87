package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	goEMS "github.com/MrEthical07/goEMS"
	"github.com/MrEthical07/goEMS/navigation"
	"github.com/MrEthical07/goEMS/session"
	"github.com/MrEthical07/goEMS/storage"
)

const usage = `usage: emsctl <command> [flags]

commands:
  show    print the persisted session for one origin
  reset   clear the persisted session and token for one origin
  menu    print the navigation menu for a role
  lint    report risky settings in a config file
  bench   measure hydrate and write-through latency against redis
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "show":
		err = runShow(args, os.Stdout)
	case "reset":
		err = runReset(args, os.Stdout)
	case "menu":
		err = runMenu(args, os.Stdout)
	case "lint":
		err = runLint(args, os.Stdout)
	case "bench":
		err = runBench(args, os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "emsctl %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

/*
====================================
STORE ACCESS
====================================
*/

type storeFlags struct {
	config    string
	redisAddr string
	prefix    string
	origin    string
}

func (f *storeFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.config, "config", "c", "", "path to YAML config")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "redis address; overrides config and REDIS_ADDR")
	fs.StringVar(&f.prefix, "prefix", "", "key prefix; overrides config")
	fs.StringVar(&f.origin, "origin", "", "origin namespace; overrides config")
}

func (f *storeFlags) storageConfig() (goEMS.StorageConfig, error) {
	cfg := goEMS.DefaultConfig()
	if f.config != "" {
		loaded, err := goEMS.LoadConfig(f.config)
		if err != nil {
			return goEMS.StorageConfig{}, err
		}
		cfg = loaded
	}
	sc := cfg.Storage
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		sc.RedisAddr = addr
	}
	if f.redisAddr != "" {
		sc.RedisAddr = f.redisAddr
	}
	if f.prefix != "" {
		sc.Prefix = f.prefix
	}
	if f.origin != "" {
		sc.Origin = f.origin
	}
	return sc, nil
}

func openRedis(sc goEMS.StorageConfig) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{sc.RedisAddr},
		Password: sc.RedisPassword,
		DB:       sc.RedisDB,
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
====================================
COMMANDS
====================================
*/

type showOutput struct {
	Origin           string                    `json:"origin"`
	User             *session.User             `json:"user"`
	IsLoggedIn       bool                      `json:"isLoggedIn"`
	LoginTime        string                    `json:"attendanceLoginTime"`
	AttendanceRecord *session.AttendanceRecord `json:"attendanceRecord"`
	LogoutTime       string                    `json:"attendanceLogoutTime"`
	HasToken         bool                      `json:"hasToken"`
	Menu             []navigation.MenuItem     `json:"menu"`
}

func runShow(args []string, out io.Writer) error {
	var sf storeFlags
	fs := pflag.NewFlagSet("show", pflag.ContinueOnError)
	sf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := sf.storageConfig()
	if err != nil {
		return err
	}

	rdb := openRedis(sc)
	defer rdb.Close()
	return show(context.Background(), storage.NewRedisBackend(rdb, sc.Prefix, sc.Origin, sc.TTL), sc.Origin, out)
}

func show(ctx context.Context, backend storage.Backend, origin string, out io.Writer) error {
	store := session.NewStore(backend, session.Options{Logger: quietLogger()})
	st := store.Hydrate(ctx)

	_, hasToken, err := backend.Get(ctx, goEMS.TokenKey)
	if err != nil {
		return err
	}

	res := showOutput{
		Origin:           origin,
		User:             st.User,
		IsLoggedIn:       st.IsLoggedIn,
		LoginTime:        st.LoginTime,
		AttendanceRecord: st.AttendanceRecord,
		LogoutTime:       st.LogoutTime,
		HasToken:         hasToken,
	}
	if st.LoggedIn() {
		res.Menu = navigation.Menu(st.User)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runReset(args []string, out io.Writer) error {
	var sf storeFlags
	fs := pflag.NewFlagSet("reset", pflag.ContinueOnError)
	sf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := sf.storageConfig()
	if err != nil {
		return err
	}

	rdb := openRedis(sc)
	defer rdb.Close()
	return reset(context.Background(), storage.NewRedisBackend(rdb, sc.Prefix, sc.Origin, sc.TTL), sc.Origin, out)
}

func reset(ctx context.Context, backend storage.Backend, origin string, out io.Writer) error {
	keys := append(append([]string(nil), session.Keys...), goEMS.TokenKey)
	if err := backend.Delete(ctx, keys...); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "cleared %d keys for origin %s\n", len(keys), origin)
	return err
}

func runMenu(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("menu", pflag.ContinueOnError)
	role := fs.StringP("role", "r", "", "role: admin, manager, hr or employee; all roles when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return printMenu(*role, out)
}

func printMenu(role string, out io.Writer) error {
	roles := navigation.Roles
	if role != "" {
		r, ok := navigation.ParseRole(role)
		if !ok {
			return fmt.Errorf("unknown role %q", role)
		}
		roles = []navigation.Role{r}
	}
	for _, r := range roles {
		items := navigation.Menu(&session.User{Role: string(r)})
		labels := make([]string, 0, len(items))
		for _, item := range items {
			labels = append(labels, item.Label+" "+item.Path)
		}
		if _, err := fmt.Fprintf(out, "%s:\n  %s\n", r, strings.Join(labels, "\n  ")); err != nil {
			return err
		}
	}
	return nil
}

func runLint(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("lint", pflag.ContinueOnError)
	var (
		configPath = fs.StringP("config", "c", "", "path to YAML config; defaults are linted when empty")
		failOn     = fs.String("fail-on", "high", "lowest severity that fails: info, warn or high")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	threshold, err := parseSeverity(*failOn)
	if err != nil {
		return err
	}

	cfg := goEMS.DefaultConfig()
	if *configPath != "" {
		if cfg, err = goEMS.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	return lint(cfg, threshold, out)
}

func lint(cfg goEMS.Config, threshold goEMS.LintSeverity, out io.Writer) error {
	ws := cfg.Lint()
	for _, w := range ws {
		if _, err := fmt.Fprintf(out, "%-4s %-24s %s\n", w.Severity, w.Code, w.Message); err != nil {
			return err
		}
	}
	return ws.AsError(threshold)
}

func parseSeverity(raw string) (goEMS.LintSeverity, error) {
	switch strings.ToLower(raw) {
	case "info":
		return goEMS.LintInfo, nil
	case "warn":
		return goEMS.LintWarn, nil
	case "high":
		return goEMS.LintHigh, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", raw)
	}
}

func runBench(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	var (
		origins     = fs.Int("origins", 10000, "number of origins to seed")
		concurrency = fs.Int("concurrency", 64, "number of concurrent workers")
		ops         = fs.Int("ops", 50000, "operations per phase (hydrate + write)")
		redisAddr   = fs.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = fs.String("prefix", "ems", "key prefix")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *origins <= 0 || *concurrency <= 0 || *ops <= 0 {
		return fmt.Errorf("origins, concurrency, and ops must be > 0")
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("failed to start miniredis: %w", err)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	defer cleanup()

	return bench(context.Background(), client, benchConfig{
		prefix:      *prefix,
		origins:     *origins,
		concurrency: *concurrency,
		ops:         *ops,
		ttl:         24 * time.Hour,
	}, out)
}
