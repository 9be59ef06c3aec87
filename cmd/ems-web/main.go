package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	goEMS "github.com/MrEthical07/goEMS"
	"github.com/MrEthical07/goEMS/internal/httpapi"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to YAML config; defaults apply when empty")
		addr       = pflag.String("addr", "", "listen address, overrides http.addr")
		logLevel   = pflag.String("log-level", "info", "debug, info, warn or error")
		auditLog   = pflag.Bool("audit-stdout", false, "write audit events to stdout as JSON lines")
	)
	pflag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	if err := run(*configPath, *addr, *auditLog, logger); err != nil {
		logger.Error("ems-web exited", "err", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, auditStdout bool, logger *slog.Logger) error {
	cfg := goEMS.DefaultConfig()
	if configPath != "" {
		loaded, err := goEMS.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}
	for _, w := range cfg.Lint().BySeverity(goEMS.LintWarn) {
		logger.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if auditStdout {
		cfg.Audit.Enabled = true
	}
	b := goEMS.New().WithConfig(cfg).WithLogger(logger)
	if auditStdout {
		b.WithAuditSink(goEMS.NewJSONWriterSink(os.Stdout))
	}
	client, err := b.Build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("client close failed", "err", err)
		}
	}()

	handler := httpapi.NewHandler(client, httpapi.Options{
		Logger:    logger,
		LoginPath: cfg.HTTP.LoginPath,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr, "storage", cfg.Storage.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}
