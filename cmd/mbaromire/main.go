package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/mbaromire/internal/api"
	"github.com/erazemk/mbaromire/internal/auth"
	"github.com/erazemk/mbaromire/internal/config"
	"github.com/erazemk/mbaromire/internal/db"
	"github.com/erazemk/mbaromire/internal/store"
	"github.com/erazemk/mbaromire/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also written to that file. The returned cleanup closes it.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	cleanup := func() {}
	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("flushing traces", "error", err)
		}
	}()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		if !cfg.AllowDegraded {
			slog.Error("failed to open store", "driver", cfg.Driver, "error", err)
			os.Exit(1)
		}
		slog.Warn("store unavailable, serving in degraded mode", "driver", cfg.Driver, "error", err)
		st = store.Unavailable(err)
		closeStore = func() {}
	}
	defer closeStore()

	jwtSecret, err := store.JWTSecret(ctx, st)
	if err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			slog.Error("failed to get JWT secret", "error", err)
			os.Exit(1)
		}
		// Sessions issued now will not survive a restart.
		jwtSecret, err = ephemeralSecret()
		if err != nil {
			slog.Error("generating JWT secret", "error", err)
			os.Exit(1)
		}
	}

	admin, err := auth.NewAdmin(cfg.AdminCode, jwtSecret, st)
	if err != nil {
		slog.Error("failed to set up admin auth", "error", err)
		os.Exit(1)
	}
	if admin.Open() {
		slog.Warn("ADMIN_CODE is empty, offer management is open to everyone")
	}

	router := api.NewRouter(st, admin, api.SystemInfo{Driver: cfg.Driver, Cities: cfg.Cities})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "store", cfg.Driver, "version", version)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing store")
}

// openStore connects to the configured backend and makes sure its
// collections exist.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		database, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewSQL(database, store.SQLite)
		if err := s.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		slog.Info("database ready", "path", cfg.DatabaseURL)
		return s, func() { database.Close() }, nil

	case config.DriverPostgres:
		database, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewSQL(database, store.Postgres)
		if err := s.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		slog.Info("database ready", "driver", "postgres")
		return s, func() { database.Close() }, nil

	case config.DriverMongo:
		m, err := store.OpenMongo(ctx, cfg.DatabaseURL, cfg.DatabaseName, cfg.MongoTransactions)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("database ready", "driver", "mongodb", "database", cfg.DatabaseName,
			"transactions", cfg.MongoTransactions)
		return m, func() { m.Close(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func ephemeralSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
