package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/terra-clan/code-validator/internal/api"
	"github.com/terra-clan/code-validator/internal/cache"
	"github.com/terra-clan/code-validator/internal/catalog"
	"github.com/terra-clan/code-validator/internal/cleanup"
	"github.com/terra-clan/code-validator/internal/config"
	"github.com/terra-clan/code-validator/internal/health"
	"github.com/terra-clan/code-validator/internal/storage"
	"github.com/terra-clan/code-validator/internal/submission"
	"github.com/terra-clan/code-validator/internal/validator"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log))

	slog.Info("starting code-validator",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"analyzer", cfg.Analyzer.Mode,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Load the stage catalog and publish it to the database
	stages := catalog.NewLoader()
	if err := stages.LoadFromDir(cfg.Stages.Dir); err != nil {
		slog.Warn("failed to load stages from dir", "dir", cfg.Stages.Dir, "error", err)
	}
	if cfg.Stages.Seed {
		n, err := stages.Seed(initCtx, repo)
		if err != nil {
			slog.Error("failed to seed stages", "error", err)
			os.Exit(1)
		}
		slog.Info("stages seeded", "count", n)
	}

	// Health checks: postgres gates readiness, the rest is informational
	checks := health.NewRegistry()

	pgChecker, err := health.NewPostgresChecker(cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to create postgres checker", "error", err)
		os.Exit(1)
	}
	checks.Register("postgres", pgChecker)

	analyzer, err := validator.NewAnalyzer(cfg.AnalyzerSettings())
	if err != nil {
		slog.Error("failed to create analyzer", "error", err)
		os.Exit(1)
	}
	checks.RegisterOptional("analyzer", health.NewAnalyzerChecker(analyzer))

	opts := []submission.Option{submission.WithEventLogger(repo)}

	var resultCache *cache.RedisCache
	if cfg.Redis.Address != "" {
		resultCache, err = cache.NewRedisCache(initCtx, cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			slog.Warn("result cache disabled", "address", cfg.Redis.Address, "error", err)
			resultCache = nil
		} else {
			checks.RegisterOptional("redis", health.NewRedisChecker(resultCache.Client()))
			opts = append(opts, submission.WithResultCache(resultCache))
			slog.Info("result cache enabled", "address", cfg.Redis.Address, "ttl", cfg.Redis.TTL)
		}
	}

	svc := submission.NewService(repo, validator.New(analyzer), opts...)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sweep submission files orphaned by crashed analyzer runs
	sweeper := cleanup.NewSweeper(cfg.Analyzer.TempDir, validator.TempFilePattern, cfg.Cleanup.Interval, cfg.Cleanup.TempMaxAge)
	sweeper.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, svc, checks, repo)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()
	sweeper.Wait()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	closers := []closer{
		{"postgres checker", pgChecker},
		{"repository", repo},
	}
	if c := analyzerCloser(analyzer); c != nil {
		closers = append(closers, closer{"analyzer", c})
	}
	if resultCache != nil {
		closers = append(closers, closer{"result cache", resultCache})
	}
	closeAll(closers...)

	slog.Info("code-validator stopped")
}

// newLogger builds the process logger: colored text via tint for local
// runs, JSON otherwise.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

type closer struct {
	name string
	c    io.Closer
}

func closeAll(closers ...closer) {
	for _, cl := range closers {
		if err := cl.c.Close(); err != nil {
			slog.Error("close error", "component", cl.name, "error", err)
		}
	}
}

// analyzerCloser returns the closable analyzer behind a fallback wrapper
func analyzerCloser(a validator.StaticAnalyzer) io.Closer {
	if fb, ok := a.(*validator.FallbackAnalyzer); ok {
		a = fb.Preferred()
	}
	if c, ok := a.(io.Closer); ok {
		return c
	}
	return nil
}
