package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/me/pitwall/internal/config"
	"github.com/me/pitwall/internal/engine"
	"github.com/me/pitwall/internal/logging"
	"github.com/me/pitwall/internal/seed"
	"github.com/me/pitwall/internal/server"
	"github.com/me/pitwall/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("pitwall-server", pflag.ExitOnError)
	flags.String("config", "", "Config file path")
	flags.String("addr", "", "Listen address (default :8080)")
	flags.String("db", "", "SQLite database path")
	flags.Int("slots", 0, "Number of arena slots")
	flags.Duration("run-duration", 0, "Run duration for future starts (e.g. 5m)")
	flags.String("seed-file", "", "Roster YAML applied once to an empty store")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json)")
	flags.String("log-file", "", "Log file with rotation (default stderr)")
	debug := flags.Bool("debug", false, "Shorthand for --log-level=debug")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix("PITWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Explicit flags override files and environment.
	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("db") {
		cfg.Store.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("slots") {
		cfg.Arena.Slots, _ = flags.GetInt("slots")
	}
	if flags.Changed("run-duration") {
		cfg.Arena.RunDuration, _ = flags.GetDuration("run-duration")
	}
	if flags.Changed("seed-file") {
		cfg.Arena.SeedFile, _ = flags.GetString("seed-file")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("log-file") {
		cfg.Log.File, _ = flags.GetString("log-file")
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := logging.ParseLevel(cfg.Log.Level)
	logger := logging.NewLogger(level, cfg.Log.Format)
	if cfg.Log.File != "" {
		w := logging.NewRotatingWriter(cfg.Log.File, logging.Rotation{
			MaxSizeMB:  cfg.Log.Rotation.MaxSizeMB,
			MaxBackups: cfg.Log.Rotation.MaxBackups,
			MaxAgeDays: cfg.Log.Rotation.MaxAgeDays,
			Compress:   cfg.Log.Rotation.Compress,
		})
		defer w.Close()
		logger = logging.NewLoggerWithWriter(level, cfg.Log.Format, w)
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready", "path", cfg.Store.DBPath)

	// Seed a fresh arena from the roster file, if one is configured.
	if cfg.Arena.SeedFile != "" {
		if err := seed.New(logger).Apply(context.Background(), st, cfg.Arena.SeedFile); err != nil {
			return fmt.Errorf("seed arena: %w", err)
		}
	}

	eng, err := engine.New(context.Background(), engine.Config{
		Slots:       cfg.Arena.Slots,
		RunDuration: cfg.Arena.RunDuration,
	}, st, logger)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer eng.Close()

	srv := server.New(cfg.Server, eng, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "slots", cfg.Arena.Slots)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
