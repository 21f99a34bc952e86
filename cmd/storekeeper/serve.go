package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/storekeeper/internal/api"
	"github.com/erazemk/storekeeper/internal/config"
	"github.com/erazemk/storekeeper/internal/db"
	"github.com/erazemk/storekeeper/internal/events"
	"github.com/erazemk/storekeeper/internal/imaging"
	"github.com/erazemk/storekeeper/internal/notify"
	"github.com/erazemk/storekeeper/internal/scheduler"
	"github.com/erazemk/storekeeper/internal/store"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			closeLog, err := setupLogger(cfg.LogPath)
			if err != nil {
				return err
			}
			defer closeLog()

			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from STOREKEEPER_ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	// First run: create the database and a superadmin.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		password, err := initDatabase(cfg.DBPath, cfg.AdminEmail)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(cfg.DBPath, cfg.AdminEmail, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	if err := store.SetLowStockThreshold(ctx, database, cfg.LowStockThreshold); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath, "low_stock_threshold", cfg.LowStockThreshold)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	hub := events.NewHub()
	defer hub.Close()

	publishers := events.Publishers{hub}
	if cfg.Kafka.Enabled() {
		kafkaPub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kafkaPub.Close(); err != nil {
				slog.Error("failed to close kafka writer", "error", err)
			}
		}()
		publishers = append(publishers, kafkaPub)
		slog.Info("mirroring notifications to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	notifier := notify.New(database, publishers)

	sched, err := scheduler.New(database, notifier, scheduler.Config{
		OverdueSpec:  cfg.OverdueSpec,
		ReminderSpec: cfg.ReminderSpec,
	})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	router := api.NewRouter(api.RouterConfig{
		DB:        database,
		JWTSecret: jwtSecret,
		Notifier:  notifier,
		Hub:       hub,
		Images:    imaging.Processor{MaxDimension: cfg.ImageMaxDimension},
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sigCtx.Done():
		slog.Info("shutdown signal received")
		// Streams only end when their subscriptions close.
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}

	slog.Info("server stopped, closing database")
	return nil
}
