package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/tripwire/internal/config"
	"github.com/alfredjeanlab/tripwire/internal/events"
	"github.com/alfredjeanlab/tripwire/internal/export"
	"github.com/alfredjeanlab/tripwire/internal/oracle"
	"github.com/alfredjeanlab/tripwire/internal/server"
	"github.com/alfredjeanlab/tripwire/internal/store/postgres"
	"github.com/alfredjeanlab/tripwire/internal/watcher"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the tripwire server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create a client connection.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (TRIPWIRE_NATS_URL not set)")
		}

		src := oracle.NewHTTPSource(cfg.OracleURL)
		gateServer := server.NewGateServer(store, publisher, src)

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: gateServer.NewHTTPHandler(cfg.AuthToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start the export scheduler if an S3 bucket is configured.
		var scheduler *export.Scheduler
		if cfg.ExportInterval > 0 && cfg.ExportS3Bucket != "" {
			s3Dest, err := export.NewS3Destination(
				context.Background(),
				cfg.ExportS3Bucket,
				cfg.ExportS3Key,
				cfg.ExportS3Region,
				cfg.ExportS3Endpoint,
			)
			if err != nil {
				logger.Error("failed to create S3 export destination", "err", err)
			} else {
				scheduler = export.NewScheduler(store, []export.Destination{s3Dest}, cfg.ExportInterval, logger)
				scheduler.Start()
				logger.Info("export scheduler started",
					"interval", cfg.ExportInterval, "bucket", cfg.ExportS3Bucket, "key", cfg.ExportS3Key)
			}
		}

		// Start the auto-trigger watcher when enabled.
		var watcherCancel context.CancelFunc
		if cfg.AutoTrigger {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create watcher subscriber", "err", err)
			} else {
				w := watcher.New(gateServer, "watcher", logger)
				var watcherCtx context.Context
				watcherCtx, watcherCancel = context.WithCancel(context.Background())
				go func() {
					if err := w.Run(watcherCtx, sub); err != nil {
						logger.Error("watcher error", "err", err)
					}
					sub.Close()
				}()
				logger.Info("auto-trigger watcher started")
			}
		}

		logger.Info("tripwire server started",
			"http_addr", cfg.HTTPAddr,
			"oracle_url", cfg.OracleURL,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if watcherCancel != nil {
			watcherCancel()
			logger.Info("watcher stopped")
		}

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
