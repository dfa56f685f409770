package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medivault/recall/internal/config"
	"github.com/medivault/recall/internal/server"
	"github.com/medivault/recall/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search service",
	Long: `Serve restores both collections from the index directory and exposes them
over HTTP: /health, /search, /add-vectors and /rebuild-index.

When watching is enabled the index directory is observed for artifact
changes; /health reports staleness, and with watch.auto_reload the indices
are reloaded after the debounce window.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := manager.RestoreAll(ctx); err != nil {
		return fmt.Errorf("restore indices: %w", err)
	}
	stats := manager.Stats()
	logger.Info("indices restored",
		zap.String("dir", cfg.Index.Dir),
		zap.Int("dimension", stats.Dimension),
		zap.Int("diseases", stats.Diseases.Count),
		zap.Int("patient_records", stats.Records.Count),
	)

	var stale func() bool
	var artifactWatcher *watcher.Watcher
	if cfg.Watch.Enabled {
		opts := []watcher.Option{
			watcher.WithLogger(logger),
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond),
		}
		if cfg.Watch.AutoReload {
			opts = append(opts, watcher.WithOnChange(func() {
				if err := manager.RestoreAll(context.Background()); err != nil {
					logger.Warn("artifact reload failed", zap.Error(err))
					return
				}
				artifactWatcher.MarkFresh()
				reloaded := manager.Stats()
				logger.Info("indices reloaded after artifact change",
					zap.Int("diseases", reloaded.Diseases.Count),
					zap.Int("patient_records", reloaded.Records.Count),
				)
			}))
		}

		artifactWatcher = watcher.New(cfg.Index.Dir, artifactNames(cfg.Index.ArtifactPrefix), opts...)
		if err := artifactWatcher.Start(ctx); err != nil {
			return fmt.Errorf("start artifact watcher: %w", err)
		}
		stale = artifactWatcher.Stale
	}

	srv := server.NewServer(manager, embedder, cfg.Server, logger, stale)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if artifactWatcher != nil {
			artifactWatcher.Stop()
		}
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if artifactWatcher != nil {
		artifactWatcher.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
