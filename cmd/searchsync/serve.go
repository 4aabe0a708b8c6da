package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/search"
	"github.com/lumenpress/searchsync/internal/store"
	syncengine "github.com/lumenpress/searchsync/internal/sync"
	chitransport "github.com/lumenpress/searchsync/internal/transport/chi"
	"github.com/lumenpress/searchsync/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search API server with write-path synchronization",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	a.log.Info("starting searchsync server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", a.cfg.HTTP.Port),
		zap.String("engine_url", a.cfg.Engine.URL),
		zap.String("index_uid", a.cfg.Engine.IndexUID),
	)

	// Write-path sync: the store notifies the orchestrator after every
	// successful entity write.
	orch := syncengine.NewOrchestrator(a.reg, a.builder, a.engine, a.mon, a.log)
	dispatcher := store.NewDispatcher()
	dispatcher.Register(orch)
	a.db.WithListener(dispatcher)

	svc := search.New(a.engine, a.mon)
	server := chitransport.NewServer(svc, a.mon, a.log)
	handler := server.Router(a.cfg.Auth.APIKeys)

	serveCfg := chitransport.ServeConfig{
		Addr:            fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		ReadTimeout:     time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:    time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
		ShutdownTimeout: time.Duration(a.cfg.HTTP.ShutdownSec) * time.Second,
	}
	if err := chitransport.Serve(ctx, serveCfg, handler, a.log); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	a.log.Info("server stopped gracefully")
	return nil
}
