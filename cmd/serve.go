package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/sunrotstudios/velvet-metal/internal/repositories"
	"github.com/sunrotstudios/velvet-metal/internal/server"
	"github.com/sunrotstudios/velvet-metal/internal/tasks"
)

// Serve runs the sync daemon: webhook listener, event queue consumer, and
// websocket event stream.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	resolver := NewCredentialResolver(config, repositories.NewServiceAuthRepository(db))
	pairs := repositories.NewSyncPairRepository(db)

	hub := server.NewEventHub(r.logger)
	engine := tasks.NewSyncEngine(resolver, pairs, hub, r.logger)
	dispatcher := tasks.NewDispatcher(engine, pairs, config.Sync.QueueSize, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(server.NewHealthHandler(db))
	router.Handle("POST", "/webhooks/playlist-change", server.NewWebhookHandler(dispatcher, pairs))
	router.Handle("GET", "/events", hub)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(runCtx)
	}()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("sync daemon listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		cancel()
		<-dispatcherDone
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	// Dispatcher drains in-flight reconciliations before returning.
	<-dispatcherDone

	return nil
}
