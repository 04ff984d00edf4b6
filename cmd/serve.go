package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban-board/config"
	"github.com/CrowderSoup/kanban-board/handlers"
	"github.com/CrowderSoup/kanban-board/services"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(conf func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), conf())
		},
	}
}

func runServe(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()
	defer hub.Stop()

	a, err := openApp(ctx, cfg, hub)
	if err != nil {
		return err
	}
	defer a.Close()

	router := handlers.NewRouter(
		handlers.RouterConfig{StaticDir: cfg.HTTP.StaticDir, AllowedOrigins: cfg.HTTP.AllowedOrigins},
		handlers.NewDataHandler(a.boards),
		handlers.NewFeedHandler(a.boards, hub),
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":   server.Addr,
			"db":     cfg.Storage.DBPath,
			"cached": a.redis != nil,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
