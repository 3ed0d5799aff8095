package cli

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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/halvik/showrunner/internal/middleware"
	"github.com/halvik/showrunner/internal/server"
	"github.com/halvik/showrunner/internal/store"
)

// serveCmd runs the bundled reference backend: the same API surface the
// console consumes, backed by SQLite and a deterministic generator.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference agent backend",
	Long: `Run the reference agent backend locally. It serves the streaming and
session endpoints the console consumes, persists sessions in SQLite, and
answers with a deterministic scripted generator. Point AGENT_BASE_URL at
it to develop against a fully local stack.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("Starting reference backend", "port", cfg.Port, "dev", cfg.IsDevelopment())

		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()

		if err := repo.Ping(context.Background()); err != nil {
			return fmt.Errorf("database health check: %w", err)
		}
		slog.Info("Database connected", "path", cfg.DBPath)

		limiter := server.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
		defer limiter.Stop()

		gen := &server.ScriptedGenerator{ChunkDelay: 40 * time.Millisecond}
		handler := server.NewHandler(repo, gen, limiter)

		// Setup router.
		r := chi.NewRouter()
		r.Use(chiMiddleware.RequestID)
		r.Use(chiMiddleware.RealIP)
		r.Use(chiMiddleware.Logger)
		r.Use(chiMiddleware.Recoverer)
		r.Use(chiMiddleware.Heartbeat("/health"))

		allowedOrigins := []string{"*"}
		if !cfg.IsDevelopment() {
			allowedOrigins = []string{cfg.FrontendURL}
		}
		r.Use(middleware.CORS(allowedOrigins))

		handler.RegisterRoutes(r)

		// SSE responses need long-lived writes, so no WriteTimeout.
		srv := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  120 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			slog.Info("Server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}
		stop()

		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		slog.Info("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
