// Package health runs the ops HTTP server: liveness plus an analytics
// snapshot for dashboards.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/buildinfo"
	"github.com/Tytandoteth/magbot-test-mode/internal/config"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
)

// Server is the ops HTTP endpoint.
type Server struct {
	app      *fiber.App
	cfg      config.HealthConfig
	mode     string
	recorder analytics.Recorder
	started  time.Time
}

// NewServer builds the fiber app and its routes.
func NewServer(cfg config.HealthConfig, mode string, recorder analytics.Recorder) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})
	s := &Server{
		app:      app,
		cfg:      cfg,
		mode:     mode,
		recorder: recorder,
		started:  time.Now(),
	}
	app.Get("/health", s.handleHealth)
	app.Get("/stats", s.handleStats)
	return s
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"mode":           s.mode,
		"commit":         buildinfo.Commit,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

// handleStats serves the analytics aggregate. Analytics being down degrades
// the payload, it does not fail the endpoint.
func (s *Server) handleStats(c *fiber.Ctx) error {
	if s.recorder == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
		})
	}
	summary, err := s.recorder.Aggregate(c.Context())
	if err != nil {
		logger.Warn(c.Context(), "app", "stats.aggregate_failed",
			slog.String("err", err.Error()),
		)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
		})
	}
	return c.JSON(summary)
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	logger.Info(ctx, "app", "health.started", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
