// Package server exposes the routing core over HTTP.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/zen-systems/routegate/pkg/breaker"
	"github.com/zen-systems/routegate/pkg/budget"
	"github.com/zen-systems/routegate/pkg/dispatch"
	"github.com/zen-systems/routegate/pkg/router"
	"github.com/zen-systems/routegate/pkg/telemetry"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Router routes tasks.
type Router interface {
	Route(ctx context.Context, task router.TaskSpec) (*router.SelectedRoute, error)
}

// Events returns recent telemetry.
type Events interface {
	Recent(limit int) []telemetry.Event
}

// Budgets reports ledger state.
type Budgets interface {
	Snapshot() []budget.Status
	Usage(credential string) float64
	Limit(credential string) (budget.Limit, bool)
}

// Health reports breaker state.
type Health interface {
	State(credential string) breaker.State
}

// Outcomes records provider call results.
type Outcomes interface {
	Record(credential string, err error) dispatch.Outcome
}

// Deps are the components served over HTTP.
type Deps struct {
	Router   Router
	Events   Events
	Budgets  Budgets
	Health   Health
	Outcomes Outcomes
}

// Server is the routegate HTTP surface.
type Server struct {
	app    *fiber.App
	deps   Deps
	logger *zap.Logger
}

// New creates a server with its routes registered.
func New(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "routegate",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	s.app.Get("/healthz", s.healthz)
	v1 := s.app.Group("/v1")
	v1.Post("/route", s.postRoute)
	v1.Get("/telemetry", s.getTelemetry)
	v1.Get("/budget", s.listBudgets)
	v1.Get("/budget/:credential", s.getBudget)
	v1.Get("/breaker/:credential", s.getBreaker)
	v1.Post("/outcome", s.postOutcome)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}
