package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zen-systems/routegate/pkg/breaker"
	"github.com/zen-systems/routegate/pkg/budget"
	"github.com/zen-systems/routegate/pkg/dispatch"
	"github.com/zen-systems/routegate/pkg/router"
)

const defaultTelemetryLimit = 100

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// BudgetResponse reports one credential's spend.
type BudgetResponse struct {
	Credential string        `json:"credential"`
	UsageUSD   float64       `json:"usage_usd"`
	Limit      *budget.Limit `json:"limit,omitempty"`
}

// OutcomeRequest reports the result of a provider call. An empty Error with
// a zero or 2xx Status is a success.
type OutcomeRequest struct {
	Credential string `json:"credential"`
	Error      string `json:"error,omitempty"`
	Status     int    `json:"status,omitempty"`
	Canceled   bool   `json:"canceled,omitempty"`
}

// OutcomeResponse echoes how an outcome was applied. Transient reports
// whether the same call may be retried on the same credential.
type OutcomeResponse struct {
	Credential string           `json:"credential"`
	Outcome    dispatch.Outcome `json:"outcome"`
	Transient  bool             `json:"transient"`
	State      breaker.State    `json:"state"`
}

func writeError(c *fiber.Ctx, status int, title, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Code:    strconv.Itoa(status),
		Title:   title,
		Message: message,
	})
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeError(c, fe.Code, http.StatusText(fe.Code), fe.Message)
	}
	s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return writeError(c, fiber.StatusInternalServerError, "Internal Server Error", "internal error")
}

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) postRoute(c *fiber.Ctx) error {
	var task router.TaskSpec
	if err := c.BodyParser(&task); err != nil {
		return writeError(c, fiber.StatusBadRequest, "Bad Request", "invalid task: "+err.Error())
	}

	route, err := s.deps.Router.Route(c.UserContext(), task)
	if err != nil {
		s.logger.Error("route failed", zap.String("task_type", task.TaskType), zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "Configuration Error", err.Error())
	}
	return c.JSON(route)
}

func (s *Server) getTelemetry(c *fiber.Ctx) error {
	limit := defaultTelemetryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return writeError(c, fiber.StatusBadRequest, "Bad Request", "limit must be a non-negative integer")
		}
		limit = n
	}
	return c.JSON(s.deps.Events.Recent(limit))
}

func (s *Server) listBudgets(c *fiber.Ctx) error {
	return c.JSON(s.deps.Budgets.Snapshot())
}

func (s *Server) getBudget(c *fiber.Ctx) error {
	cred := c.Params("credential")
	resp := BudgetResponse{Credential: cred, UsageUSD: s.deps.Budgets.Usage(cred)}
	if limit, ok := s.deps.Budgets.Limit(cred); ok {
		resp.Limit = &limit
	}
	return c.JSON(resp)
}

func (s *Server) getBreaker(c *fiber.Ctx) error {
	return c.JSON(s.deps.Health.State(c.Params("credential")))
}

func (s *Server) postOutcome(c *fiber.Ctx) error {
	var req OutcomeRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "Bad Request", "invalid outcome: "+err.Error())
	}
	if req.Credential == "" {
		return writeError(c, fiber.StatusBadRequest, "Bad Request", "credential is required")
	}

	callErr := req.err()
	outcome := s.deps.Outcomes.Record(req.Credential, callErr)
	return c.JSON(OutcomeResponse{
		Credential: req.Credential,
		Outcome:    outcome,
		Transient:  dispatch.IsTransient(callErr),
		State:      s.deps.Health.State(req.Credential),
	})
}

func (r OutcomeRequest) err() error {
	if r.Canceled {
		return context.Canceled
	}
	if r.Error == "" && (r.Status == 0 || (r.Status >= 200 && r.Status < 300)) {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = http.StatusText(r.Status)
	}
	return &dispatch.ProviderError{Status: r.Status, Err: errors.New(msg)}
}
