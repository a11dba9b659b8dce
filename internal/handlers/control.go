// internal/handlers/control.go
// Control channel surface: operators trigger pipeline runs and flip
// sources on or off. All endpoints sit behind JWT.

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"riskmap/internal/registry"
	"riskmap/internal/scheduler"
	"riskmap/pkg/logger"
)

// ControlHandler pushes commands onto the scheduler's control channel.
type ControlHandler struct {
	control  chan<- scheduler.Command
	registry *registry.Manager
	logger   *logger.Logger
}

// NewControlHandler creates the control handler.
func NewControlHandler(control chan<- scheduler.Command, reg *registry.Manager, log *logger.Logger) *ControlHandler {
	return &ControlHandler{
		control:  control,
		registry: reg,
		logger:   log.With("component", "control"),
	}
}

func (h *ControlHandler) enqueue(c *fiber.Ctx, cmd scheduler.Command) error {
	select {
	case h.control <- cmd:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":  "accepted",
			"command": cmd.Name,
			"arg":     cmd.Arg,
		})
	default:
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "control_busy",
			"message": "control channel is full, try again shortly",
		})
	}
}

// RunFetch handles POST /api/v1/control/fetch
func (h *ControlHandler) RunFetch(c *fiber.Ctx) error {
	return h.enqueue(c, scheduler.Command{Name: "run_fetch", Arg: c.Query("source_set")})
}

// RunEnrich handles POST /api/v1/control/enrich
func (h *ControlHandler) RunEnrich(c *fiber.Ctx) error {
	return h.enqueue(c, scheduler.Command{Name: "run_enrich"})
}

// RunIntegrator handles POST /api/v1/control/integrate/:name
func (h *ControlHandler) RunIntegrator(c *fiber.Ctx) error {
	name := c.Params("name")
	switch name {
	case "events", "tone", "risk_index":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "unknown_integrator",
			"message": "integrator must be one of events, tone, risk_index",
		})
	}
	return h.enqueue(c, scheduler.Command{Name: "run_integrator", Arg: name})
}

// RunConsolidate handles POST /api/v1/control/consolidate
func (h *ControlHandler) RunConsolidate(c *fiber.Ctx) error {
	return h.enqueue(c, scheduler.Command{Name: "run_consolidate"})
}

// Shutdown handles POST /api/v1/control/shutdown
func (h *ControlHandler) Shutdown(c *fiber.Ctx) error {
	return h.enqueue(c, scheduler.Command{Name: "shutdown"})
}

// ReloadSources handles POST /api/v1/control/sources/reload
func (h *ControlHandler) ReloadSources(c *fiber.Ctx) error {
	if err := h.registry.Reload(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "reload_failed",
			"message": err.Error(),
		})
	}
	return h.enqueue(c, scheduler.Command{Name: "reload_sources"})
}

// SetSourceEnabled handles PATCH /api/v1/control/sources/:name
func (h *ControlHandler) SetSourceEnabled(c *fiber.Ctx) error {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_body",
			"message": err.Error(),
		})
	}

	name := c.Params("name")
	if err := h.registry.SetEnabled(name, body.Enabled); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "unknown_source",
			"message": err.Error(),
		})
	}

	h.logger.Info("source toggled", "source", name, "enabled", body.Enabled)
	return c.JSON(fiber.Map{
		"source":  name,
		"enabled": body.Enabled,
	})
}

// ListSources handles GET /api/v1/control/sources
func (h *ControlHandler) ListSources(c *fiber.Ctx) error {
	sources := h.registry.Current().All()
	return c.JSON(fiber.Map{
		"sources": sources,
		"count":   len(sources),
	})
}
