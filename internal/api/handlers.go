// Package api exposes the HTTP surface: source management, item and
// report browsing, and admin pipeline triggers.
package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/newsbrief-ai/newsbrief/internal/config"
	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/middleware"
	"github.com/newsbrief-ai/newsbrief/internal/models"
	"github.com/newsbrief-ai/newsbrief/internal/pipeline"
	"github.com/newsbrief-ai/newsbrief/internal/store"
)

type Handlers struct {
	cfg      *config.Config
	store    *store.Store
	pipeline *pipeline.Pipeline
}

func NewHandlers(cfg *config.Config, st *store.Store, p *pipeline.Pipeline) *Handlers {
	return &Handlers{cfg: cfg, store: st, pipeline: p}
}

// HealthCheck handles GET /api/v1/health.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"env":    h.cfg.Env,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// sourcePayload is the create/update body for sources.
type sourcePayload struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Type    string `json:"type" validate:"omitempty,oneof=rss"`
	URL     string `json:"url" validate:"required,url"`
	Enabled *bool  `json:"enabled"`
}

// ListSources handles GET /api/v1/sources.
func (h *Handlers) ListSources(c *fiber.Ctx) error {
	enabledOnly := c.QueryBool("enabled", false)

	sources, err := h.store.ListSources(c.Context(), enabledOnly)
	if err != nil {
		logger.Get().Error().Err(err).Msg("list sources failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"sources": sources, "count": len(sources)})
}

// CreateSource handles POST /api/v1/sources.
func (h *Handlers) CreateSource(c *fiber.Ctx) error {
	var payload sourcePayload
	if !middleware.ParseAndValidate(c, &payload) {
		return nil
	}

	src := &models.Source{
		Name:    payload.Name,
		Type:    payload.Type,
		URL:     payload.URL,
		Enabled: payload.Enabled == nil || *payload.Enabled,
	}
	if err := h.store.CreateSource(c.Context(), src); err != nil {
		logger.Get().Error().Err(err).Msg("create source failed")
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(src)
}

// UpdateSource handles PUT /api/v1/sources/:id.
func (h *Handlers) UpdateSource(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	src, err := h.store.GetSource(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}

	var payload sourcePayload
	if !middleware.ParseAndValidate(c, &payload) {
		return nil
	}

	src.Name = payload.Name
	src.URL = payload.URL
	if payload.Enabled != nil {
		src.Enabled = *payload.Enabled
	}

	if err := h.store.UpdateSource(c.Context(), src); err != nil {
		logger.Get().Error().Err(err).Msg("update source failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(src)
}

// DeleteSource handles DELETE /api/v1/sources/:id.
func (h *Handlers) DeleteSource(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	err = h.store.DeleteSource(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListItems handles GET /api/v1/items.
func (h *Handlers) ListItems(c *fiber.Ctx) error {
	page, pageSize := pagination(c)
	status := c.Query("status")
	switch status {
	case "", models.StatusPending, models.StatusScored, models.StatusDiscarded:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown status filter")
	}

	items, err := h.store.ListItems(c.Context(), status, page, pageSize)
	if err != nil {
		logger.Get().Error().Err(err).Msg("list items failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items), "page": page})
}

// ListReports handles GET /api/v1/reports.
func (h *Handlers) ListReports(c *fiber.Ctx) error {
	page, pageSize := pagination(c)

	reports, err := h.store.ListReports(c.Context(), page, pageSize)
	if err != nil {
		logger.Get().Error().Err(err).Msg("list reports failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"reports": reports, "count": len(reports), "page": page})
}

// GetReport handles GET /api/v1/reports/:id.
func (h *Handlers) GetReport(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	rep, err := h.store.GetReport(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(rep)
}

// LatestReport handles GET /api/v1/reports/latest.
func (h *Handlers) LatestReport(c *fiber.Ctx) error {
	rep, err := h.store.LatestReport(c.Context())
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(rep)
}

// PublishReport handles POST /api/v1/admin/reports/:id/publish.
func (h *Handlers) PublishReport(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	err = h.store.PublishReport(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"status": "published"})
}

// TriggerCollect handles POST /api/v1/admin/collect.
func (h *Handlers) TriggerCollect(c *fiber.Ctx) error {
	res, err := h.pipeline.RunCollect(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("collect run failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(res)
}

// TriggerProcess handles POST /api/v1/admin/process.
func (h *Handlers) TriggerProcess(c *fiber.Ctx) error {
	res, err := h.pipeline.RunProcess(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("process run failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(res)
}

// TriggerGenerate handles POST /api/v1/admin/generate.
func (h *Handlers) TriggerGenerate(c *fiber.Ctx) error {
	res, err := h.pipeline.RunGenerate(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("generate run failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(res)
}

// ClearSeenCache handles POST /api/v1/admin/cache/clear.
func (h *Handlers) ClearSeenCache(c *fiber.Ctx) error {
	if err := h.pipeline.ResetSeenCache(c.Context()); err != nil {
		logger.Get().Error().Err(err).Msg("seen cache clear failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"status": "cleared"})
}

// TriggerPipeline handles POST /api/v1/admin/pipeline.
func (h *Handlers) TriggerPipeline(c *fiber.Ctx) error {
	res, err := h.pipeline.RunAll(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("pipeline run failed")
		return fiber.ErrInternalServerError
	}
	return c.JSON(res)
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func pagination(c *fiber.Ctx) (page, pageSize int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = c.QueryInt("page_size", 20)
	switch {
	case pageSize > 100:
		pageSize = 100
	case pageSize <= 0:
		pageSize = 20
	}
	return page, pageSize
}
