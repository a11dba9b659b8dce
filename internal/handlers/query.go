// internal/handlers/query.go
// Read-only query API: articles, zones, the GeoJSON feature collection,
// aggregates, and metrics. Always serves the last consistent snapshot.

package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"riskmap/internal/consolidator"
	"riskmap/internal/models"
	"riskmap/internal/repository"
	"riskmap/internal/services"
	apperrors "riskmap/pkg/errors"
	"riskmap/pkg/logger"
)

// QueryHandler serves the read contracts consumed by dashboards and reports.
type QueryHandler struct {
	articles *repository.ArticleRepository
	zones    *repository.ZoneRepository
	metrics  *services.MetricsService
	validate *validator.Validate
	logger   *logger.Logger
}

// NewQueryHandler creates the query handler.
func NewQueryHandler(articles *repository.ArticleRepository, zones *repository.ZoneRepository, metrics *services.MetricsService, log *logger.Logger) *QueryHandler {
	return &QueryHandler{
		articles: articles,
		zones:    zones,
		metrics:  metrics,
		validate: validator.New(),
		logger:   log.With("component", "api"),
	}
}

// GetArticle handles GET /api/v1/articles/:id
func (h *QueryHandler) GetArticle(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_id",
			"message": "article id must be an integer",
		})
	}

	article, err := h.articles.GetArticleByID(id)
	if err != nil {
		if errors.Is(err, apperrors.ErrArticleNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "not_found",
				"message": "article not found",
			})
		}
		return h.storageError(c, err)
	}

	return c.JSON(fiber.Map{"article": article})
}

// ListArticles handles GET /api/v1/articles
func (h *QueryHandler) ListArticles(c *fiber.Ctx) error {
	var filter models.ArticleFilter
	if err := c.QueryParser(&filter); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_filter",
			"message": err.Error(),
		})
	}
	var err error
	if filter.Since, err = parseTimeParam(c.Query("since")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_filter",
			"message": "since must be RFC3339",
		})
	}
	if filter.Until, err = parseTimeParam(c.Query("until")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_filter",
			"message": "until must be RFC3339",
		})
	}
	if err := h.validate.Struct(&filter); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "invalid_filter",
			"message": err.Error(),
		})
	}

	articles, err := h.articles.ListArticles(filter)
	if err != nil {
		return h.storageError(c, err)
	}

	return c.JSON(fiber.Map{
		"articles": articles,
		"count":    len(articles),
	})
}

// ListZones handles GET /api/v1/zones
func (h *QueryHandler) ListZones(c *fiber.Ctx) error {
	var filter models.ZoneFilter
	if err := c.QueryParser(&filter); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_filter",
			"message": err.Error(),
		})
	}
	var err error
	if filter.Since, err = parseTimeParam(c.Query("since")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_filter",
			"message": "since must be RFC3339",
		})
	}
	if err := h.validate.Struct(&filter); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "invalid_filter",
			"message": err.Error(),
		})
	}

	zones, err := h.zones.QueryZones(filter)
	if err != nil {
		return h.storageError(c, err)
	}

	return c.JSON(fiber.Map{
		"zones": zones,
		"count": len(zones),
	})
}

// GetZonesGeoJSON handles GET /zones.geojson
func (h *QueryHandler) GetZonesGeoJSON(c *fiber.Ctx) error {
	lastRun, err := h.zones.LatestRun()
	if err != nil {
		return h.storageError(c, err)
	}

	var zones []models.ConflictZone
	if lastRun != nil {
		zones, err = h.zones.QueryZones(models.ZoneFilter{Limit: 500})
		if err != nil {
			return h.storageError(c, err)
		}
	}

	collection := consolidator.BuildFeatureCollection(zones, lastRun == nil, time.Now().UTC())
	c.Set("Content-Type", "application/geo+json")
	return c.JSON(collection)
}

// AggregateCounts handles GET /api/v1/stats/counts?by=country&days=7
func (h *QueryHandler) AggregateCounts(c *fiber.Ctx) error {
	by := c.Query("by", "country")
	days := c.QueryInt("days", 7)
	if days <= 0 || days > 365 {
		days = 7
	}

	counts, err := h.articles.AggregateCounts(by, time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		if apperrors.IsStorageError(err) {
			return h.storageError(c, err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_aggregation",
			"message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"by":     by,
		"days":   days,
		"counts": counts,
	})
}

// RiskByCountry handles GET /api/v1/stats/risk-by-country?days=7
func (h *QueryHandler) RiskByCountry(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days <= 0 || days > 365 {
		days = 7
	}

	risk, err := h.articles.RiskByCountry(time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return h.storageError(c, err)
	}

	return c.JSON(fiber.Map{
		"days": days,
		"risk": risk,
	})
}

// GetMetrics handles GET /metrics
func (h *QueryHandler) GetMetrics(c *fiber.Ctx) error {
	depth, err := h.articles.QueueDepth()
	if err != nil {
		h.logger.Error("queue depth query failed", "error", err.Error())
		depth = -1
	}
	return c.JSON(h.metrics.Snapshot(depth))
}

// Health handles GET /health
func (h *QueryHandler) Health(c *fiber.Ctx) error {
	states, err := h.articles.CountByState()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"articles": states,
	})
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *QueryHandler) storageError(c *fiber.Ctx, err error) error {
	h.logger.Error("storage error serving query", "path", c.Path(), "error", err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "storage_error",
		"message": "the store is temporarily unavailable",
	})
}
