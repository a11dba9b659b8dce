// internal/routes/routes.go
// Route table: the open read-only query API and the JWT-protected control
// surface.

package routes

import (
	"github.com/gofiber/fiber/v2"

	"riskmap/internal/handlers"
	"riskmap/internal/middleware"
)

// SetupRoutes wires all HTTP endpoints.
func SetupRoutes(app *fiber.App, query *handlers.QueryHandler, control *handlers.ControlHandler, jwtManager *middleware.JWTManager) {
	// Top-level read endpoints
	app.Get("/health", query.Health)
	app.Get("/metrics", query.GetMetrics)
	app.Get("/zones.geojson", query.GetZonesGeoJSON)

	api := app.Group("/api/v1")

	// Query API (read-only)
	api.Get("/articles", query.ListArticles)
	api.Get("/articles/:id", query.GetArticle)
	api.Get("/zones", query.ListZones)
	api.Get("/stats/counts", query.AggregateCounts)
	api.Get("/stats/risk-by-country", query.RiskByCountry)

	// Control channel (mutating, JWT-protected)
	ctrl := api.Group("/control", middleware.Protected(jwtManager))
	ctrl.Get("/sources", control.ListSources)
	ctrl.Patch("/sources/:name", control.SetSourceEnabled)
	ctrl.Post("/sources/reload", control.ReloadSources)
	ctrl.Post("/fetch", control.RunFetch)
	ctrl.Post("/enrich", control.RunEnrich)
	ctrl.Post("/integrate/:name", control.RunIntegrator)
	ctrl.Post("/consolidate", control.RunConsolidate)
	ctrl.Post("/shutdown", control.Shutdown)
}
