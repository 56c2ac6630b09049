package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	mw "github.com/newsbrief-ai/newsbrief/internal/middleware"
)

// SetupRoutes wires all endpoints onto the app.
func SetupRoutes(app *fiber.App, h *Handlers, adminKey string) {
	app.Use(recover.New())
	app.Use(mw.RequestLogger())

	v1 := app.Group("/api/v1")
	v1.Get("/health", h.HealthCheck)

	sources := v1.Group("/sources")
	sources.Get("/", h.ListSources)
	sources.Post("/", h.CreateSource)
	sources.Put("/:id", h.UpdateSource)
	sources.Delete("/:id", h.DeleteSource)

	v1.Get("/items", h.ListItems)

	reports := v1.Group("/reports")
	reports.Get("/", h.ListReports)
	reports.Get("/latest", h.LatestReport)
	reports.Get("/:id", h.GetReport)

	admin := v1.Group("/admin", mw.AdminOnly(adminKey))
	admin.Post("/collect", h.TriggerCollect)
	admin.Post("/process", h.TriggerProcess)
	admin.Post("/generate", h.TriggerGenerate)
	admin.Post("/pipeline", h.TriggerPipeline)
	admin.Post("/cache/clear", h.ClearSeenCache)
	admin.Post("/reports/:id/publish", h.PublishReport)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})
}
