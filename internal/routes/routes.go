package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fleetwatch/fleetwatch/internal/handlers"
)

func Setup(app *fiber.App, fleet *handlers.FleetHandler) {
	app.Get("/health", fleet.Health)

	api := app.Group("/api")
	api.Get("/fleet/scores", fleet.GetScores)
	api.Get("/fleet/best", fleet.GetBestHost)
	api.Get("/fleet/cluster", fleet.GetCluster)
}
