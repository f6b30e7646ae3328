package routes

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkup/controllers"
)

func SetupRoutes(app *fiber.App, pc *controllers.PresenceController, oc *controllers.OfferController, mc *controllers.MatchController, plc *controllers.PlaceController) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// generic routes
	api.Get("/ping", controllers.Ping)

	api.Use(controllers.RequireIdentity())

	// presence routes
	api.Post("/presence/start", pc.Start)
	api.Post("/presence/end", pc.End)

	// offer routes
	api.Post("/offers", oc.Create)
	api.Post("/offers/:offerId/respond", oc.Respond)
	api.Post("/offers/:offerId/cancel", oc.Cancel)

	// match routes
	api.Post("/matches/:matchId/confirm-place", mc.ConfirmPlace)
	api.Post("/matches/:matchId/arrived", mc.Arrived)
	api.Post("/matches/:matchId/complete", mc.Complete)
	api.Post("/matches/:matchId/cancel", mc.Cancel)

	// place routes
	api.Post("/places", plc.Create)
}
