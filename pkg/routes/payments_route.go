package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wekesaoliver/NexaChat-App/app/controllers"
)

func RegisterPaymentRoutes(app *fiber.App, pc *controllers.PaymentController) {
	api := app.Group("/api/mpesa")
	api.Get("/test", pc.Test)
	api.Post("/initiate", pc.Initiate)
	api.Post("/callback", pc.Callback)
	api.Post("/status", pc.Status)
}
