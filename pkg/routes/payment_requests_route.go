package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wekesaoliver/NexaChat-App/app/controllers"
	"github.com/wekesaoliver/NexaChat-App/pkg/middleware"
)

func RegisterPaymentRequestRoutes(app *fiber.App, prc *controllers.PaymentRequestController) {
	api := app.Group("/api/payment-requests", middleware.JWTProtected())
	api.Post("/", prc.Create)
	api.Get("/", prc.List)
	api.Post("/:id/reject", prc.Reject)
	api.Post("/:id/pay", prc.Pay)
}
