package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wekesaoliver/NexaChat-App/app/controllers"
)

func RegisterUserRoutes(app *fiber.App, ac *controllers.AuthController) {
	api := app.Group("/api/auth")
	api.Post("/register", ac.Register)
	api.Post("/login", ac.Login)
}
