package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/wekesaoliver/NexaChat-App/app/controllers"
	"github.com/wekesaoliver/NexaChat-App/pkg/middleware"
)

func RegisterChatRoutes(app *fiber.App, cc *controllers.ChatController) {
	api := app.Group("/api/messages", middleware.JWTProtected())
	api.Post("/", cc.PostMessage)
	api.Get("/online", cc.OnlineUsers)
	api.Get("/:otherUserId", cc.GetMessages)

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		cc.WsHandler(c)
	}))
}
