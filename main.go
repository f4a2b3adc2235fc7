package main

import (
	"os"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/wekesaoliver/NexaChat-App/app/controllers"
	"github.com/wekesaoliver/NexaChat-App/app/queries"
	"github.com/wekesaoliver/NexaChat-App/app/services"
	"github.com/wekesaoliver/NexaChat-App/pkg/database"
	"github.com/wekesaoliver/NexaChat-App/pkg/mpesa"
	"github.com/wekesaoliver/NexaChat-App/pkg/notify"
	"github.com/wekesaoliver/NexaChat-App/pkg/routes"
)

func main() {
	_ = godotenv.Load()

	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	mpesaCfg, err := mpesa.LoadConfig()
	if err != nil {
		// Chat still works without gateway credentials; every payment call
		// will answer with the missing variable names.
		log.WithError(err).Warn("M-Pesa credentials incomplete")
	}

	directory := notify.NewDirectory()

	paymentService := &services.PaymentService{
		Gateway:      mpesa.NewClient(mpesaCfg),
		Transactions: &queries.TransactionQueries{DB: db},
		Messages:     &queries.ChatQueries{DB: db},
		Users:        &queries.UserQueries{DB: db},
		Notify:       directory,
	}
	paymentRequestService := &services.PaymentRequestService{
		Requests: &queries.PaymentRequestQueries{DB: db},
		Messages: &queries.ChatQueries{DB: db},
		Notify:   directory,
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:5173, https://nexachat-app.onrender.com, https://nexachat-client.onrender.com",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("NexaChat payments backend")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.RegisterUserRoutes(app, &controllers.AuthController{Users: &queries.UserQueries{DB: db}})
	routes.RegisterChatRoutes(app, &controllers.ChatController{Directory: directory, Chats: &queries.ChatQueries{DB: db}})
	routes.RegisterPaymentRoutes(app, &controllers.PaymentController{Payments: paymentService})
	routes.RegisterPaymentRequestRoutes(app, &controllers.PaymentRequestController{Requests: paymentRequestService})

	port := os.Getenv("PORT")
	if port == "" {
		port = "5001"
	}
	log.Fatal(app.Listen(":" + port))
}
