package controllers

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/wekesaoliver/NexaChat-App/app/models"
	"github.com/wekesaoliver/NexaChat-App/app/services"
	"github.com/wekesaoliver/NexaChat-App/pkg/mpesa"
)

type PaymentController struct {
	Payments *services.PaymentService
}

// Initiate starts an STK push. Validation failures come back with the list
// of missing fields; missing server credentials come back as a 500 with the
// exact variable names so a misdeploy is obvious.
func (pc *PaymentController) Initiate(c *fiber.Ctx) error {
	req := &models.InitiatePaymentRequest{}
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}

	data, err := pc.Payments.Initiate(c.Context(), req)
	if err != nil {
		return paymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment initiated successfully",
		"data":    data,
	})
}

// Callback receives the provider's asynchronous result. The provider
// retries on non-2xx, so anything already handled (including a duplicate
// delivery) must answer 200; only an unknown transaction or a store fault
// may deviate.
func (pc *PaymentController) Callback(c *fiber.Ctx) error {
	if secret := os.Getenv("MPESA_CALLBACK_SECRET"); secret != "" && c.Query("token") != secret {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "invalid callback token"})
	}

	envelope := &models.CallbackEnvelope{}
	if err := c.BodyParser(envelope); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}
	if envelope.Body.STKCallback == nil {
		return c.JSON(fiber.Map{"success": true})
	}

	if err := pc.Payments.Reconcile(c.Context(), envelope.Body.STKCallback); err != nil {
		var notFound *services.NotFoundError
		if errors.As(err, &notFound) {
			log.WithField("checkout_request_id", envelope.Body.STKCallback.CheckoutRequestID).
				Error("callback for unknown transaction")
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Transaction not found"})
		}
		log.WithError(err).Error("failed to process callback")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to process callback"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// Status is the polling endpoint backing the client's fallback loop.
func (pc *PaymentController) Status(c *fiber.Ctx) error {
	req := &models.StatusCheckRequest{}
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}

	outcome, err := pc.Payments.QueryStatus(c.Context(), req.CheckoutRequestID)
	if err != nil {
		return paymentError(c, err)
	}

	resp := fiber.Map{"success": true, "data": outcome.Data}
	if outcome.Transaction != nil {
		resp["transaction"] = outcome.Transaction
	}
	return c.JSON(resp)
}

// Test reports which gateway credentials are present without exposing their
// values.
func (pc *PaymentController) Test(c *fiber.Ctx) error {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "Not set"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "M-Pesa API route is working",
		"env": fiber.Map{
			"consumerKeyExists":    os.Getenv("MPESA_CONSUMER_KEY") != "",
			"consumerSecretExists": os.Getenv("MPESA_CONSUMER_SECRET") != "",
			"passkeyExists":        os.Getenv("MPESA_PASSKEY") != "",
			"shortcodeExists":      os.Getenv("MPESA_SHORTCODE") != "",
			"appUrl":               appURL,
		},
	})
}

func paymentError(c *fiber.Ctx, err error) error {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": validation.Message,
			"missing": validation.Missing,
		})
	}

	var config *mpesa.ConfigError
	if errors.As(err, &config) {
		log.WithField("missing", config.Missing).Error("M-Pesa credentials not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Server configuration error: Missing M-Pesa credentials",
			"missing": config.Missing,
		})
	}

	log.WithError(err).Error("payment operation failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}
