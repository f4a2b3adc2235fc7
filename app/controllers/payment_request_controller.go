package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/wekesaoliver/NexaChat-App/app/models"
	"github.com/wekesaoliver/NexaChat-App/app/services"
)

type PaymentRequestController struct {
	Requests *services.PaymentRequestService
}

func (prc *PaymentRequestController) Create(c *fiber.Ctx) error {
	req := &models.CreatePaymentRequest{}
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}

	pr, err := prc.Requests.Create(req)
	if err != nil {
		return paymentRequestError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "Payment request sent successfully",
		"paymentRequest": pr,
	})
}

func (prc *PaymentRequestController) List(c *fiber.Ctx) error {
	userIDStr := c.Query("userId")
	if userIDStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "User ID is required"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid userId"})
	}

	out, err := prc.Requests.ListByUser(userID)
	if err != nil {
		return paymentRequestError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "paymentRequests": out})
}

func (prc *PaymentRequestController) Reject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid id"})
	}

	pr, err := prc.Requests.Reject(id)
	if err != nil {
		return paymentRequestError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "Payment request rejected successfully",
		"paymentRequest": pr,
	})
}

func (prc *PaymentRequestController) Pay(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid id"})
	}

	req := &models.PayPaymentRequest{}
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid body"})
	}

	pr, err := prc.Requests.Pay(id, req.TransactionID)
	if err != nil {
		return paymentRequestError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "Payment request marked as paid",
		"paymentRequest": pr,
	})
}

func paymentRequestError(c *fiber.Ctx, err error) error {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": validation.Message,
			"missing": validation.Missing,
		})
	}
	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Payment request not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": err.Error()})
}
