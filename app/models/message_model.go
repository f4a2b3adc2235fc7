package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentDetails is embedded in a chat message that records a payment.
type PaymentDetails struct {
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
	Receipt string `json:"receipt,omitempty"`
}

// Message is one chat message between two users. Payment lifecycle events
// show up in the conversation as messages with the payment flags set.
type Message struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	SenderID         uuid.UUID       `json:"senderId" db:"sender_id"`
	ReceiverID       uuid.UUID       `json:"receiverId" db:"receiver_id"`
	Text             string          `json:"text" db:"text"`
	Image            *string         `json:"image,omitempty" db:"image"`
	IsPaymentMessage bool            `json:"isPaymentMessage" db:"is_payment_message"`
	PaymentDetails   *PaymentDetails `json:"paymentDetails,omitempty"`
	IsPaymentRequest bool            `json:"isPaymentRequest" db:"is_payment_request"`
	PaymentRequestID *uuid.UUID      `json:"paymentRequestId,omitempty" db:"payment_request_id"`
	IsPaymentUpdate  bool            `json:"isPaymentUpdate" db:"is_payment_update"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
}

type CreateMessageRequest struct {
	ReceiverID string  `json:"receiverId" validate:"required"`
	Text       string  `json:"text"`
	Image      *string `json:"image,omitempty"`
}
