package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentRequestStatusPending  = "pending"
	PaymentRequestStatusPaid     = "paid"
	PaymentRequestStatusRejected = "rejected"
)

// PaymentRequest is a money-ask between two users. The requester creates
// it; only the counterparty's accept or reject moves it out of pending.
type PaymentRequest struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Amount        int64     `json:"amount" db:"amount"`
	Reason        string    `json:"reason" db:"reason"`
	RequesterID   uuid.UUID `json:"requesterId" db:"requester_id"`
	RecipientID   uuid.UUID `json:"recipientId" db:"recipient_id"`
	Status        string    `json:"status" db:"status"`
	TransactionID *string   `json:"transactionId,omitempty" db:"transaction_id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

type CreatePaymentRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Reason      string `json:"reason" validate:"required"`
	RequesterID string `json:"requesterId" validate:"required"`
	RecipientID string `json:"recipientId" validate:"required"`
}

type PayPaymentRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
}
