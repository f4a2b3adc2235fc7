package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction is one payment attempt, keyed by the provider-issued
// CheckoutRequestID. Once status leaves pending it never changes again.
type Transaction struct {
	CheckoutRequestID string     `json:"checkoutRequestID" db:"checkout_request_id"`
	MerchantRequestID string     `json:"merchantRequestID" db:"merchant_request_id"`
	Amount            int64      `json:"amount" db:"amount"`
	PhoneNumber       string     `json:"phoneNumber" db:"phone_number"`
	SenderID          uuid.UUID  `json:"senderId" db:"sender_id"`
	RecipientID       uuid.UUID  `json:"recipientId" db:"recipient_id"`
	Description       string     `json:"description" db:"description"`
	Status            string     `json:"status" db:"status"`
	ReceiptNumber     *string    `json:"mpesaReceiptNumber,omitempty" db:"receipt_number"`
	ResultCode        *string    `json:"resultCode,omitempty" db:"result_code"`
	ResultDescription *string    `json:"resultDescription,omitempty" db:"result_description"`
	CompletedAt       *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}

func (t *Transaction) Terminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

type InitiatePaymentRequest struct {
	PhoneNumber string  `json:"phoneNumber" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"required"`
	RecipientID string  `json:"recipientId" validate:"required"`
	SenderID    string  `json:"senderId" validate:"required"`
}

// MissingFields enumerates the absent required fields in request order.
func (r *InitiatePaymentRequest) MissingFields() []string {
	missing := []string{}
	if r.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if r.Amount == 0 {
		missing = append(missing, "amount")
	}
	if r.Description == "" {
		missing = append(missing, "description")
	}
	if r.RecipientID == "" {
		missing = append(missing, "recipientId")
	}
	if r.SenderID == "" {
		missing = append(missing, "senderId")
	}
	return missing
}

// InitiatePaymentData is the data object returned to the caller after a
// successful initiation.
type InitiatePaymentData struct {
	CheckoutRequestID   string `json:"checkoutRequestID"`
	MerchantRequestID   string `json:"merchantRequestID"`
	ResponseCode        string `json:"responseCode"`
	ResponseDescription string `json:"responseDescription"`
	CustomerMessage     string `json:"customerMessage"`
}

type StatusCheckRequest struct {
	CheckoutRequestID string `json:"checkoutRequestID"`
}

// CallbackEnvelope mirrors the Daraja callback wire format.
type CallbackEnvelope struct {
	Body CallbackBody `json:"Body"`
}

type CallbackBody struct {
	STKCallback *STKCallback `json:"stkCallback"`
}

type STKCallback struct {
	MerchantRequestID string           `json:"MerchantRequestID"`
	CheckoutRequestID string           `json:"CheckoutRequestID"`
	ResultCode        int              `json:"ResultCode"`
	ResultDesc        string           `json:"ResultDesc"`
	CallbackMetadata  CallbackMetadata `json:"CallbackMetadata"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// Fold turns the provider's name/value item list into a lookup map.
func (m CallbackMetadata) Fold() map[string]interface{} {
	out := make(map[string]interface{}, len(m.Item))
	for _, item := range m.Item {
		out[item.Name] = item.Value
	}
	return out
}
