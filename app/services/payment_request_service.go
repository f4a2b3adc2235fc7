package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wekesaoliver/NexaChat-App/app/models"
	"github.com/wekesaoliver/NexaChat-App/pkg/metrics"
)

// PaymentRequestStore persists money-asks. MarkRejected and MarkPaid are
// guarded flips: false means the request had already left pending.
type PaymentRequestStore interface {
	CreatePaymentRequest(r *models.PaymentRequest) error
	GetByID(id uuid.UUID) (*models.PaymentRequest, error)
	ListByUser(userID uuid.UUID) ([]models.PaymentRequest, error)
	MarkRejected(id uuid.UUID) (bool, error)
	MarkPaid(id uuid.UUID, transactionID string) (bool, error)
}

// PaymentRequestService handles the lighter "please pay me" flow: no
// gateway involvement until the counterparty accepts and pays.
type PaymentRequestService struct {
	Requests PaymentRequestStore
	Messages MessageStore
	Notify   Notifier
}

func (s *PaymentRequestService) Create(req *models.CreatePaymentRequest) (*models.PaymentRequest, error) {
	missing := []string{}
	if req.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if req.Reason == "" {
		missing = append(missing, "reason")
	}
	if req.RequesterID == "" {
		missing = append(missing, "requesterId")
	}
	if req.RecipientID == "" {
		missing = append(missing, "recipientId")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Message: "All fields are required", Missing: missing}
	}

	requesterID, err := uuid.Parse(req.RequesterID)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid requester id", Missing: []string{"requesterId"}}
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid recipient id", Missing: []string{"recipientId"}}
	}

	now := time.Now()
	pr := &models.PaymentRequest{
		ID:          uuid.New(),
		Amount:      req.Amount,
		Reason:      req.Reason,
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      models.PaymentRequestStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Requests.CreatePaymentRequest(pr); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	metrics.PaymentRequests.WithLabelValues("created").Inc()

	msg := &models.Message{
		ID:               uuid.New(),
		SenderID:         requesterID,
		ReceiverID:       recipientID,
		Text:             fmt.Sprintf("Payment request: %s - KES %d", pr.Reason, pr.Amount),
		IsPaymentRequest: true,
		PaymentRequestID: &pr.ID,
		CreatedAt:        now,
	}
	if err := s.Messages.CreateMessage(msg); err != nil {
		log.WithError(err).WithField("payment_request_id", pr.ID).
			Error("failed to create payment request chat message")
	}

	s.Notify.EmitToUser(recipientID.String(), "payment_request_received", pr)

	return pr, nil
}

func (s *PaymentRequestService) ListByUser(userID uuid.UUID) ([]models.PaymentRequest, error) {
	out, err := s.Requests.ListByUser(userID)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return out, nil
}

// Reject declines a pending request. Re-rejecting or rejecting an already
// paid request is a no-op for state and side effects.
func (s *PaymentRequestService) Reject(id uuid.UUID) (*models.PaymentRequest, error) {
	pr, err := s.Requests.GetByID(id)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if pr == nil {
		return nil, &NotFoundError{Resource: "payment request", ID: id.String()}
	}

	applied, err := s.Requests.MarkRejected(id)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if !applied {
		return pr, nil
	}
	pr.Status = models.PaymentRequestStatusRejected
	metrics.PaymentRequests.WithLabelValues("rejected").Inc()

	msg := &models.Message{
		ID:              uuid.New(),
		SenderID:        pr.RecipientID,
		ReceiverID:      pr.RequesterID,
		Text:            fmt.Sprintf("Your payment request of KES %d for %q was rejected.", pr.Amount, pr.Reason),
		IsPaymentUpdate: true,
		CreatedAt:       time.Now(),
	}
	if err := s.Messages.CreateMessage(msg); err != nil {
		log.WithError(err).WithField("payment_request_id", pr.ID).
			Error("failed to create rejection chat message")
	}

	s.Notify.EmitToUser(pr.RequesterID.String(), "payment_request_updated", pr)

	return pr, nil
}

// Pay marks a pending request paid and links the transaction that settled
// it.
func (s *PaymentRequestService) Pay(id uuid.UUID, transactionID string) (*models.PaymentRequest, error) {
	if transactionID == "" {
		return nil, &ValidationError{Message: "Transaction id is required", Missing: []string{"transactionId"}}
	}

	pr, err := s.Requests.GetByID(id)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if pr == nil {
		return nil, &NotFoundError{Resource: "payment request", ID: id.String()}
	}

	applied, err := s.Requests.MarkPaid(id, transactionID)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if !applied {
		return pr, nil
	}
	pr.Status = models.PaymentRequestStatusPaid
	pr.TransactionID = &transactionID
	metrics.PaymentRequests.WithLabelValues("paid").Inc()

	msg := &models.Message{
		ID:              uuid.New(),
		SenderID:        pr.RecipientID,
		ReceiverID:      pr.RequesterID,
		Text:            fmt.Sprintf("Your payment request of KES %d for %q was paid.", pr.Amount, pr.Reason),
		IsPaymentUpdate: true,
		CreatedAt:       time.Now(),
	}
	if err := s.Messages.CreateMessage(msg); err != nil {
		log.WithError(err).WithField("payment_request_id", pr.ID).
			Error("failed to create payment update chat message")
	}

	s.Notify.EmitToUser(pr.RequesterID.String(), "payment_request_updated", pr)

	return pr, nil
}
