package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wekesaoliver/NexaChat-App/app/models"
	"github.com/wekesaoliver/NexaChat-App/pkg/metrics"
	"github.com/wekesaoliver/NexaChat-App/pkg/mpesa"
)

// Gateway is the payment provider boundary.
type Gateway interface {
	InitiateSTKPush(ctx context.Context, phone string, amount float64, description string) (*mpesa.STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.StatusResult, error)
}

// TransactionStore is the durable record of payment attempts. MarkCompleted
// and MarkFailed are compare-and-set operations: they report false when the
// transaction had already left pending.
type TransactionStore interface {
	CreateTransaction(t *models.Transaction) error
	GetByCheckoutRequestID(checkoutRequestID string) (*models.Transaction, error)
	MarkCompleted(checkoutRequestID, receipt, resultCode, resultDesc string, completedAt time.Time) (bool, error)
	MarkFailed(checkoutRequestID, resultCode, resultDesc string) (bool, error)
}

type MessageStore interface {
	CreateMessage(m *models.Message) error
}

// Notifier pushes an event to a user's live connection, if any. Fire and
// forget: the bool is informational, callers never block on delivery.
type Notifier interface {
	EmitToUser(userID string, event string, payload interface{}) bool
}

// UserDirectory resolves display names for notifications; lookups are
// best-effort.
type UserDirectory interface {
	GetUserByID(id uuid.UUID) (*models.User, error)
}

// PaymentService coordinates the payment lifecycle: it is the only
// component that touches the gateway, the store, the chat log and the live
// channel together. Per-transaction state is partitioned by the provider's
// CheckoutRequestID; no in-process lock is held across gateway or store
// calls.
type PaymentService struct {
	Gateway      Gateway
	Transactions TransactionStore
	Messages     MessageStore
	Users        UserDirectory
	Notify       Notifier
}

// StatusData mirrors the provider-ish status fields returned to pollers.
type StatusData struct {
	ResultCode         string `json:"ResultCode"`
	ResultDesc         string `json:"ResultDesc"`
	MpesaReceiptNumber string `json:"mpesaReceiptNumber,omitempty"`
}

type TransactionSummary struct {
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type StatusOutcome struct {
	Data        StatusData
	Transaction *TransactionSummary
}

// Initiate validates the request, submits the STK push and records the
// pending transaction. Persistence failure after a successful gateway call
// is logged and swallowed: the payer's phone is already ringing and there
// is no way to roll that back, so the response must still reach the caller.
func (s *PaymentService) Initiate(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentData, error) {
	if missing := req.MissingFields(); len(missing) > 0 {
		return nil, &ValidationError{Message: "All fields are required", Missing: missing}
	}

	senderID, err := uuid.Parse(req.SenderID)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid sender id", Missing: []string{"senderId"}}
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid recipient id", Missing: []string{"recipientId"}}
	}

	resp, err := s.Gateway.InitiateSTKPush(ctx, req.PhoneNumber, req.Amount, req.Description)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	txn := &models.Transaction{
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Amount:            mpesa.RoundAmount(req.Amount),
		PhoneNumber:       req.PhoneNumber,
		SenderID:          senderID,
		RecipientID:       recipientID,
		Description:       req.Description,
		Status:            models.TransactionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Transactions.CreateTransaction(txn); err != nil {
		log.WithError(err).WithField("checkout_request_id", resp.CheckoutRequestID).
			Error("failed to persist pending transaction, continuing anyway")
	}

	metrics.PaymentsInitiated.Inc()

	s.Notify.EmitToUser(recipientID.String(), "payment_initiated", map[string]interface{}{
		"checkoutRequestID": resp.CheckoutRequestID,
		"senderId":          senderID.String(),
		"amount":            txn.Amount,
		"description":       req.Description,
	})

	return &models.InitiatePaymentData{
		CheckoutRequestID:   resp.CheckoutRequestID,
		MerchantRequestID:   resp.MerchantRequestID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
	}, nil
}

// Reconcile applies one terminal gateway callback. It is idempotent: a
// transaction that has already left pending is left untouched and no side
// effects fire again. The store's compare-and-set is what closes the race
// between two concurrent deliveries of the same callback.
func (s *PaymentService) Reconcile(ctx context.Context, cb *models.STKCallback) error {
	txn, err := s.Transactions.GetByCheckoutRequestID(cb.CheckoutRequestID)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	if txn == nil {
		return &NotFoundError{Resource: "transaction", ID: cb.CheckoutRequestID}
	}
	if txn.Terminal() {
		log.WithFields(log.Fields{
			"checkout_request_id": cb.CheckoutRequestID,
			"status":              txn.Status,
		}).Info("duplicate callback for settled transaction, ignoring")
		metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
		return nil
	}

	if cb.ResultCode == 0 {
		return s.reconcileSuccess(txn, cb)
	}
	return s.reconcileFailure(txn, cb)
}

func (s *PaymentService) reconcileSuccess(txn *models.Transaction, cb *models.STKCallback) error {
	meta := cb.CallbackMetadata.Fold()
	receipt := metaString(meta["MpesaReceiptNumber"])
	completedAt := metaTime(meta["TransactionDate"])

	applied, err := s.Transactions.MarkCompleted(cb.CheckoutRequestID, receipt, fmt.Sprintf("%d", cb.ResultCode), cb.ResultDesc, completedAt)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	if !applied {
		// A concurrent delivery won the compare-and-set; its side effects
		// already ran.
		metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
		return nil
	}
	metrics.PaymentCallbacks.WithLabelValues("completed").Inc()

	senderName := ""
	if s.Users != nil {
		if sender, err := s.Users.GetUserByID(txn.SenderID); err == nil && sender != nil {
			senderName = sender.FullName
		}
	}

	s.Notify.EmitToUser(txn.RecipientID.String(), "payment_completed", map[string]interface{}{
		"transactionId": txn.CheckoutRequestID,
		"senderId":      txn.SenderID.String(),
		"senderName":    senderName,
		"amount":        txn.Amount,
		"description":   txn.Description,
		"receipt":       receipt,
	})

	msg := &models.Message{
		ID:               uuid.New(),
		SenderID:         txn.SenderID,
		ReceiverID:       txn.RecipientID,
		Text:             fmt.Sprintf("Payment of KES %d sent successfully.", txn.Amount),
		IsPaymentMessage: true,
		PaymentDetails: &models.PaymentDetails{
			Amount:  txn.Amount,
			Status:  models.TransactionStatusCompleted,
			Receipt: receipt,
		},
		CreatedAt: time.Now(),
	}
	if err := s.Messages.CreateMessage(msg); err != nil {
		log.WithError(err).WithField("checkout_request_id", txn.CheckoutRequestID).
			Error("failed to create payment chat message")
	}
	return nil
}

func (s *PaymentService) reconcileFailure(txn *models.Transaction, cb *models.STKCallback) error {
	applied, err := s.Transactions.MarkFailed(cb.CheckoutRequestID, fmt.Sprintf("%d", cb.ResultCode), cb.ResultDesc)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	if !applied {
		metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
		return nil
	}
	metrics.PaymentCallbacks.WithLabelValues("failed").Inc()

	s.Notify.EmitToUser(txn.SenderID.String(), "payment_failed", map[string]interface{}{
		"transactionId": txn.CheckoutRequestID,
		"reason":        cb.ResultDesc,
	})
	return nil
}

// QueryStatus is the polling read path. A stored terminal state is returned
// without touching the gateway; otherwise the gateway is asked live. It
// never writes: only Reconcile transitions state, so a terminal result seen
// here before the callback lands stays observational.
func (s *PaymentService) QueryStatus(ctx context.Context, checkoutRequestID string) (*StatusOutcome, error) {
	if checkoutRequestID == "" {
		return nil, &ValidationError{Message: "Checkout request ID is required", Missing: []string{"checkoutRequestID"}}
	}

	txn, err := s.Transactions.GetByCheckoutRequestID(checkoutRequestID)
	if err != nil {
		// Read failure here must not strand the poller; fall through to the
		// gateway like the store never answered.
		log.WithError(err).WithField("checkout_request_id", checkoutRequestID).
			Error("transaction lookup failed, querying gateway instead")
		txn = nil
	}
	if txn != nil && txn.Terminal() {
		data := StatusData{ResultCode: "1", ResultDesc: "Failed"}
		if txn.Status == models.TransactionStatusCompleted {
			data.ResultCode = "0"
			data.ResultDesc = "Success"
		}
		if txn.ResultDescription != nil && *txn.ResultDescription != "" {
			data.ResultDesc = *txn.ResultDescription
		}
		if txn.ReceiptNumber != nil {
			data.MpesaReceiptNumber = *txn.ReceiptNumber
		}
		return &StatusOutcome{
			Data: data,
			Transaction: &TransactionSummary{
				Status:      txn.Status,
				Amount:      txn.Amount,
				Description: txn.Description,
			},
		}, nil
	}

	live, err := s.Gateway.QueryStatus(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	return &StatusOutcome{
		Data: StatusData{ResultCode: live.ResultCode, ResultDesc: live.ResultDesc},
	}, nil
}

func metaString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return ""
	}
}

// metaTime parses the provider's numeric YYYYMMDDHHMMSS transaction date,
// falling back to now when absent or malformed.
func metaTime(v interface{}) time.Time {
	raw := metaString(v)
	if raw != "" {
		if t, err := time.ParseInLocation("20060102150405", raw, time.Local); err == nil {
			return t
		}
	}
	return time.Now()
}
