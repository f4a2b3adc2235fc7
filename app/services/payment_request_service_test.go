package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/wekesaoliver/NexaChat-App/app/models"
)

type mockPaymentRequestStore struct {
	mu        sync.Mutex
	requests  map[uuid.UUID]*models.PaymentRequest
	createErr error
}

func newMockPaymentRequestStore() *mockPaymentRequestStore {
	return &mockPaymentRequestStore{requests: map[uuid.UUID]*models.PaymentRequest{}}
}

func (s *mockPaymentRequestStore) CreatePaymentRequest(r *models.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *mockPaymentRequestStore) GetByID(id uuid.UUID) (*models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *mockPaymentRequestStore) ListByUser(userID uuid.UUID) ([]models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.PaymentRequest{}
	for _, r := range s.requests {
		if r.RequesterID == userID || r.RecipientID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *mockPaymentRequestStore) MarkRejected(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != models.PaymentRequestStatusPending {
		return false, nil
	}
	r.Status = models.PaymentRequestStatusRejected
	return true, nil
}

func (s *mockPaymentRequestStore) MarkPaid(id uuid.UUID, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != models.PaymentRequestStatusPending {
		return false, nil
	}
	r.Status = models.PaymentRequestStatusPaid
	r.TransactionID = &transactionID
	return true, nil
}

func newRequestTestService() (*PaymentRequestService, *mockPaymentRequestStore, *mockMessageStore, *mockNotifier) {
	store := newMockPaymentRequestStore()
	msgs := &mockMessageStore{}
	notify := &mockNotifier{}
	svc := &PaymentRequestService{Requests: store, Messages: msgs, Notify: notify}
	return svc, store, msgs, notify
}

func validCreateRequest() *models.CreatePaymentRequest {
	return &models.CreatePaymentRequest{
		Amount:      250,
		Reason:      "Shared cab fare",
		RequesterID: testSenderID.String(),
		RecipientID: testRecipientID.String(),
	}
}

func TestCreatePaymentRequest(t *testing.T) {
	t.Run("rejects missing fields", func(t *testing.T) {
		svc, _, _, _ := newRequestTestService()
		req := validCreateRequest()
		req.Amount = 0
		req.Reason = ""

		_, err := svc.Create(req)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(verr.Missing) != 2 || verr.Missing[0] != "amount" || verr.Missing[1] != "reason" {
			t.Errorf("Missing = %v, want [amount reason]", verr.Missing)
		}
	})

	t.Run("persists, posts a chat message and notifies the recipient", func(t *testing.T) {
		svc, store, msgs, notify := newRequestTestService()

		pr, err := svc.Create(validCreateRequest())
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if pr.Status != models.PaymentRequestStatusPending {
			t.Errorf("Status = %q, want pending", pr.Status)
		}

		stored, _ := store.GetByID(pr.ID)
		if stored == nil {
			t.Fatal("request was not persisted")
		}

		if len(msgs.messages) != 1 {
			t.Fatalf("messages = %d, want 1", len(msgs.messages))
		}
		msg := msgs.messages[0]
		if !msg.IsPaymentRequest {
			t.Error("chat message is not flagged as a payment request")
		}
		if msg.PaymentRequestID == nil || *msg.PaymentRequestID != pr.ID {
			t.Errorf("message links %v, want %s", msg.PaymentRequestID, pr.ID)
		}

		events := notify.eventsNamed("payment_request_received")
		if len(events) != 1 || events[0].UserID != testRecipientID.String() {
			t.Errorf("events = %+v, want one to the recipient", events)
		}
	})

	t.Run("store failure surfaces as PersistenceError", func(t *testing.T) {
		svc, store, msgs, _ := newRequestTestService()
		store.createErr = errors.New("connection refused")

		_, err := svc.Create(validCreateRequest())
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			t.Fatalf("expected PersistenceError, got %v", err)
		}
		if len(msgs.messages) != 0 {
			t.Errorf("messages = %d, want 0", len(msgs.messages))
		}
	})
}

func TestRejectPaymentRequest(t *testing.T) {
	t.Run("unknown id is a NotFoundError", func(t *testing.T) {
		svc, _, _, _ := newRequestTestService()

		_, err := svc.Reject(uuid.New())
		var nferr *NotFoundError
		if !errors.As(err, &nferr) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("flips pending to rejected and tells the requester", func(t *testing.T) {
		svc, store, msgs, notify := newRequestTestService()
		pr, _ := svc.Create(validCreateRequest())

		out, err := svc.Reject(pr.ID)
		if err != nil {
			t.Fatalf("Reject failed: %v", err)
		}
		if out.Status != models.PaymentRequestStatusRejected {
			t.Errorf("Status = %q, want rejected", out.Status)
		}
		stored, _ := store.GetByID(pr.ID)
		if stored.Status != models.PaymentRequestStatusRejected {
			t.Errorf("stored Status = %q, want rejected", stored.Status)
		}

		// One create message plus one rejection update.
		if len(msgs.messages) != 2 {
			t.Fatalf("messages = %d, want 2", len(msgs.messages))
		}
		if !msgs.messages[1].IsPaymentUpdate {
			t.Error("rejection message is not flagged as a payment update")
		}

		events := notify.eventsNamed("payment_request_updated")
		if len(events) != 1 || events[0].UserID != testSenderID.String() {
			t.Errorf("events = %+v, want one to the requester", events)
		}
	})

	t.Run("re-rejecting is a no-op", func(t *testing.T) {
		svc, _, msgs, notify := newRequestTestService()
		pr, _ := svc.Create(validCreateRequest())

		if _, err := svc.Reject(pr.ID); err != nil {
			t.Fatalf("first Reject failed: %v", err)
		}
		if _, err := svc.Reject(pr.ID); err != nil {
			t.Fatalf("second Reject returned %v, want nil", err)
		}

		if len(msgs.messages) != 2 {
			t.Errorf("messages = %d, want 2 (no duplicate update)", len(msgs.messages))
		}
		if events := notify.eventsNamed("payment_request_updated"); len(events) != 1 {
			t.Errorf("payment_request_updated events = %d, want 1", len(events))
		}
	})
}

func TestPayPaymentRequest(t *testing.T) {
	t.Run("empty transaction id is a ValidationError", func(t *testing.T) {
		svc, _, _, _ := newRequestTestService()

		_, err := svc.Pay(uuid.New(), "")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("marks a pending request paid and links the transaction", func(t *testing.T) {
		svc, store, _, notify := newRequestTestService()
		pr, _ := svc.Create(validCreateRequest())

		out, err := svc.Pay(pr.ID, "ws_CO_1")
		if err != nil {
			t.Fatalf("Pay failed: %v", err)
		}
		if out.Status != models.PaymentRequestStatusPaid {
			t.Errorf("Status = %q, want paid", out.Status)
		}
		if out.TransactionID == nil || *out.TransactionID != "ws_CO_1" {
			t.Errorf("TransactionID = %v, want ws_CO_1", out.TransactionID)
		}

		stored, _ := store.GetByID(pr.ID)
		if stored.Status != models.PaymentRequestStatusPaid {
			t.Errorf("stored Status = %q, want paid", stored.Status)
		}

		events := notify.eventsNamed("payment_request_updated")
		if len(events) != 1 || events[0].UserID != testSenderID.String() {
			t.Errorf("events = %+v, want one to the requester", events)
		}
	})

	t.Run("a rejected request cannot be paid", func(t *testing.T) {
		svc, store, _, _ := newRequestTestService()
		pr, _ := svc.Create(validCreateRequest())
		if _, err := svc.Reject(pr.ID); err != nil {
			t.Fatalf("Reject failed: %v", err)
		}

		out, err := svc.Pay(pr.ID, "ws_CO_1")
		if err != nil {
			t.Fatalf("Pay returned %v, want nil no-op", err)
		}
		if out.Status != models.PaymentRequestStatusRejected {
			t.Errorf("Status = %q, want rejected to stick", out.Status)
		}
		stored, _ := store.GetByID(pr.ID)
		if stored.TransactionID != nil {
			t.Errorf("TransactionID = %v, want nil", stored.TransactionID)
		}
	})
}
