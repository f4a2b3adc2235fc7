package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wekesaoliver/NexaChat-App/app/models"
	"github.com/wekesaoliver/NexaChat-App/app/services"
	"github.com/wekesaoliver/NexaChat-App/pkg/mpesa"
)

type stubGateway struct{}

func (stubGateway) InitiateSTKPush(ctx context.Context, phone string, amount float64, description string) (*mpesa.STKPushResponse, error) {
	return &mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_1", MerchantRequestID: "mr-1", ResponseCode: "0"}, nil
}

func (stubGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.StatusResult, error) {
	return &mpesa.StatusResult{ResultCode: "1", ResultDesc: "Transaction still processing"}, nil
}

type stubTransactionStore struct {
	mu   sync.Mutex
	txns map[string]*models.Transaction
}

func (s *stubTransactionStore) CreateTransaction(t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.txns[t.CheckoutRequestID] = &cp
	return nil
}

func (s *stubTransactionStore) GetByCheckoutRequestID(id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *stubTransactionStore) MarkCompleted(id, receipt, resultCode, resultDesc string, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok || t.Status != models.TransactionStatusPending {
		return false, nil
	}
	t.Status = models.TransactionStatusCompleted
	t.ReceiptNumber = &receipt
	return true, nil
}

func (s *stubTransactionStore) MarkFailed(id, resultCode, resultDesc string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok || t.Status != models.TransactionStatusPending {
		return false, nil
	}
	t.Status = models.TransactionStatusFailed
	return true, nil
}

type stubMessageStore struct{}

func (stubMessageStore) CreateMessage(m *models.Message) error { return nil }

type stubNotifier struct{}

func (stubNotifier) EmitToUser(userID, event string, payload interface{}) bool { return false }

func newPaymentTestApp() (*fiber.App, *stubTransactionStore) {
	store := &stubTransactionStore{txns: map[string]*models.Transaction{}}
	svc := &services.PaymentService{
		Gateway:      stubGateway{},
		Transactions: store,
		Messages:     stubMessageStore{},
		Notify:       stubNotifier{},
	}
	pc := &PaymentController{Payments: svc}

	app := fiber.New()
	app.Post("/api/mpesa/initiate", pc.Initiate)
	app.Post("/api/mpesa/callback", pc.Callback)
	app.Post("/api/mpesa/status", pc.Status)
	return app, store
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	decoded := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func callbackEnvelope(resultCode int) map[string]interface{} {
	return map[string]interface{}{
		"Body": map[string]interface{}{
			"stkCallback": map[string]interface{}{
				"MerchantRequestID": "mr-1",
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode":        resultCode,
				"ResultDesc":        "The service request is processed successfully.",
				"CallbackMetadata": map[string]interface{}{
					"Item": []map[string]interface{}{
						{"Name": "MpesaReceiptNumber", "Value": "ABC123XYZ"},
					},
				},
			},
		},
	}
}

func seedPending(store *stubTransactionStore) {
	store.CreateTransaction(&models.Transaction{
		CheckoutRequestID: "ws_CO_1",
		Status:            models.TransactionStatusPending,
		Amount:            101,
	})
}

func TestInitiateEndpoint(t *testing.T) {
	t.Run("missing fields answer 400 with the field list", func(t *testing.T) {
		app, _ := newPaymentTestApp()

		resp, body := postJSON(t, app, "/api/mpesa/initiate", map[string]interface{}{
			"phoneNumber": "0712345678",
			"amount":      100,
			"description": "Lunch",
			"senderId":    "11111111-1111-1111-1111-111111111111",
		})
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		missing := body["missing"].([]interface{})
		if len(missing) != 1 || missing[0] != "recipientId" {
			t.Errorf("missing = %v, want [recipientId]", missing)
		}
	})

	t.Run("valid request answers 200 with the checkout id", func(t *testing.T) {
		app, _ := newPaymentTestApp()

		resp, body := postJSON(t, app, "/api/mpesa/initiate", map[string]interface{}{
			"phoneNumber": "0712345678",
			"amount":      100.6,
			"description": "Lunch",
			"recipientId": "22222222-2222-2222-2222-222222222222",
			"senderId":    "11111111-1111-1111-1111-111111111111",
		})
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		data := body["data"].(map[string]interface{})
		if data["checkoutRequestID"] != "ws_CO_1" {
			t.Errorf("checkoutRequestID = %v, want ws_CO_1", data["checkoutRequestID"])
		}
	})
}

func TestCallbackEndpoint(t *testing.T) {
	t.Run("acknowledges a handled callback with 200", func(t *testing.T) {
		app, store := newPaymentTestApp()
		seedPending(store)

		resp, body := postJSON(t, app, "/api/mpesa/callback", callbackEnvelope(0))
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if body["success"] != true {
			t.Errorf("success = %v, want true", body["success"])
		}
		txn, _ := store.GetByCheckoutRequestID("ws_CO_1")
		if txn.Status != models.TransactionStatusCompleted {
			t.Errorf("Status = %q, want completed", txn.Status)
		}
	})

	t.Run("acknowledges a duplicate delivery with 200", func(t *testing.T) {
		app, store := newPaymentTestApp()
		seedPending(store)

		postJSON(t, app, "/api/mpesa/callback", callbackEnvelope(0))
		resp, body := postJSON(t, app, "/api/mpesa/callback", callbackEnvelope(0))
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("duplicate status = %d, want 200", resp.StatusCode)
		}
		if body["success"] != true {
			t.Errorf("success = %v, want true", body["success"])
		}
	})

	t.Run("unknown transaction answers 404", func(t *testing.T) {
		app, _ := newPaymentTestApp()

		resp, _ := postJSON(t, app, "/api/mpesa/callback", callbackEnvelope(0))
		if resp.StatusCode != fiber.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("an empty envelope is acknowledged", func(t *testing.T) {
		app, _ := newPaymentTestApp()

		resp, body := postJSON(t, app, "/api/mpesa/callback", map[string]interface{}{"Body": map[string]interface{}{}})
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if body["success"] != true {
			t.Errorf("success = %v, want true", body["success"])
		}
	})

	t.Run("rejects a bad token when a callback secret is configured", func(t *testing.T) {
		t.Setenv("MPESA_CALLBACK_SECRET", "s3cret")
		app, store := newPaymentTestApp()
		seedPending(store)

		resp, _ := postJSON(t, app, "/api/mpesa/callback", callbackEnvelope(0))
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}

		resp, _ = postJSON(t, app, "/api/mpesa/callback?token=s3cret", callbackEnvelope(0))
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("status with token = %d, want 200", resp.StatusCode)
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	t.Run("empty checkout id answers 400", func(t *testing.T) {
		app, _ := newPaymentTestApp()

		resp, _ := postJSON(t, app, "/api/mpesa/status", map[string]interface{}{})
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("pending transaction returns the live gateway answer", func(t *testing.T) {
		app, store := newPaymentTestApp()
		seedPending(store)

		resp, body := postJSON(t, app, "/api/mpesa/status", map[string]interface{}{"checkoutRequestID": "ws_CO_1"})
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		data := body["data"].(map[string]interface{})
		if data["ResultCode"] != "1" {
			t.Errorf("ResultCode = %v, want 1", data["ResultCode"])
		}
	})
}
