package queries

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekesaoliver/NexaChat-App/app/models"
)

type PaymentRequestQueries struct {
	DB *sql.DB
}

func (q *PaymentRequestQueries) CreatePaymentRequest(r *models.PaymentRequest) error {
	query := `INSERT INTO payment_requests (id, amount, reason, requester_id, recipient_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := q.DB.Exec(query, r.ID, r.Amount, r.Reason, r.RequesterID, r.RecipientID, r.Status, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("unable to create payment request: %w", err)
	}
	return nil
}

// GetByID returns (nil, nil) when no such request exists.
func (q *PaymentRequestQueries) GetByID(id uuid.UUID) (*models.PaymentRequest, error) {
	r := models.PaymentRequest{}
	query := `SELECT id, amount, reason, requester_id, recipient_id, status, transaction_id, created_at, updated_at
		FROM payment_requests WHERE id = $1`
	err := q.DB.QueryRow(query, id).Scan(&r.ID, &r.Amount, &r.Reason, &r.RequesterID, &r.RecipientID, &r.Status, &r.TransactionID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to get payment request: %w", err)
	}
	return &r, nil
}

func (q *PaymentRequestQueries) ListByUser(userID uuid.UUID) ([]models.PaymentRequest, error) {
	query := `SELECT id, amount, reason, requester_id, recipient_id, status, transaction_id, created_at, updated_at
		FROM payment_requests WHERE requester_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC`
	rows, err := q.DB.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("unable to list payment requests: %w", err)
	}
	defer rows.Close()

	out := []models.PaymentRequest{}
	for rows.Next() {
		r := models.PaymentRequest{}
		if err := rows.Scan(&r.ID, &r.Amount, &r.Reason, &r.RequesterID, &r.RecipientID, &r.Status, &r.TransactionID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan payment request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkRejected flips a pending request to rejected; the status guard keeps
// a racing accept from being overwritten.
func (q *PaymentRequestQueries) MarkRejected(id uuid.UUID) (bool, error) {
	query := `UPDATE payment_requests SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`
	res, err := q.DB.Exec(query, id, models.PaymentRequestStatusRejected, models.PaymentRequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("unable to update payment request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to update payment request: %w", err)
	}
	return rows > 0, nil
}

// MarkPaid flips a pending request to paid and records the transaction that
// settled it.
func (q *PaymentRequestQueries) MarkPaid(id uuid.UUID, transactionID string) (bool, error) {
	query := `UPDATE payment_requests SET status = $2, transaction_id = $3, updated_at = now() WHERE id = $1 AND status = $4`
	res, err := q.DB.Exec(query, id, models.PaymentRequestStatusPaid, transactionID, models.PaymentRequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("unable to update payment request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to update payment request: %w", err)
	}
	return rows > 0, nil
}
