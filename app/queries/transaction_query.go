package queries

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wekesaoliver/NexaChat-App/app/models"
)

type TransactionQueries struct {
	DB *sql.DB
}

func (q *TransactionQueries) CreateTransaction(t *models.Transaction) error {
	query := `INSERT INTO transactions (checkout_request_id, merchant_request_id, amount, phone_number, sender_id, recipient_id, description, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := q.DB.Exec(query, t.CheckoutRequestID, t.MerchantRequestID, t.Amount, t.PhoneNumber, t.SenderID, t.RecipientID, t.Description, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("unable to create transaction: %w", err)
	}
	return nil
}

// GetByCheckoutRequestID returns (nil, nil) when no such transaction exists.
func (q *TransactionQueries) GetByCheckoutRequestID(checkoutRequestID string) (*models.Transaction, error) {
	t := models.Transaction{}
	query := `SELECT checkout_request_id, merchant_request_id, amount, phone_number, sender_id, recipient_id, description, status, receipt_number, result_code, result_description, completed_at, created_at, updated_at
		FROM transactions WHERE checkout_request_id = $1`
	err := q.DB.QueryRow(query, checkoutRequestID).Scan(
		&t.CheckoutRequestID, &t.MerchantRequestID, &t.Amount, &t.PhoneNumber,
		&t.SenderID, &t.RecipientID, &t.Description, &t.Status,
		&t.ReceiptNumber, &t.ResultCode, &t.ResultDescription, &t.CompletedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to get transaction: %w", err)
	}
	return &t, nil
}

// MarkCompleted flips a pending transaction to completed. The status guard
// in the WHERE clause is the compare-and-set that makes duplicate callback
// deliveries safe: only one caller ever sees rows affected.
func (q *TransactionQueries) MarkCompleted(checkoutRequestID, receipt, resultCode, resultDesc string, completedAt time.Time) (bool, error) {
	query := `UPDATE transactions
		SET status = $2, receipt_number = $3, result_code = $4, result_description = $5, completed_at = $6, updated_at = now()
		WHERE checkout_request_id = $1 AND status = $7`
	res, err := q.DB.Exec(query, checkoutRequestID, models.TransactionStatusCompleted, receipt, resultCode, resultDesc, completedAt, models.TransactionStatusPending)
	if err != nil {
		return false, fmt.Errorf("unable to update transaction: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to update transaction: %w", err)
	}
	return rows > 0, nil
}

// MarkFailed flips a pending transaction to failed, same guard as
// MarkCompleted.
func (q *TransactionQueries) MarkFailed(checkoutRequestID, resultCode, resultDesc string) (bool, error) {
	query := `UPDATE transactions
		SET status = $2, result_code = $3, result_description = $4, updated_at = now()
		WHERE checkout_request_id = $1 AND status = $5`
	res, err := q.DB.Exec(query, checkoutRequestID, models.TransactionStatusFailed, resultCode, resultDesc, models.TransactionStatusPending)
	if err != nil {
		return false, fmt.Errorf("unable to update transaction: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to update transaction: %w", err)
	}
	return rows > 0, nil
}
