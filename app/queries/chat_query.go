package queries

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekesaoliver/NexaChat-App/app/models"
)

type ChatQueries struct {
	DB *sql.DB
}

func (q *ChatQueries) CreateMessage(m *models.Message) error {
	var amount sql.NullInt64
	var status, receipt sql.NullString
	if m.PaymentDetails != nil {
		amount = sql.NullInt64{Int64: m.PaymentDetails.Amount, Valid: true}
		status = sql.NullString{String: m.PaymentDetails.Status, Valid: true}
		if m.PaymentDetails.Receipt != "" {
			receipt = sql.NullString{String: m.PaymentDetails.Receipt, Valid: true}
		}
	}
	query := `INSERT INTO messages (id, sender_id, receiver_id, text, image, is_payment_message, payment_amount, payment_status, payment_receipt, is_payment_request, payment_request_id, is_payment_update, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := q.DB.Exec(query, m.ID, m.SenderID, m.ReceiverID, m.Text, m.Image,
		m.IsPaymentMessage, amount, status, receipt,
		m.IsPaymentRequest, m.PaymentRequestID, m.IsPaymentUpdate, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("unable to create message: %w", err)
	}
	return nil
}

func (q *ChatQueries) GetConversation(userID, otherUserID uuid.UUID, limit int) ([]models.Message, error) {
	query := `SELECT id, sender_id, receiver_id, text, image, is_payment_message, payment_amount, payment_status, payment_receipt, is_payment_request, payment_request_id, is_payment_update, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC LIMIT $3`
	rows, err := q.DB.Query(query, userID, otherUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to get messages: %w", err)
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		m := models.Message{}
		var amount sql.NullInt64
		var status, receipt sql.NullString
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.Image,
			&m.IsPaymentMessage, &amount, &status, &receipt,
			&m.IsPaymentRequest, &m.PaymentRequestID, &m.IsPaymentUpdate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan message: %w", err)
		}
		if m.IsPaymentMessage {
			m.PaymentDetails = &models.PaymentDetails{
				Amount:  amount.Int64,
				Status:  status.String,
				Receipt: receipt.String,
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
