package models

import "time"

// ProcessedPayment records which ticket a payment transaction produced
type ProcessedPayment struct {
	PaymentTxID string    `db:"payment_tx_id" json:"paymentTxId"`
	TicketID    int64     `db:"ticket_id" json:"ticketId"`
	ProcessedAt time.Time `db:"processed_at" json:"processedAt"`
}
