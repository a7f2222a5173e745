package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var paymentTxIDPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// Ticket is one purchased entry, permanently tied to the payment that bought it
type Ticket struct {
	ID           int64         `db:"id" json:"id"`
	UniqueUserID string        `db:"unique_user_id" json:"uniqueUserId"`
	Period       string        `db:"period" json:"period"`
	Numbers      TicketNumbers `db:"numbers" json:"numbers"`
	PurchaseTime time.Time     `db:"purchase_time" json:"purchaseTime"`
	PaymentTxID  string        `db:"payment_tx_id" json:"paymentTxId"`
}

// NewTicket builds an unsaved ticket, validating every field
func NewTicket(uniqueUserID, period string, numbers TicketNumbers, purchaseTime time.Time, paymentTxID string) (*Ticket, error) {
	if strings.TrimSpace(uniqueUserID) == "" {
		return nil, errors.New("unique user id is required")
	}
	if strings.TrimSpace(period) == "" {
		return nil, errors.New("period is required")
	}
	if err := numbers.Validate(); err != nil {
		return nil, err
	}
	txID, err := NormalizePaymentTxID(paymentTxID)
	if err != nil {
		return nil, err
	}
	return &Ticket{
		UniqueUserID: uniqueUserID,
		Period:       period,
		Numbers:      numbers,
		PurchaseTime: purchaseTime,
		PaymentTxID:  txID,
	}, nil
}

// NormalizePaymentTxID lower-cases a transaction hash and checks its shape.
// Hex is case-insensitive, so "0xAB.." and "0xab.." must map to one ledger key.
func NormalizePaymentTxID(txID string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(txID))
	if !paymentTxIDPattern.MatchString(normalized) {
		return "", errors.New("payment transaction id must be 0x followed by 64 hex characters")
	}
	return normalized, nil
}
