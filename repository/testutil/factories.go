package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"goldenticket/models"
)

var txCounter atomic.Int64

// NextPaymentTxID returns a well-formed transaction hash that is unique within the test binary
func NextPaymentTxID() string {
	return fmt.Sprintf("0x%064x", txCounter.Add(1))
}

// CreateTestTicket creates an unsaved ticket with a fresh payment transaction
func CreateTestTicket(uniqueUserID, period string, numbers models.TicketNumbers) *models.Ticket {
	return &models.Ticket{
		UniqueUserID: uniqueUserID,
		Period:       period,
		Numbers:      numbers,
		PurchaseTime: time.Now().UTC().Truncate(time.Microsecond),
		PaymentTxID:  NextPaymentTxID(),
	}
}
