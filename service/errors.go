package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyProcessed means the payment transaction was already converted into a ticket
	ErrAlreadyProcessed = errors.New("payment transaction already processed")

	// ErrPaymentInvalid means on-chain verification rejected the payment or could not run
	ErrPaymentInvalid = errors.New("payment verification failed")

	// ErrDuplicatePurchase means the identity already holds a ticket for the current period
	ErrDuplicatePurchase = errors.New("identity already holds a ticket for this period")

	// ErrInvalidInput covers malformed identifiers and amounts
	ErrInvalidInput = errors.New("invalid input")

	// ErrSettlementNotDue means the period's cutover has not been reached yet
	ErrSettlementNotDue = errors.New("settlement is not due for this period")

	// ErrIdentityInvalid means the identity provider rejected the proof of personhood
	ErrIdentityInvalid = errors.New("identity proof rejected")

	// ErrPeriodClosed means the period settled while a purchase for it was in flight.
	// Nothing was written; retrying issues the ticket in the next period.
	ErrPeriodClosed = errors.New("period settled before the ticket was issued")

	// ErrNotFound is returned by queries for records that do not exist
	ErrNotFound = errors.New("not found")
)

// Storage uniqueness violations, returned by repositories
var (
	ErrPaymentTxConflict  = errors.New("ticket already exists for payment transaction")
	ErrUserPeriodConflict = errors.New("ticket already exists for user and period")
	ErrDrawResultConflict = errors.New("draw result already exists for period")
)

// AlreadyProcessedError carries the ticket a replayed payment produced, when it is known
type AlreadyProcessedError struct {
	PaymentTxID string
	TicketID    int64
}

func (e *AlreadyProcessedError) Error() string {
	if e.TicketID == 0 {
		return fmt.Sprintf("%s: %s", ErrAlreadyProcessed, e.PaymentTxID)
	}
	return fmt.Sprintf("%s: %s produced ticket %d", ErrAlreadyProcessed, e.PaymentTxID, e.TicketID)
}

func (e *AlreadyProcessedError) Is(target error) bool {
	return target == ErrAlreadyProcessed
}
