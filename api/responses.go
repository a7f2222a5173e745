package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"goldenticket/service"

	log "github.com/sirupsen/logrus"
)

// Error codes returned to clients
const (
	CodeInvalidInput      = "invalid_input"
	CodeIdentityInvalid   = "identity_invalid"
	CodePaymentInvalid    = "payment_invalid"
	CodeDuplicatePurchase = "duplicate_purchase"
	CodeAlreadyProcessed  = "already_processed"
	CodePeriodClosed      = "period_closed"
	CodeNotFound          = "not_found"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success  bool              `json:"success"`
	Error    string            `json:"error"`
	Message  string            `json:"message"`
	TicketID int64             `json:"ticketId,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// issuanceError maps a ticket issuance failure to its HTTP response. Payment
// problems and "payment fine, ticket not issued" are kept apart so a client
// knows whether its funds were accepted.
func issuanceError(err error, paymentTxID string) (int, ErrorResponse) {
	var processed *service.AlreadyProcessedError

	switch {
	case errors.As(err, &processed):
		return http.StatusConflict, ErrorResponse{
			Error:    CodeAlreadyProcessed,
			Message:  "This payment transaction was already used to buy a ticket.",
			TicketID: processed.TicketID,
		}
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{
			Error:   CodeInvalidInput,
			Message: err.Error(),
		}
	case errors.Is(err, service.ErrPaymentInvalid):
		return http.StatusBadRequest, ErrorResponse{
			Error:   CodePaymentInvalid,
			Message: "The payment could not be verified on chain or does not meet the ticket requirements.",
		}
	case errors.Is(err, service.ErrPeriodClosed):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: CodePeriodClosed,
			Message: fmt.Sprintf("The draw closed while your ticket was being issued. Your payment %s was not used; "+
				"retry to receive a ticket for the next draw.", paymentTxID),
		}
	case errors.Is(err, service.ErrDuplicatePurchase):
		return http.StatusConflict, ErrorResponse{
			Error: CodeDuplicatePurchase,
			Message: fmt.Sprintf("You already hold a ticket for this draw. Your payment %s was not used; "+
				"contact support with this transaction id for a refund.", paymentTxID),
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: CodeInternal,
			Message: fmt.Sprintf("Your payment was received but the ticket could not be issued. "+
				"Contact support with transaction id %s.", paymentTxID),
		}
	}
}

// rejectionReason labels a failed issuance for metrics
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, service.ErrAlreadyProcessed):
		return CodeAlreadyProcessed
	case errors.Is(err, service.ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, service.ErrPaymentInvalid):
		return CodePaymentInvalid
	case errors.Is(err, service.ErrPeriodClosed):
		return CodePeriodClosed
	case errors.Is(err, service.ErrDuplicatePurchase):
		return CodeDuplicatePurchase
	default:
		return CodeInternal
	}
}
