package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"goldenticket/models"
	"goldenticket/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const maxRequestBodyBytes = 1 << 20

// RejectionRecorder counts purchases that did not produce a ticket
type RejectionRecorder interface {
	RecordIssuanceRejected(ctx context.Context, reason string)
}

type noopRecorder struct{}

func (noopRecorder) RecordIssuanceRejected(context.Context, string) {}

// LotteryHandlers serves the /api/lottery routes
type LotteryHandlers struct {
	tickets     service.TicketService
	results     service.ResultsService
	identity    service.IdentityVerifier
	clock       *service.PeriodClock
	ticketPrice decimal.Decimal
	rejections  RejectionRecorder
}

// NewLotteryHandlers creates the lottery handlers. rejections may be nil.
func NewLotteryHandlers(
	tickets service.TicketService,
	results service.ResultsService,
	identity service.IdentityVerifier,
	clock *service.PeriodClock,
	ticketPrice decimal.Decimal,
	rejections RejectionRecorder,
) *LotteryHandlers {
	if rejections == nil {
		rejections = noopRecorder{}
	}
	return &LotteryHandlers{
		tickets:     tickets,
		results:     results,
		identity:    identity,
		clock:       clock,
		ticketPrice: ticketPrice,
		rejections:  rejections,
	}
}

// VerifyRequest carries the proof a client obtained from World ID
type VerifyRequest struct {
	ProofResponse *models.IdentityProof `json:"proofResponse" validate:"required"`
}

type VerifyResponse struct {
	Success       bool   `json:"success"`
	NullifierHash string `json:"nullifierHash"`
}

// ConfirmPaymentRequest asks for a ticket bought by an on-chain payment
type ConfirmPaymentRequest struct {
	NullifierHash string `json:"nullifierHash" validate:"required"`
	TxHash        string `json:"txHash" validate:"required"`
}

type ConfirmPaymentResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Ticket  *models.Ticket `json:"ticket"`
}

type TicketsResponse struct {
	Success bool             `json:"success"`
	Period  string           `json:"period"`
	Tickets []*models.Ticket `json:"tickets"`
}

type ResultsResponse struct {
	Success bool               `json:"success"`
	Results *models.DrawResult `json:"results"`
	Message string             `json:"message,omitempty"`
}

type PeriodResponse struct {
	Success             bool            `json:"success"`
	CurrentPeriod       string          `json:"currentPeriod"`
	PreviousPeriod      string          `json:"previousPeriod"`
	NextCutover         time.Time       `json:"nextCutover"`
	SecondsUntilCutover int64           `json:"secondsUntilCutover"`
	TicketPrice         decimal.Decimal `json:"ticketPrice"`
}

// Routes mounts the lottery routes on r
func (h *LotteryHandlers) Routes(r chi.Router) {
	r.Post("/verify", h.HandleVerify)
	r.Post("/confirm-payment", h.HandleConfirmPayment)
	r.Get("/tickets", h.HandleGetTickets)
	r.Get("/period", h.HandleGetPeriod)
	r.Get("/results/latest", h.HandleGetLatestResult)
	r.Get("/results/{period}", h.HandleGetResult)
}

// HandleVerify checks a World ID proof and returns the caller's nullifier hash
func (h *LotteryHandlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	nullifier, err := h.identity.VerifyProof(r.Context(), *req.ProofResponse)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIdentityInvalid):
			respondError(w, http.StatusBadRequest, CodeIdentityInvalid, "The World ID proof could not be verified.")
		case errors.Is(err, service.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		default:
			log.WithError(err).Error("Identity verification unavailable")
			respondError(w, http.StatusBadGateway, CodeUnavailable, "Identity verification is temporarily unavailable. Please try again.")
		}
		return
	}

	respondJSON(w, http.StatusOK, VerifyResponse{Success: true, NullifierHash: nullifier})
}

// HandleConfirmPayment verifies the payment and issues a ticket for the current period
func (h *LotteryHandlers) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ticket, err := h.tickets.Issue(r.Context(), req.NullifierHash, req.TxHash, h.ticketPrice)
	if err != nil {
		status, body := issuanceError(err, req.TxHash)
		h.rejections.RecordIssuanceRejected(r.Context(), rejectionReason(err))
		if status == http.StatusInternalServerError {
			log.WithError(err).WithField("paymentTxID", req.TxHash).Error("Ticket issuance failed after payment")
		}
		respondJSON(w, status, body)
		return
	}

	respondJSON(w, http.StatusCreated, ConfirmPaymentResponse{
		Success: true,
		Message: "Payment confirmed and ticket issued.",
		Ticket:  ticket,
	})
}

// HandleGetTickets lists a user's tickets, for the current period unless week is given
func (h *LotteryHandlers) HandleGetTickets(w http.ResponseWriter, r *http.Request) {
	nullifier := strings.TrimSpace(r.URL.Query().Get("nullifierHash"))
	if nullifier == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidInput, "nullifierHash is required")
		return
	}
	period := strings.TrimSpace(r.URL.Query().Get("week"))
	if period == "" {
		period = h.clock.CurrentPeriod(h.clock.Now())
	}

	tickets, err := h.tickets.GetTicketsForUser(r.Context(), nullifier, period)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
			return
		}
		log.WithError(err).Error("Failed to get tickets for user")
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to load tickets.")
		return
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}

	respondJSON(w, http.StatusOK, TicketsResponse{Success: true, Period: period, Tickets: tickets})
}

// HandleGetPeriod reports the open period and when it closes
func (h *LotteryHandlers) HandleGetPeriod(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	current := h.clock.CurrentPeriod(now)

	cutover, err := h.clock.CutoverTime(current)
	if err != nil {
		log.WithError(err).WithField("period", current).Error("Failed to compute cutover")
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to compute the current period.")
		return
	}

	respondJSON(w, http.StatusOK, PeriodResponse{
		Success:             true,
		CurrentPeriod:       current,
		PreviousPeriod:      h.clock.PreviousPeriod(now),
		NextCutover:         cutover.UTC(),
		SecondsUntilCutover: int64(cutover.Sub(now).Seconds()),
		TicketPrice:         h.ticketPrice,
	})
}

// HandleGetLatestResult returns the most recently settled draw, or null
func (h *LotteryHandlers) HandleGetLatestResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.results.GetLatestResult(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get latest result")
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to load results.")
		return
	}
	if result == nil {
		respondJSON(w, http.StatusOK, ResultsResponse{
			Success: true,
			Message: "No draw has been settled yet.",
		})
		return
	}

	respondJSON(w, http.StatusOK, ResultsResponse{Success: true, Results: result})
}

// HandleGetResult returns the settled draw for one period
func (h *LotteryHandlers) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")

	result, err := h.results.GetResult(r.Context(), period)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		case errors.Is(err, service.ErrNotFound):
			respondError(w, http.StatusNotFound, CodeNotFound, "No results for period "+period+" yet.")
		default:
			log.WithError(err).WithField("period", period).Error("Failed to get result")
			respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to load results.")
		}
		return
	}

	respondJSON(w, http.StatusOK, ResultsResponse{Success: true, Results: result})
}

// decodeAndValidate decodes a JSON body into req and validates it. On failure the
// 400 response has been written and false is returned.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.WithError(err).WithField("path", r.URL.Path).Debug("Failed to decode request")
		respondError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid request body.")
		return false
	}

	if err := getValidator().Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   CodeInvalidInput,
			Message: "Missing or invalid fields.",
			Fields:  formatValidationError(err),
		})
		return false
	}
	return true
}
