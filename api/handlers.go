/*
handlers.go - HTTP API handlers for the invoice ledger engine

PURPOSE:
  Exposes the ledger engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates every decision to the domain. This layer
  owns the error-to-status translation; the engine itself has no
  user-facing surface.

ENDPOINTS:
  Ledgers:
    GET    /api/ledgers                     List ledgers (?status=sent,overdue)
    POST   /api/ledgers                     Create draft ledger
    GET    /api/ledgers/{id}                Get ledger with derived totals
    GET    /api/ledgers/{id}/document       PDF document
    GET    /api/ledgers/{id}/reminder       Reminder eligibility

  Mutations:
    POST   /api/ledgers/{id}/items          Add line item (draft only)
    DELETE /api/ledgers/{id}/items/{itemID} Remove line item (draft only)
    POST   /api/ledgers/{id}/finalize       draft -> sent
    POST   /api/ledgers/{id}/cancel         draft/sent -> cancelled
    POST   /api/ledgers/{id}/payments       Record payment
    POST   /api/ledgers/{id}/payments/{paymentID}/reverse

  Admin:
    POST   /api/admin/sweep-overdue         Apply past-due check to all sent

IDENTITY:
  The authenticated actor id arrives in the X-Actor-ID header, supplied
  by whatever auth layer fronts this service. The engine records it on
  finalize/cancel and performs no authorization itself.

ERROR HANDLING:
  - 400: Malformed input (bad item, bad rate, bad amount, bad currency)
  - 404: Unknown ledger/item/payment
  - 409: Operation not permitted in the current status, or write conflict
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/invoice-engine/invoice"
	"github.com/warp/invoice-engine/logger"
	"github.com/warp/invoice-engine/render"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Svc      *invoice.Service
	Policy   invoice.ReminderPolicy
	Renderer render.PDF

	log zerolog.Logger
}

// NewHandler creates a handler around the given service.
func NewHandler(svc *invoice.Service) *Handler {
	return &Handler{
		Svc:    svc,
		Policy: invoice.DefaultReminderPolicy(),
		log:    logger.WithComponent("api"),
	}
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

func (h *Handler) ListLedgers(w http.ResponseWriter, r *http.Request) {
	var filter invoice.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, invoice.Status(strings.TrimSpace(s)))
		}
	}

	ledgers, err := h.Svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	dtos := make([]LedgerDTO, 0, len(ledgers))
	for _, l := range ledgers {
		dtos = append(dtos, toLedgerDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateLedger(w http.ResponseWriter, r *http.Request) {
	var req CreateLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	if req.Currency == "" {
		h.writeBadRequest(w, "currency is required")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		h.writeBadRequest(w, "due_date must be YYYY-MM-DD")
		return
	}

	l, err := h.Svc.Create(r.Context(), strings.ToUpper(req.Currency), dueDate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLedgerDTO(l))
}

func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	l, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(l))
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	l, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	doc, err := h.Renderer.Render(l)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", l.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) GetReminder(w http.ResponseWriter, r *http.Request) {
	l, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	now := time.Now()
	if raw := r.URL.Query().Get("now"); raw != "" {
		if now, err = time.Parse(time.RFC3339, raw); err != nil {
			h.writeBadRequest(w, "now must be RFC3339")
			return
		}
	}
	var lastReminderAt *time.Time
	if raw := r.URL.Query().Get("last_reminder_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeBadRequest(w, "last_reminder_at must be RFC3339")
			return
		}
		lastReminderAt = &t
	}

	writeJSON(w, http.StatusOK, ReminderDTO{
		Due: h.Policy.IsReminderDue(l, now, lastReminderAt),
	})
}

// =============================================================================
// MUTATION HANDLERS
// =============================================================================

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	// The item amount is expressed in the ledger's own currency.
	l, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	unitPrice, err := invoice.ParseMoney(req.UnitPrice, l.Currency)
	if err != nil {
		h.writeBadRequest(w, err.Error())
		return
	}
	vatRate, err := decimal.NewFromString(req.VATRate)
	if err != nil {
		h.writeBadRequest(w, "vat_rate must be a number")
		return
	}

	updated, err := h.Svc.AddItem(r.Context(), id, invoice.ItemInput{
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   unitPrice,
		VATRate:     vatRate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(updated))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Svc.RemoveItem(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(updated))
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get("X-Actor-ID")
	if actor == "" {
		h.writeBadRequest(w, "X-Actor-ID header is required")
		return
	}
	updated, err := h.Svc.Finalize(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(updated))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get("X-Actor-ID")
	if actor == "" {
		h.writeBadRequest(w, "X-Actor-ID header is required")
		return
	}
	updated, err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(updated))
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}

	l, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	amount, err := invoice.ParseMoney(req.Amount, l.Currency)
	if err != nil {
		h.writeBadRequest(w, err.Error())
		return
	}

	var date time.Time
	if req.Date != "" {
		if date, err = time.Parse(time.RFC3339, req.Date); err != nil {
			h.writeBadRequest(w, "date must be RFC3339")
			return
		}
	}

	updated, err := h.Svc.RecordPayment(r.Context(), id, invoice.PaymentInput{
		Amount:    amount,
		Date:      date,
		Method:    invoice.PaymentMethod(req.Method),
		Reference: req.Reference,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(updated))
}

func (h *Handler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Svc.ReversePayment(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "paymentID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(updated))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

func (h *Handler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	moved, err := h.Svc.SweepOverdue(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{MarkedOverdue: moved})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// writeError translates domain errors into HTTP status codes. This is the
// only place that mapping lives.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case invoice.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case invoice.IsRetryable(err), errors.Is(err, invoice.ErrDuplicateNumber):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, invoice.ErrLedgerLocked),
		errors.Is(err, invoice.ErrLedgerNotPayable),
		errors.Is(err, invoice.ErrInvalidTransition):
		// Valid request shape, wrong lifecycle state.
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case invoice.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
