package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	d "github.com/gildedwren/storefront/internal/checkout/domain"
	"github.com/gildedwren/storefront/internal/checkout/repository"
	"github.com/gildedwren/storefront/internal/checkout/service"
	"github.com/gildedwren/storefront/internal/payment"
)

type CheckoutHandler struct {
	checkout service.CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, timeout: timeout}
}

type ShippingRequestDTO struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
}

type CheckoutSessionDTO struct {
	Success      bool      `json:"success"`
	ID           string    `json:"id"`
	Step         string    `json:"step"`
	Status       string    `json:"status"`
	Totals       *d.Totals `json:"totals,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
}

type ConfirmResponseDTO struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	OrderID string `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
}

func sessionDTO(session *d.CheckoutSession) CheckoutSessionDTO {
	dto := CheckoutSessionDTO{
		Success: true,
		ID:      session.ID,
		Step:    string(session.Step),
		Status:  session.Status.String(),
	}
	if session.Snapshot != nil {
		dto.Totals = &session.Snapshot.Totals
	}
	if session.Step == d.StepPayment {
		dto.ClientSecret = session.ClientSecret
	}
	return dto
}

func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no browsing session")
		return
	}

	session, err := h.checkout.Begin(ctx, sessionID)
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, sessionDTO(session))
}

func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, err := h.checkout.GetSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionDTO(session))
}

func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ShippingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := h.checkout.SubmitShipping(ctx, chi.URLParam(r, "id"), d.ShippingDetails{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Address1:   req.Address1,
		Address2:   req.Address2,
		City:       req.City,
		Region:     req.Region,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionDTO(session))
}

func (h *CheckoutHandler) EnterPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, err := h.checkout.EnterPayment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionDTO(session))
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, err := h.checkout.Back(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionDTO(session))
}

func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.checkout.ConfirmPayment(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ConfirmResponseDTO{
		Success: result.Status == d.CheckoutStatusCompleted,
		Status:  result.Status.String(),
		OrderID: result.OrderID,
		Message: result.Message,
	})
}

func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.checkout.Cancel(ctx, chi.URLParam(r, "id")); err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// respondCheckoutError maps orchestrator and gateway errors onto HTTP
// statuses. Gateway card errors carry the human-readable suggestion so the
// storefront can render it directly.
func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *d.ValidationError
	var gatewayErr *payment.GatewayError

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "validation failed",
			"code":    "validation_error",
			"fields":  validation.Fields,
		})
	case errors.As(err, &gatewayErr):
		status := http.StatusPaymentRequired
		if gatewayErr.Transient() {
			status = http.StatusBadGateway
		}
		respondJSON(w, status, map[string]interface{}{
			"success":    false,
			"error":      gatewayErr.Message,
			"code":       string(gatewayErr.Kind),
			"suggestion": gatewayErr.Suggestion(),
		})
	case errors.Is(err, service.ErrConfirmationPending):
		log.Printf("request %s: payment succeeded but confirmation failed", getRequestID(r.Context()))
		respondError(w, http.StatusInternalServerError, "confirmation_pending",
			"payment succeeded but order confirmation failed; please contact support")
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, service.ErrShippingRequired):
		respondError(w, http.StatusConflict, "shipping_required", "shipping details are required first")
	case errors.Is(err, service.ErrPaymentNotReady):
		respondError(w, http.StatusConflict, "payment_not_ready", "payment step has not been entered")
	case errors.Is(err, service.ErrSessionClosed), errors.Is(err, service.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "session_closed", "checkout session is closed")
	case errors.Is(err, repository.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "checkout session not found")
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
	default:
		log.Printf("request %s: checkout error: %v", getRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
