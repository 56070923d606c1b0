package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gildedwren/storefront/internal/auth"
	"github.com/gildedwren/storefront/internal/orders/domain"
	"github.com/gildedwren/storefront/internal/orders/repository"
)

type OrdersAPI interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]*domain.Order, error)
}

type AdminHandler struct {
	auth    *auth.Service
	orders  OrdersAPI
	timeout time.Duration
}

func NewAdminHandler(authSvc *auth.Service, orders OrdersAPI, timeout time.Duration) *AdminHandler {
	return &AdminHandler{auth: authSvc, orders: orders, timeout: timeout}
}

type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	token, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not log in")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.auth.Logout(ctx, bearerToken(r)); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not log out")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	orders, err := h.orders.ListRecentOrders(ctx, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not list orders")
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
	})
}

func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "order id must be a uuid")
		return
	}

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load order")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order":   order,
	})
}
