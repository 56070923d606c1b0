package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	cartdomain "github.com/gildedwren/storefront/internal/cart/domain"
	productdomain "github.com/gildedwren/storefront/internal/product/domain"
	productrepo "github.com/gildedwren/storefront/internal/product/repository"
)

type CartAPI interface {
	GetCart(ctx context.Context, sessionID string) (*cartdomain.Cart, error)
	AddItem(ctx context.Context, sessionID string, item cartdomain.LineItem) (*cartdomain.Cart, error)
	SetQuantity(ctx context.Context, sessionID, productID string, quantity int64) (*cartdomain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, productID string) (*cartdomain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (*productdomain.Product, error)
}

type CartHandler struct {
	carts   CartAPI
	catalog CatalogReader
	timeout time.Duration
}

func NewCartHandler(carts CartAPI, catalog CatalogReader, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog, timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int64 `json:"quantity"`
}

type CartResponseDTO struct {
	Success bool             `json:"success"`
	Cart    *cartdomain.Cart `json:"cart"`
	Total   int64            `json:"total"`
}

func cartResponse(cart *cartdomain.Cart) CartResponseDTO {
	return CartResponseDTO{Success: true, Cart: cart, Total: cart.Subtotal()}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no browsing session")
		return
	}

	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load cart")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no browsing session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	// Line item details come from the catalog, never from the client.
	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, productrepo.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not load product")
		return
	}

	cart, err := h.carts.AddItem(ctx, sessionID, cartdomain.LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		ImageURL:  product.ImageURL,
		Category:  product.Category,
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not add item")
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(cart))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	productID := chi.URLParam(r, "product_id")
	if sessionID == "" || productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing session or product id")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	// quantity <= 0 removes the line, so only the upper bound is checked here
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	cart, err := h.carts.SetQuantity(ctx, sessionID, productID, req.Quantity)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not update quantity")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	productID := chi.URLParam(r, "product_id")
	if sessionID == "" || productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing session or product id")
		return
	}

	cart, err := h.carts.RemoveItem(ctx, sessionID, productID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not remove item")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no browsing session")
		return
	}

	if err := h.carts.ClearCart(ctx, sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not clear cart")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
