package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	d "github.com/gildedwren/storefront/internal/checkout/domain"
	"github.com/gildedwren/storefront/internal/checkout/repository"
	"github.com/gildedwren/storefront/internal/checkout/service"
	"github.com/gildedwren/storefront/internal/payment"
)

type checkoutMock struct {
	session *d.CheckoutSession
	result  *service.ConfirmResult
	err     error

	shipping  *d.ShippingDetails
	cancelled string
}

func (m *checkoutMock) Begin(_ context.Context, cartSessionID string) (*d.CheckoutSession, error) {
	return m.session, m.err
}

func (m *checkoutMock) GetSession(_ context.Context, sessionID string) (*d.CheckoutSession, error) {
	return m.session, m.err
}

func (m *checkoutMock) SubmitShipping(_ context.Context, sessionID string, details d.ShippingDetails) (*d.CheckoutSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.shipping = &details
	return m.session, nil
}

func (m *checkoutMock) EnterPayment(_ context.Context, sessionID string) (*d.CheckoutSession, error) {
	return m.session, m.err
}

func (m *checkoutMock) Back(_ context.Context, sessionID string) (*d.CheckoutSession, error) {
	return m.session, m.err
}

func (m *checkoutMock) ConfirmPayment(_ context.Context, sessionID string) (*service.ConfirmResult, error) {
	return m.result, m.err
}

func (m *checkoutMock) Cancel(_ context.Context, sessionID string) error {
	m.cancelled = sessionID
	return m.err
}

func testCheckoutRouter(mock *checkoutMock) http.Handler {
	handler := NewCheckoutHandler(mock, time.Second)
	r := chi.NewRouter()
	r.Post("/api/checkout", handler.Begin)
	r.Get("/api/checkout/{id}", handler.GetSession)
	r.Post("/api/checkout/{id}/shipping", handler.SubmitShipping)
	r.Post("/api/checkout/{id}/payment", handler.EnterPayment)
	r.Post("/api/checkout/{id}/back", handler.Back)
	r.Post("/api/checkout/{id}/confirm", handler.Confirm)
	r.Delete("/api/checkout/{id}", handler.Cancel)
	return r
}

func openSession() *d.CheckoutSession {
	return &d.CheckoutSession{
		ID:            "co-1",
		CartSessionID: "sess-1",
		Step:          d.StepShippingInfo,
		Status:        d.CheckoutStatusOpen,
	}
}

func paymentSession() *d.CheckoutSession {
	return &d.CheckoutSession{
		ID:            "co-1",
		CartSessionID: "sess-1",
		Step:          d.StepPayment,
		Status:        d.CheckoutStatusPaymentPending,
		ClientSecret:  "cs_secret",
		Snapshot: &d.CartSnapshot{
			Totals: d.Totals{Subtotal: 4000, Shipping: 999, Tax: 480, GrandTotal: 5479},
		},
	}
}

func TestBegin_CreatesSession(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{session: openSession()})

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/checkout", nil), "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp CheckoutSessionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "co-1", resp.ID)
	assert.Equal(t, "shipping_info", resp.Step)
	assert.Empty(t, resp.ClientSecret)
}

func TestBegin_EmptyCart(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{err: service.ErrEmptyCart})

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/checkout", nil), "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitShipping_ValidationErrorListsFields(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{err: &d.ValidationError{
		Fields: map[string]string{"email": "email is required"},
	}})

	body := []byte(`{"first_name":"Ada"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/co-1/shipping", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fields, ok := resp["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "email")
}

func TestSubmitShipping_PassesDetails(t *testing.T) {
	mock := &checkoutMock{session: openSession()}
	router := testCheckoutRouter(mock)

	body, _ := json.Marshal(ShippingRequestDTO{
		Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace",
		Address1: "1 Analytical Way", City: "London", Region: "LDN", PostalCode: "N1 7AA",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/co-1/shipping", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, mock.shipping)
	assert.Equal(t, "ada@example.com", mock.shipping.Email)
}

func TestEnterPayment_ReturnsSecretAndTotals(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{session: paymentSession()})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/co-1/payment", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CheckoutSessionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cs_secret", resp.ClientSecret)
	require.NotNil(t, resp.Totals)
	assert.Equal(t, int64(5479), resp.Totals.GrandTotal)
}

func TestEnterPayment_ShippingRequired(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{err: service.ErrShippingRequired})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/co-1/payment", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirm_Success(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{result: &service.ConfirmResult{
		Status:  d.CheckoutStatusCompleted,
		OrderID: "co-1",
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/co-1/confirm", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ConfirmResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "COMPLETED", resp.Status)
}

func TestConfirm_CardDeclinedCarriesSuggestion(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{err: &payment.GatewayError{
		Kind:    payment.KindCardDeclined,
		Message: "Your card was declined.",
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/co-1/confirm", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "card_declined", resp["code"])
	assert.NotEmpty(t, resp["suggestion"])
}

func TestConfirm_TransientGatewayError(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{err: &payment.GatewayError{
		Kind:    payment.KindNetwork,
		Message: "connection reset",
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/co-1/confirm", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestConfirm_ConfirmationPendingIsDistinct(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{err: service.ErrConfirmationPending})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/co-1/confirm", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmation_pending", resp.Code)
	assert.Contains(t, resp.Error, "contact support")
}

func TestGetSession_NotFound(t *testing.T) {
	router := testCheckoutRouter(&checkoutMock{err: repository.ErrSessionNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel(t *testing.T) {
	mock := &checkoutMock{}
	router := testCheckoutRouter(mock)

	req := httptest.NewRequest(http.MethodDelete, "/api/checkout/co-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "co-1", mock.cancelled)
}
