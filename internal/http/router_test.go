package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gildedwren/storefront/internal/auth"
	"github.com/gildedwren/storefront/internal/product/domain"
)

func testFullRouter(t *testing.T) http.Handler {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	authSvc := auth.NewService(client, "admin", "workbench")
	timeout := 2 * time.Second

	products := &productAPIMock{products: []*domain.Product{{ID: "p1", Name: "ring"}}}
	return NewRouter(RouterDeps{
		Cart:           NewCartHandler(&cartAPIMock{cart: sampleCart()}, &catalogMock{}, timeout),
		Checkout:       NewCheckoutHandler(&checkoutMock{session: openSession()}, timeout),
		Products:       NewProductHandler(products, timeout),
		Admin:          NewAdminHandler(authSvc, &ordersAPIMock{}, timeout),
		Misc:           NewMiscHandler(&marketingAPIMock{}, t.TempDir(), timeout),
		Auth:           authSvc,
		RequestTimeout: timeout,
		UploadDir:      t.TempDir(),
	})
}

func TestRouter_SessionCookieFlowsToCart(t *testing.T) {
	router := testFullRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	// first visit gets a session cookie without any client setup
	require.NotEmpty(t, rec.Result().Cookies())
}

func TestRouter_ProductWritesAreAdminGuarded(t *testing.T) {
	router := testFullRouter(t)

	body, _ := json.Marshal(CreateProductRequestDTO{Name: "ring", Price: 100, Category: "rings"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products/", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/p1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// reads stay public
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AdminTokenUnlocksWrites(t *testing.T) {
	router := testFullRouter(t)

	loginBody, _ := json.Marshal(LoginRequestDTO{Username: "admin", Password: "workbench"})
	loginRec := httptest.NewRecorder()
	router.ServeHTTP(loginRec, httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(loginBody)))
	require.Equal(t, http.StatusOK, loginRec.Code)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &loginResp))

	body, _ := json.Marshal(CreateProductRequestDTO{Name: "ring", Price: 100, Category: "rings"})
	req := httptest.NewRequest(http.MethodPost, "/api/products/", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	router := testFullRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
