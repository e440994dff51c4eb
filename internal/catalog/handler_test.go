package catalog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, products *fakeProductStore, editorial *fakeEditorialStore) chi.Router {
	t.Helper()
	svc := newTestService(t, products, editorial, ServiceConfig{})
	handler := NewHandler(nil, svc)
	r := chi.NewRouter()
	handler.Routes(r)
	return r
}

func TestHandlerGetProduct(t *testing.T) {
	router := newTestRouter(t, &fakeProductStore{records: fixtureRecords()}, newFakeEditorialStore())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/gecko-leopardo", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"contentfulId":"gecko-leopardo"`)
}

func TestHandlerGetProductNotFound(t *testing.T) {
	router := newTestRouter(t, &fakeProductStore{records: fixtureRecords()}, newFakeEditorialStore())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/nope", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerListProductsWithFilters(t *testing.T) {
	router := newTestRouter(t, &fakeProductStore{records: fixtureRecords()}, newFakeEditorialStore())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?category=Reptiles&minPrice=100000&maxPrice=500000", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, "gecko-leopardo")
	require.Contains(t, body, "piton-bola")
	require.NotContains(t, body, "iguana-verde")
}

func TestHandlerListProductsRejectsMalformedPrice(t *testing.T) {
	router := newTestRouter(t, &fakeProductStore{records: fixtureRecords()}, newFakeEditorialStore())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?minPrice=cheap", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerUpdateStock(t *testing.T) {
	store := &fakeProductStore{records: fixtureRecords()}
	router := newTestRouter(t, store, newFakeEditorialStore())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/products/piton-bola/stock", strings.NewReader(`{"stock": 7}`))
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"newStock":7`)
}

func TestHandlerUpdateStockRejectsNonNumeric(t *testing.T) {
	store := &fakeProductStore{records: fixtureRecords()}
	router := newTestRouter(t, store, newFakeEditorialStore())

	for _, body := range []string{`{"stock": "many"}`, `{}`, `{"stock": 2.5}`, `{"stock": -1}`} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/products/piton-bola/stock", strings.NewReader(body))
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, "body %s must be rejected", body)
	}
	require.Equal(t, 0, store.stockCalls)
}

func TestHandlerCacheEndpoints(t *testing.T) {
	router := newTestRouter(t, &fakeProductStore{records: fixtureRecords()}, newFakeEditorialStore())

	// Populate one entry, inspect, then clear.
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/gecko-leopardo", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"size":1`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/cache", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))
	require.Contains(t, rr.Body.String(), `"size":0`)
}
