package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apihttp "github.com/MrJamesThe3rd/conciliacao/internal/http"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/category"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/transaction"
)

func newRouter() http.Handler {
	return apihttp.New(
		apihttp.Options{AllowedOrigins: []string{"https://admin.example.com"}, JWTSecret: "s", Development: true},
		statement.NewHandler(nil, nil, nil),
		reconciliation.NewHandler(nil, nil, 0),
		transaction.NewHandler(nil),
		category.NewHandler(nil),
	)
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_RejectsBadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/statements", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ValidatesBeforeCallingServices(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reconciliation/dashboard", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/statements", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Actor-ID")

	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
