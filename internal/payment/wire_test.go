package payment

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/verse-payments/internal/payment/client"
	"github.com/tair/verse-payments/internal/payment/handler"
	"github.com/tair/verse-payments/internal/payment/repository"
)

func TestInitializeHandler(t *testing.T) {
	h, err := InitializeHandler(
		Infrastructure{Repository: repository.NewMemoryPaymentRepository()},
		Settings{
			Currency:      "INR",
			WebhookSecret: "whsec",
			Gateway:       client.Config{BaseURL: "http://127.0.0.1:1", KeyID: "k", KeySecret: "s"},
		},
	)
	require.NoError(t, err)
	require.NotNil(t, h)

	router := mux.NewRouter()
	handler.RegisterMiddlewares(router, h.GetMiddlewareConfig())
	h.RegisterHealthCheck(router)
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/payments/webhook", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unsigned webhooks are rejected")
}
