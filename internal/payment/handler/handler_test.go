package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/verse-payments/internal/payment/client"
	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/ledger"
	"github.com/tair/verse-payments/internal/payment/metrics"
	"github.com/tair/verse-payments/internal/payment/repository"
	"github.com/tair/verse-payments/internal/payment/usecase/command"
	"github.com/tair/verse-payments/internal/payment/usecase/query"
	"github.com/tair/verse-payments/internal/payment/webhook"
	"github.com/tair/verse-payments/pkg/auth"
)

const testWebhookSecret = "whsec_handler"

type fakeGateway struct {
	orders    int
	refundErr error
}

func (g *fakeGateway) CreateOrder(_ context.Context, req client.CreateOrderRequest) (*client.Order, error) {
	g.orders++
	id := fmt.Sprintf("order_%d", g.orders)
	return &client.Order{ID: id, Amount: req.Amount, Currency: req.Currency, Raw: []byte(`{"id":"` + id + `"}`)}, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, id string) (*client.Payment, error) {
	return &client.Payment{ID: id, Status: client.PaymentStatusCaptured}, nil
}

func (g *fakeGateway) RefundPayment(_ context.Context, paymentID string, amount *int64) (*client.Refund, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return &client.Refund{ID: "rfnd_1", PaymentID: paymentID, Status: "processed", Raw: []byte(`{"id":"rfnd_1"}`)}, nil
}

type testServer struct {
	router  *mux.Router
	repo    *repository.MemoryPaymentRepository
	gateway *fakeGateway
	signer  *webhook.Verifier
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	auth.SetSecret("handler-test-secret")

	repo := repository.NewMemoryPaymentRepository()
	gw := &fakeGateway{}
	m := metrics.NewNoop()
	l := ledger.New(repo, nil, m)
	verifier := webhook.NewVerifier(testWebhookSecret)

	h := NewPaymentHandlerWithDI(
		command.NewCreateOrderHandler(repo, gw, "INR"),
		command.NewHandleWebhookHandler(verifier, l, nil, m),
		command.NewRefundPaymentHandler(repo, gw, l),
		command.NewReconcilePaymentHandler(repo, gw, l),
		query.NewGetPaymentHandler(repo),
		query.NewListPaymentsHandler(repo),
		query.NewGetMyPaymentsHandler(repo),
		repo,
		DefaultMiddlewareConfig(m, limiter),
	)

	router := mux.NewRouter()
	RegisterMiddlewares(router, h.middleware)
	h.RegisterHealthCheck(router)
	h.RegisterRoutes(router)

	return &testServer{router: router, repo: repo, gateway: gw, signer: verifier}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, userID, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *testServer) do(t *testing.T, method, path, authz string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createOrder(t *testing.T, authz, body string) command.CreateOrderResult {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/payments/orders", authz, []byte(body), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res command.CreateOrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func (s *testServer) sendWebhook(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/payments/webhook", "", []byte(body), map[string]string{
		webhook.SignatureHeader: s.signer.Sign([]byte(body)),
	})
}

func captured(orderID, paymentID string) string {
	return fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured"}}}}`, paymentID, orderID)
}

func TestCreateOrderEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	res := s.createOrder(t, token(t, "alice", auth.RoleUser), `{"amount":499.99,"purpose":"donation"}`)
	assert.Equal(t, "order_1", res.OrderID)
	assert.Equal(t, int64(49999), res.Amount)
	assert.Equal(t, "INR", res.Currency)

	p, err := s.repo.FindByID(context.Background(), res.LocalPaymentID)
	require.NoError(t, err)
	assert.True(t, p.OwnedBy("alice"))

	anon := s.createOrder(t, "", `{"amount":"10","purpose":"subscription"}`)
	p, err = s.repo.FindByID(context.Background(), anon.LocalPaymentID)
	require.NoError(t, err)
	assert.Nil(t, p.UserID)
}

func TestCreateOrderEndpointErrors(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []struct {
		name   string
		authz  string
		body   string
		status int
		msg    string
	}{
		{"bad json", "", `{`, http.StatusBadRequest, "Invalid request body"},
		{"missing amount", "", `{"purpose":"donation"}`, http.StatusBadRequest, domain.ErrInvalidAmount.Error()},
		{"zero amount", "", `{"amount":0,"purpose":"donation"}`, http.StatusBadRequest, domain.ErrInvalidAmount.Error()},
		{"missing purpose", "", `{"amount":5}`, http.StatusBadRequest, domain.ErrMissingPurpose.Error()},
		{"bad token", "Bearer junk", `{"amount":5,"purpose":"donation"}`, http.StatusUnauthorized, "Invalid token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/payments/orders", tc.authz, []byte(tc.body), nil)
			assert.Equal(t, tc.status, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.msg, resp.Error)
		})
	}
}

func TestWebhookEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	order := s.createOrder(t, "", `{"amount":499.99,"purpose":"donation"}`)
	body := captured(order.OrderID, "pay_1")

	rec := s.do(t, http.MethodPost, "/api/payments/webhook", "", []byte(body), map[string]string{
		webhook.SignatureHeader: "deadbeef",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p, err := s.repo.FindByID(context.Background(), order.LocalPaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, p.Status)

	for i := 0; i < 2; i++ {
		rec = s.sendWebhook(t, body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	}

	p, err = s.repo.FindByID(context.Background(), order.LocalPaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, p.Status)
	assert.Equal(t, "pay_1", *p.PaymentID)

	rec = s.sendWebhook(t, `{"event":"subscription.charged","payload":{}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookOversizedBodyAcknowledged(t *testing.T) {
	s := newTestServer(t, nil)
	order := s.createOrder(t, "", `{"amount":10,"purpose":"donation"}`)
	body := captured(order.OrderID, "pay_big") + strings.Repeat(" ", maxWebhookBytes)

	rec := s.sendWebhook(t, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	p, err := s.repo.FindByID(context.Background(), order.LocalPaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, p.Status, "an unread body is never applied")
}

func TestRefundEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	admin := token(t, "root", auth.RoleAdmin)
	order := s.createOrder(t, token(t, "alice", auth.RoleUser), `{"amount":100,"purpose":"donation"}`)
	refundBody := []byte(`{"paymentId":"` + order.LocalPaymentID + `"}`)

	rec := s.do(t, http.MethodPost, "/api/payments/refund", token(t, "alice", auth.RoleUser), refundBody, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/payments/refund", admin, refundBody, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "created payments are not refundable")

	require.Equal(t, http.StatusOK, s.sendWebhook(t, captured(order.OrderID, "pay_1")).Code)

	rec = s.do(t, http.MethodPost, "/api/payments/refund", admin, refundBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Refund client.Refund `json:"refund"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rfnd_1", resp.Refund.ID)

	rec = s.do(t, http.MethodPost, "/api/payments/refund", admin, refundBody, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrAlreadyRefunded.Error())

	rec = s.do(t, http.MethodPost, "/api/payments/refund", admin, []byte(`{"paymentId":"missing"}`), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/payments/refund", admin, []byte(`{}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefundEndpointHidesGatewayDetails(t *testing.T) {
	s := newTestServer(t, nil)
	s.gateway.refundErr = &client.APIError{StatusCode: 500, Code: "SERVER_ERROR", Description: "key rzp_live_secret rejected"}
	order := s.createOrder(t, "", `{"amount":100,"purpose":"donation"}`)
	require.Equal(t, http.StatusOK, s.sendWebhook(t, captured(order.OrderID, "pay_1")).Code)

	rec := s.do(t, http.MethodPost, "/api/payments/refund", token(t, "root", auth.RoleAdmin),
		[]byte(`{"paymentId":"`+order.LocalPaymentID+`"}`), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "rzp_live_secret")
}

func TestGetPaymentEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	order := s.createOrder(t, token(t, "alice", auth.RoleUser), `{"amount":100,"purpose":"donation"}`)
	path := "/api/payments/" + order.LocalPaymentID

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, "", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, token(t, "alice", auth.RoleUser), nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, token(t, "bob", auth.RoleUser), nil, nil).Code)

	rec := s.do(t, http.MethodGet, path, token(t, "root", auth.RoleAdmin), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, order.LocalPaymentID, p.ID)
	assert.Equal(t, int64(10000), p.Amount)
}

func TestListEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	alice := token(t, "alice", auth.RoleUser)
	for i := 0; i < 3; i++ {
		s.createOrder(t, alice, `{"amount":1,"purpose":"donation"}`)
	}
	s.createOrder(t, token(t, "bob", auth.RoleUser), `{"amount":1,"purpose":"subscription"}`)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/payments", alice, nil, nil).Code)

	admin := token(t, "root", auth.RoleAdmin)
	rec := s.do(t, http.MethodGet, "/api/payments?purpose=donation&limit=2", admin, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page query.PaymentPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)

	rec = s.do(t, http.MethodGet, "/api/payments?status=bogus", admin, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/payments?from=yesterday", admin, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/payments?from=2020-01-01&to=2999-12-31", admin, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(4), page.Total)

	rec = s.do(t, http.MethodGet, "/api/payments/my", alice, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.Total)
}

func TestReconcileEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	admin := token(t, "root", auth.RoleAdmin)
	order := s.createOrder(t, "", `{"amount":1,"purpose":"donation"}`)
	path := "/api/payments/" + order.LocalPaymentID + "/reconcile"

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, path, admin, nil, nil).Code)

	failed := fmt.Sprintf(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","order_id":%q,"status":"failed"}}}}`, order.OrderID)
	require.Equal(t, http.StatusOK, s.sendWebhook(t, failed).Code)

	rec := s.do(t, http.MethodPost, path, admin, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res command.ReconcileResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Changed)
	assert.Equal(t, domain.StatusPaid, res.Payment.Status)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newTestServer(t, NewRateLimiter(rdb, "orders", 2, time.Minute))
	alice := token(t, "alice", auth.RoleUser)
	body := []byte(`{"amount":1,"purpose":"donation"}`)

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/api/payments/orders", alice, body, nil)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/payments/orders", alice, body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = s.do(t, http.MethodPost, "/api/payments/orders", token(t, "bob", auth.RoleUser), body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, "limits are per caller")
}

func TestAnonymousOrderRateLimitIgnoresForwardedFor(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newTestServer(t, NewRateLimiter(rdb, "orders", 2, time.Minute))
	body := []byte(`{"amount":1,"purpose":"donation"}`)

	for i := 0; i < 4; i++ {
		rec := s.do(t, http.MethodPost, "/api/payments/orders", "", body, map[string]string{
			"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1),
		})
		if i < 2 {
			assert.Equal(t, http.StatusCreated, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, "rotating X-Forwarded-For must not reset the bucket")
	}
	assert.Equal(t, 2, s.gateway.orders)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	s := newTestServer(t, NewRateLimiter(rdb, "orders", 1, time.Minute))
	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodPost, "/api/payments/orders", "", []byte(`{"amount":1,"purpose":"donation"}`), nil)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
}
