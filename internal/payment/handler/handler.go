package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/usecase/command"
	"github.com/tair/verse-payments/internal/payment/usecase/query"
	"github.com/tair/verse-payments/internal/payment/webhook"
	"github.com/tair/verse-payments/pkg/logger"
)

const maxWebhookBytes = 1 << 20

// PaymentHandler handles HTTP requests for payments using CQRS pattern
type PaymentHandler struct {
	// Command handlers
	createOrderHandler *command.CreateOrderHandler
	webhookHandler     *command.HandleWebhookHandler
	refundHandler      *command.RefundPaymentHandler
	reconcileHandler   *command.ReconcilePaymentHandler

	// Query handlers
	getHandler   *query.GetPaymentHandler
	listHandler  *query.ListPaymentsHandler
	getMyHandler *query.GetMyPaymentsHandler

	repo       domain.PaymentRepository
	middleware MiddlewareConfig
}

// NewPaymentHandlerWithDI creates a new payment handler using dependency injection
func NewPaymentHandlerWithDI(
	createOrderHandler *command.CreateOrderHandler,
	webhookHandler *command.HandleWebhookHandler,
	refundHandler *command.RefundPaymentHandler,
	reconcileHandler *command.ReconcilePaymentHandler,
	getHandler *query.GetPaymentHandler,
	listHandler *query.ListPaymentsHandler,
	getMyHandler *query.GetMyPaymentsHandler,
	repo domain.PaymentRepository,
	middleware MiddlewareConfig,
) *PaymentHandler {
	return &PaymentHandler{
		createOrderHandler: createOrderHandler,
		webhookHandler:     webhookHandler,
		refundHandler:      refundHandler,
		reconcileHandler:   reconcileHandler,
		getHandler:         getHandler,
		listHandler:        listHandler,
		getMyHandler:       getMyHandler,
		repo:               repo,
		middleware:         middleware,
	}
}

// CreateOrder handles POST /api/payments/orders
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount  *decimal.Decimal `json:"amount"`
		Purpose string           `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.CreateOrderCommand{Purpose: req.Purpose}
	if req.Amount != nil {
		cmd.Amount = *req.Amount
	}
	if userID, ok := callerID(r.Context()); ok {
		cmd.UserID = &userID
	}

	result, err := h.createOrderHandler.Handle(r.Context(), cmd)
	if err != nil {
		respondDomainError(r.Context(), w, err, "Failed to create payment order")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// Webhook handles POST /api/payments/webhook. The body is read in full before
// anything parses it; the signature covers those exact bytes.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		// An unread body is never verified or applied, only acknowledged
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Error(r.Context()).
				Int64("limit_bytes", tooLarge.Limit).
				Str("delivery_id", r.Header.Get(webhook.EventIDHeader)).
				Msg("Webhook body exceeds size limit, acknowledged without processing")
			if m := h.middleware.Metrics; m != nil {
				m.WebhookEvents.WithLabelValues("oversized", command.ResultIgnored).Inc()
			}
			respondJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err = h.webhookHandler.Handle(r.Context(), command.HandleWebhookCommand{
		Body:       body,
		Signature:  r.Header.Get(webhook.SignatureHeader),
		DeliveryID: r.Header.Get(webhook.EventIDHeader),
	})
	if err != nil {
		respondDomainError(r.Context(), w, err, "Failed to process webhook")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// Refund handles POST /api/payments/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentID string           `json:"paymentId"`
		Amount    *decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	refund, err := h.refundHandler.Handle(r.Context(), command.RefundPaymentCommand{
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err, "Failed to refund payment")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"refund": refund})
}

// Reconcile handles POST /api/payments/{id}/reconcile
func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconcileHandler.Handle(r.Context(), command.ReconcilePaymentCommand{
		ID: mux.Vars(r)["id"],
	})
	if err != nil {
		respondDomainError(r.Context(), w, err, "Failed to reconcile payment")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetPayment handles GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := callerID(r.Context())
	payment, err := h.getHandler.Handle(r.Context(), query.GetPaymentQuery{
		ID:       mux.Vars(r)["id"],
		CallerID: userID,
		IsAdmin:  callerIsAdmin(r.Context()),
	})
	if err != nil {
		respondDomainError(r.Context(), w, err, "Failed to get payment")
		return
	}

	respondJSON(w, http.StatusOK, payment)
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	from, err := parseTimeParam(params.Get("from"), false)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' date")
		return
	}
	to, err := parseTimeParam(params.Get("to"), true)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' date")
		return
	}

	page, _ := strconv.Atoi(params.Get("page"))
	limit, _ := strconv.Atoi(params.Get("limit"))

	result, err := h.listHandler.Handle(r.Context(), query.ListPaymentsQuery{
		Status:  params.Get("status"),
		Purpose: params.Get("purpose"),
		UserID:  params.Get("userId"),
		From:    from,
		To:      to,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err, "Failed to list payments")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetMyPayments handles GET /api/payments/my (authenticated user)
func (h *PaymentHandler) GetMyPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.getMyHandler.Handle(r.Context(), query.GetMyPaymentsQuery{
		UserID: userID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err, "Failed to get user payments")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	mw := h.middleware

	// Gateway callback, authenticated by signature only
	router.HandleFunc("/api/payments/webhook", h.Webhook).Methods("POST")

	// Checkout, anonymous or authenticated
	router.HandleFunc("/api/payments/orders", mw.GetOrderMiddleware()(h.CreateOrder)).Methods("POST")

	// Authenticated user routes
	router.HandleFunc("/api/payments/my", mw.GetAuthMiddleware()(h.GetMyPayments)).Methods("GET")
	router.HandleFunc("/api/payments/{id}", mw.GetAuthMiddleware()(h.GetPayment)).Methods("GET")

	// Admin routes
	router.HandleFunc("/api/payments", mw.GetAdminMiddleware()(h.ListPayments)).Methods("GET")
	router.HandleFunc("/api/payments/refund", mw.GetAdminMiddleware()(h.Refund)).Methods("POST")
	router.HandleFunc("/api/payments/{id}/reconcile", mw.GetAdminMiddleware()(h.Reconcile)).Methods("POST")
}

// RegisterHealthCheck registers health check endpoint
func (h *PaymentHandler) RegisterHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.repo.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Payment service is healthy",
		})
	}).Methods("GET")
}

// parseTimeParam accepts RFC3339 or a plain date. A plain date used as an upper
// bound covers the whole day.
func parseTimeParam(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// GetMiddlewareConfig returns middleware configuration
func (h *PaymentHandler) GetMiddlewareConfig() MiddlewareConfig {
	return h.middleware
}
