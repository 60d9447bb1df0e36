package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// CreateOrder godoc
// @Summary Create a payment order
// @Description Records a payment and opens a gateway order. Anonymous checkout is allowed.
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{amount=number,purpose=string} true "Payment request"
// @Success 201 {object} object{orderId=string,amount=int,currency=string,localPaymentId=string}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 429 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/payments/orders [post]
func (h *PaymentHandler) CreateOrderDoc() {}

// Webhook godoc
// @Summary Receive gateway webhook
// @Description Verifies X-Razorpay-Signature over the raw body and applies the event
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Razorpay-Signature header string true "HMAC-SHA256 of the body"
// @Param X-Razorpay-Event-Id header string false "Delivery id"
// @Success 200 {object} object{received=bool}
// @Failure 400 {object} object{success=bool,error=string}
// @Router /api/payments/webhook [post]
func (h *PaymentHandler) WebhookDoc() {}

// Refund godoc
// @Summary Refund a payment
// @Description Refunds a paid payment in full or in part (Admin only)
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{paymentId=string,amount=number} true "Refund request"
// @Success 200 {object} object{refund=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/payments/refund [post]
func (h *PaymentHandler) RefundDoc() {}

// Reconcile godoc
// @Summary Reconcile a payment with the gateway
// @Description Fetches the gateway payment and applies its status (Admin only)
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} object{payment=object,changed=bool}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/payments/{id}/reconcile [post]
func (h *PaymentHandler) ReconcileDoc() {}

// GetPayment godoc
// @Summary Get payment by ID
// @Description Owners see their own payments, admins see all
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} object
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/payments/{id} [get]
func (h *PaymentHandler) GetPaymentDoc() {}

// ListPayments godoc
// @Summary List payments
// @Description Filtered, paginated payment listing (Admin only)
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param status query string false "created, paid, failed or refunded"
// @Param purpose query string false "Purpose"
// @Param userId query string false "Owner"
// @Param from query string false "Created at or after (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "Created at or before (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} object{page=int,limit=int,total=int,items=[]object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/payments [get]
func (h *PaymentHandler) ListPaymentsDoc() {}

// GetMyPayments godoc
// @Summary Get my payments
// @Description Payments of the authenticated user
// @Tags Payments
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} object{page=int,limit=int,total=int,items=[]object}
// @Failure 401 {object} object{success=bool,error=string}
// @Router /api/payments/my [get]
func (h *PaymentHandler) GetMyPaymentsDoc() {}
