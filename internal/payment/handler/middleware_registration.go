package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/verse-payments/internal/payment/metrics"
)

// MiddlewareConfig holds middleware configuration
type MiddlewareConfig struct {
	EnableLogging bool
	EnableTracing bool
	Metrics       *metrics.Metrics
	// OrderLimiter throttles order creation; nil disables it.
	OrderLimiter *RateLimiter
}

// DefaultMiddlewareConfig returns default middleware configuration
func DefaultMiddlewareConfig(m *metrics.Metrics, orderLimiter *RateLimiter) MiddlewareConfig {
	return MiddlewareConfig{
		EnableLogging: true,
		EnableTracing: true,
		Metrics:       m,
		OrderLimiter:  orderLimiter,
	}
}

// RegisterMiddlewares registers all middlewares to the router
func RegisterMiddlewares(router *mux.Router, config MiddlewareConfig) {
	// Tracing runs first so the logger sees the span
	if config.EnableTracing {
		router.Use(func(next http.Handler) http.Handler {
			return TracingMiddleware("payment-service", next)
		})
	}

	if config.EnableLogging {
		router.Use(LoggingMiddleware)
	}

	if config.Metrics != nil {
		router.Use(MetricsMiddleware(config.Metrics))
	}
}

// GetAuthMiddleware returns the auth middleware
func (config MiddlewareConfig) GetAuthMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return AuthMiddleware
}

// GetAdminMiddleware returns the admin middleware
func (config MiddlewareConfig) GetAdminMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return AdminMiddleware
}

// GetOrderMiddleware returns optional auth followed by the order rate limit
func (config MiddlewareConfig) GetOrderMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return OptionalAuthMiddleware(config.OrderLimiter.Middleware(next))
	}
}
