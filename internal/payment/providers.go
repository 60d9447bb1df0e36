package payment

import (
	"time"

	"github.com/google/wire"

	"github.com/tair/verse-payments/internal/payment/client"
	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/handler"
	"github.com/tair/verse-payments/internal/payment/ledger"
	"github.com/tair/verse-payments/internal/payment/metrics"
	"github.com/tair/verse-payments/internal/payment/repository"
	"github.com/tair/verse-payments/internal/payment/usecase/command"
	"github.com/tair/verse-payments/internal/payment/usecase/query"
	"github.com/tair/verse-payments/internal/payment/webhook"
)

// Settings are the values the payment core needs from configuration
type Settings struct {
	Currency      string
	WebhookSecret string
	Gateway       client.Config
}

// Infrastructure is what the binary builds before the handler graph: the chosen
// store and the optional Redis and Kafka backed collaborators.
type Infrastructure struct {
	Repository   domain.PaymentRepository
	Publisher    ledger.StatusPublisher
	Deliveries   command.DeliveryStore
	OrderLimiter *handler.RateLimiter
	Metrics      *metrics.Metrics
}

// ProvideRepository wraps the configured store with tracing spans
func ProvideRepository(infra Infrastructure) domain.PaymentRepository {
	return repository.NewTracingPaymentRepository(infra.Repository)
}

// ProvideMetrics provides the collectors
func ProvideMetrics(infra Infrastructure) *metrics.Metrics {
	if infra.Metrics == nil {
		return metrics.NewNoop()
	}
	return infra.Metrics
}

// ProvideGateway provides the Razorpay client
func ProvideGateway(settings Settings, m *metrics.Metrics) command.Gateway {
	cfg := settings.Gateway
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return client.NewRazorpayClient(cfg, m)
}

// ProvideVerifier provides the webhook signature verifier
func ProvideVerifier(settings Settings) *webhook.Verifier {
	return webhook.NewVerifier(settings.WebhookSecret)
}

// ProvideLedger provides the payment ledger
func ProvideLedger(repo domain.PaymentRepository, infra Infrastructure, m *metrics.Metrics) *ledger.Ledger {
	return ledger.New(repo, infra.Publisher, m)
}

// Command Handlers Providers
func ProvideCreateOrderHandler(repo domain.PaymentRepository, gateway command.Gateway, settings Settings) *command.CreateOrderHandler {
	return command.NewCreateOrderHandler(repo, gateway, settings.Currency)
}

func ProvideHandleWebhookHandler(verifier *webhook.Verifier, l *ledger.Ledger, infra Infrastructure, m *metrics.Metrics) *command.HandleWebhookHandler {
	return command.NewHandleWebhookHandler(verifier, l, infra.Deliveries, m)
}

func ProvideRefundPaymentHandler(repo domain.PaymentRepository, gateway command.Gateway, l *ledger.Ledger) *command.RefundPaymentHandler {
	return command.NewRefundPaymentHandler(repo, gateway, l)
}

func ProvideReconcilePaymentHandler(repo domain.PaymentRepository, gateway command.Gateway, l *ledger.Ledger) *command.ReconcilePaymentHandler {
	return command.NewReconcilePaymentHandler(repo, gateway, l)
}

// Query Handlers Providers
func ProvideGetPaymentHandler(repo domain.PaymentRepository) *query.GetPaymentHandler {
	return query.NewGetPaymentHandler(repo)
}

func ProvideListPaymentsHandler(repo domain.PaymentRepository) *query.ListPaymentsHandler {
	return query.NewListPaymentsHandler(repo)
}

func ProvideGetMyPaymentsHandler(repo domain.PaymentRepository) *query.GetMyPaymentsHandler {
	return query.NewGetMyPaymentsHandler(repo)
}

// ProvideMiddlewareConfig provides the HTTP middleware configuration
func ProvideMiddlewareConfig(m *metrics.Metrics, infra Infrastructure) handler.MiddlewareConfig {
	return handler.DefaultMiddlewareConfig(m, infra.OrderLimiter)
}

// Wire sets
var InfrastructureSet = wire.NewSet(
	ProvideRepository,
	ProvideMetrics,
	ProvideGateway,
	ProvideVerifier,
	ProvideLedger,
)

var CommandHandlerSet = wire.NewSet(
	ProvideCreateOrderHandler,
	ProvideHandleWebhookHandler,
	ProvideRefundPaymentHandler,
	ProvideReconcilePaymentHandler,
)

var QueryHandlerSet = wire.NewSet(
	ProvideGetPaymentHandler,
	ProvideListPaymentsHandler,
	ProvideGetMyPaymentsHandler,
)

var AllHandlersSet = wire.NewSet(
	InfrastructureSet,
	CommandHandlerSet,
	QueryHandlerSet,
	ProvideMiddlewareConfig,
)
