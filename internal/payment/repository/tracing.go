package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/tair/verse-payments/internal/payment/domain"
)

var tracer = otel.Tracer("payment-repository")

// TracingPaymentRepository wraps any PaymentRepository with tracing spans
type TracingPaymentRepository struct {
	next domain.PaymentRepository
}

// NewTracingPaymentRepository creates a repository decorator that records spans
func NewTracingPaymentRepository(next domain.PaymentRepository) *TracingPaymentRepository {
	return &TracingPaymentRepository{next: next}
}

func (r *TracingPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	ctx, span := tracer.Start(ctx, "repository.Create",
		trace.WithAttributes(
			attribute.String("payment.id", payment.ID),
			attribute.Int64("payment.amount", payment.Amount),
			attribute.String("payment.purpose", payment.Purpose),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, payment)
	recordError(span, err)
	return err
}

func (r *TracingPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(attribute.String("payment.id", id)),
	)
	defer span.End()

	p, err := r.next.FindByID(ctx, id)
	recordError(span, err)
	return p, err
}

func (r *TracingPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "repository.FindByOrderID",
		trace.WithAttributes(attribute.String("payment.order_id", orderID)),
	)
	defer span.End()

	p, err := r.next.FindByOrderID(ctx, orderID)
	recordError(span, err)
	return p, err
}

func (r *TracingPaymentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "repository.FindByPaymentID",
		trace.WithAttributes(attribute.String("payment.gateway_payment_id", paymentID)),
	)
	defer span.End()

	p, err := r.next.FindByPaymentID(ctx, paymentID)
	recordError(span, err)
	return p, err
}

func (r *TracingPaymentRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Payment, int64, error) {
	ctx, span := tracer.Start(ctx, "repository.List",
		trace.WithAttributes(
			attribute.String("query.status", string(filter.Status)),
			attribute.Int("query.limit", filter.Limit),
			attribute.Int("query.offset", filter.Offset),
		),
	)
	defer span.End()

	payments, total, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
		return nil, 0, err
	}

	span.SetAttributes(
		attribute.Int("result.count", len(payments)),
		attribute.Int64("result.total", total),
	)
	return payments, total, nil
}

func (r *TracingPaymentRepository) AttachOrder(ctx context.Context, id, orderID string, meta datatypes.JSON) error {
	ctx, span := tracer.Start(ctx, "repository.AttachOrder",
		trace.WithAttributes(
			attribute.String("payment.id", id),
			attribute.String("payment.order_id", orderID),
		),
	)
	defer span.End()

	err := r.next.AttachOrder(ctx, id, orderID, meta)
	recordError(span, err)
	return err
}

func (r *TracingPaymentRepository) ApplyTransition(ctx context.Context, t domain.Transition) (bool, error) {
	ctx, span := tracer.Start(ctx, "repository.ApplyTransition",
		trace.WithAttributes(
			attribute.String("transition.key", string(t.Key)),
			attribute.String("transition.value", t.Value),
			attribute.String("transition.to", string(t.To)),
		),
	)
	defer span.End()

	applied, err := r.next.ApplyTransition(ctx, t)
	if err != nil {
		recordError(span, err)
		return false, err
	}

	span.SetAttributes(attribute.Bool("transition.applied", applied))
	return applied, nil
}

func (r *TracingPaymentRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
