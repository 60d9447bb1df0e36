package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/datatypes"

	"github.com/tair/verse-payments/internal/payment/domain"
)

// MongoPaymentRepository stores payments as documents in the "payments" collection
type MongoPaymentRepository struct {
	coll *mongo.Collection
}

// NewMongoPaymentRepository creates a MongoDB backed payment repository
func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	return &MongoPaymentRepository{coll: db.Collection("payments")}
}

type paymentDocument struct {
	ID        string    `bson:"_id"`
	UserID    *string   `bson:"user_id,omitempty"`
	OrderID   *string   `bson:"order_id,omitempty"`
	PaymentID *string   `bson:"payment_id,omitempty"`
	Amount    int64     `bson:"amount"`
	Currency  string    `bson:"currency"`
	Purpose   string    `bson:"purpose"`
	Status    string    `bson:"status"`
	Meta      bson.D    `bson:"meta,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// EnsureIndexes creates the unique order index and the lookup indexes.
// order_id is only unique among documents that have one.
func (r *MongoPaymentRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"order_id": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "payment_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}
	return nil
}

// Create inserts a new payment document
func (r *MongoPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	doc, err := toDocument(payment)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// FindByID retrieves a payment by local id
func (r *MongoPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByOrderID retrieves a payment by gateway order id
func (r *MongoPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.findOne(ctx, bson.M{"order_id": orderID})
}

// FindByPaymentID retrieves a payment by gateway payment id
func (r *MongoPaymentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return r.findOne(ctx, bson.M{"payment_id": paymentID})
}

func (r *MongoPaymentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Payment, error) {
	var doc paymentDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return fromDocument(doc)
}

// List returns one page of payments matching filter, newest first, and the total match count
func (r *MongoPaymentRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Payment, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Purpose != "" {
		query["purpose"] = filter.Purpose
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lte"] = *filter.To
		}
		query["created_at"] = created
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	var docs []paymentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode payments: %w", err)
	}

	payments := make([]domain.Payment, 0, len(docs))
	for _, doc := range docs {
		p, err := fromDocument(doc)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, *p)
	}
	return payments, total, nil
}

// AttachOrder sets the gateway order id on a document that has none
func (r *MongoPaymentRepository) AttachOrder(ctx context.Context, id, orderID string, meta datatypes.JSON) error {
	set := bson.M{
		"order_id":   orderID,
		"updated_at": time.Now().UTC(),
	}
	if len(meta) > 0 {
		m, err := metaToBSON(meta)
		if err != nil {
			return err
		}
		set["meta"] = m
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "order_id": nil},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to attach order: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrOrderAttached
	}
	return nil
}

// ApplyTransition runs the guarded status update as a single filtered UpdateOne
func (r *MongoPaymentRepository) ApplyTransition(ctx context.Context, t domain.Transition) (bool, error) {
	if t.Key != domain.ByOrderID && t.Key != domain.ByPaymentID {
		return false, fmt.Errorf("unsupported lookup key %q", t.Key)
	}

	set := bson.M{
		"status":     string(t.To),
		"updated_at": time.Now().UTC(),
	}
	if t.PaymentID != "" {
		set["payment_id"] = t.PaymentID
	}
	if len(t.Meta) > 0 {
		m, err := metaToBSON(t.Meta)
		if err != nil {
			return false, err
		}
		set["meta"] = m
	}

	filter := bson.M{
		string(t.Key): t.Value,
		"status":      bson.M{"$in": statusStrings(t.From)},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to apply transition to %s: %w", t.To, err)
	}
	return res.MatchedCount > 0, nil
}

// Ping checks the primary is reachable
func (r *MongoPaymentRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func toDocument(p *domain.Payment) (paymentDocument, error) {
	doc := paymentDocument{
		ID:        p.ID,
		UserID:    p.UserID,
		OrderID:   p.OrderID,
		PaymentID: p.PaymentID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Purpose:   p.Purpose,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if len(p.Meta) > 0 {
		m, err := metaToBSON(p.Meta)
		if err != nil {
			return doc, err
		}
		doc.Meta = m
	}
	return doc, nil
}

func fromDocument(doc paymentDocument) (*domain.Payment, error) {
	p := &domain.Payment{
		ID:        doc.ID,
		UserID:    doc.UserID,
		OrderID:   doc.OrderID,
		PaymentID: doc.PaymentID,
		Amount:    doc.Amount,
		Currency:  doc.Currency,
		Purpose:   doc.Purpose,
		Status:    domain.Status(doc.Status),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if len(doc.Meta) > 0 {
		raw, err := bson.MarshalExtJSON(doc.Meta, false, false)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payment meta: %w", err)
		}
		p.Meta = raw
	}
	return p, nil
}

// metaToBSON stores gateway payloads as queryable sub-documents
func metaToBSON(meta datatypes.JSON) (bson.D, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(meta, false, &d); err != nil {
		return nil, fmt.Errorf("failed to decode payment meta: %w", err)
	}
	return d, nil
}
