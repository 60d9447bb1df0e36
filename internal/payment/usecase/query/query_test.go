package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/repository"
)

func seed(t *testing.T, repo domain.PaymentRepository, userID string, n int) []string {
	t.Helper()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		user := userID
		p := &domain.Payment{
			ID:        uuid.NewString(),
			UserID:    &user,
			Amount:    int64(100 * (i + 1)),
			Currency:  "INR",
			Purpose:   "donation",
			Status:    domain.StatusCreated,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), p))
		ids = append(ids, p.ID)
	}
	return ids
}

func TestGetPayment(t *testing.T) {
	repo := repository.NewMemoryPaymentRepository()
	ids := seed(t, repo, "alice", 1)
	h := NewGetPaymentHandler(repo)
	ctx := context.Background()

	p, err := h.Handle(ctx, GetPaymentQuery{ID: ids[0], CallerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, ids[0], p.ID)

	_, err = h.Handle(ctx, GetPaymentQuery{ID: ids[0], CallerID: "bob"})
	assert.ErrorIs(t, err, domain.ErrNotFound, "other users' payments are hidden")

	_, err = h.Handle(ctx, GetPaymentQuery{ID: ids[0], CallerID: "bob", IsAdmin: true})
	assert.NoError(t, err)

	_, err = h.Handle(ctx, GetPaymentQuery{ID: "missing", IsAdmin: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.Handle(ctx, GetPaymentQuery{ID: " ", IsAdmin: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPayments(t *testing.T) {
	repo := repository.NewMemoryPaymentRepository()
	ids := seed(t, repo, "alice", 15)
	seed(t, repo, "bob", 3)
	h := NewListPaymentsHandler(repo)
	ctx := context.Background()

	page, err := h.Handle(ctx, ListPaymentsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, int64(18), page.Total)
	assert.Len(t, page.Items, 10)

	page, err = h.Handle(ctx, ListPaymentsQuery{UserID: "alice", Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(15), page.Total)
	require.Len(t, page.Items, 5)
	assert.Equal(t, ids[4], page.Items[0].ID)

	page, err = h.Handle(ctx, ListPaymentsQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)

	page, err = h.Handle(ctx, ListPaymentsQuery{Status: "paid"})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)

	_, err = h.Handle(ctx, ListPaymentsQuery{Status: "pending"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestGetMyPayments(t *testing.T) {
	repo := repository.NewMemoryPaymentRepository()
	seed(t, repo, "alice", 2)
	seed(t, repo, "bob", 4)
	h := NewGetMyPaymentsHandler(repo)

	page, err := h.Handle(context.Background(), GetMyPaymentsQuery{UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	for _, p := range page.Items {
		assert.True(t, p.OwnedBy("bob"))
	}

	_, err = h.Handle(context.Background(), GetMyPaymentsQuery{})
	assert.Error(t, err)
}
