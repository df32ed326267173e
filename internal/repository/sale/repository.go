package sale

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrSaleNumberExhausted is returned when every generated sale number collided.
var ErrSaleNumberExhausted = errors.New("sale repo: could not allocate a unique sale number")

// CreateInput carries everything written by a checkout in one transaction.
type CreateInput struct {
	Sale            domain.Sale
	PaymentProvider string
	// Notify builds the order_created outbox row once the sale id and number are known.
	Notify func(*domain.Sale) (*domain.Notification, error)
	// NewSaleNumber is called again after a unique violation on the sale number.
	NewSaleNumber func() string
}

// PaidEffects are applied exactly once, when a sale first becomes paid.
type PaidEffects struct {
	Notification *domain.Notification
	Analytics    *domain.AnalyticsEvent
}

type Repository interface {
	CreatePending(ctx context.Context, in CreateInput) (*domain.Sale, error)
	GetBySaleNumber(ctx context.Context, saleNumber string) (*domain.Sale, error)
	SetPaymentURL(ctx context.Context, saleID, url string) error
	// MarkPaid moves a sale to paid and applies stock, promo, notification and
	// analytics effects in one transaction. It reports false when the sale was
	// already paid and nothing changed.
	MarkPaid(ctx context.Context, saleID string, effects PaidEffects) (bool, error)
	// UpdateStatus overwrites a non-paid status. Paid sales are left untouched.
	UpdateStatus(ctx context.Context, saleID string, status domain.SaleStatus) (bool, error)
}
