package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
)

const (
	ProviderMidtrans = "midtrans"
	ProviderStripe   = "stripe"

	CurrencyIDR = "IDR"
)

// ErrUnsupportedProvider is returned when no provider is registered under a name.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// CheckoutSessionRequest captures the payload required to create a hosted payment page.
type CheckoutSessionRequest struct {
	// OrderID is the sale number; providers echo it back in their callbacks.
	OrderID    string
	Amount     int64
	Currency   string
	Customer   domain.CustomerContact
	SuccessURL string
	CancelURL  string
}

// CheckoutSession represents the hosted payment page returned by the provider.
type CheckoutSession struct {
	ID          string
	Provider    string
	RedirectURL string
}

// Provider defines the contract for payment gateway adapters.
type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}

// ProviderConfig selects and configures the active gateway.
type ProviderConfig struct {
	Name              string
	MidtransServerKey string
	MidtransBaseURL   string
	StripeAPIKey      string
}

// NewProvider builds the configured gateway adapter.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case ProviderMidtrans, "":
		p, err := NewMidtransProvider(MidtransConfig{ServerKey: cfg.MidtransServerKey, BaseURL: cfg.MidtransBaseURL})
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderStripe:
		p, err := NewStripeProvider(StripeProviderConfig{APIKey: cfg.StripeAPIKey})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Name)
	}
}
