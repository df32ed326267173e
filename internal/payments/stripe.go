package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
	"storefront/internal/domain"
)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Sessions stripeSessionAPI
}

// StripeProvider creates Stripe Checkout sessions.
type StripeProvider struct {
	sessions stripeSessionAPI
}

func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	sessions := cfg.Sessions
	if sessions == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sessions = client.New(apiKey, cfg.Backends).CheckoutSessions
	}
	return &StripeProvider{sessions: sessions}, nil
}

func (p *StripeProvider) Name() string { return ProviderStripe }

// CreateCheckoutSession creates a single line Stripe Checkout session for the order
// total. The order id travels as the client reference id.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	currency := strings.ToLower(defaultString(req.Currency, CurrencyIDR))
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(stripeMinorUnits(req.Amount, currency)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Order " + req.OrderID),
				},
			},
		}},
		Metadata: map[string]string{"order_id": req.OrderID},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderID)
	if req.SuccessURL != "" {
		params.SuccessURL = stripe.String(req.SuccessURL)
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}
	if req.Customer.Email != "" {
		params.CustomerEmail = stripe.String(req.Customer.Email)
	}

	session, err := p.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return CheckoutSession{
		ID:          session.ID,
		Provider:    ProviderStripe,
		RedirectURL: session.URL,
	}, nil
}

// Stripe treats IDR as a two-decimal currency, so whole rupiah are scaled by 100.
var zeroDecimalCurrencies = map[string]bool{
	"jpy": true,
	"krw": true,
	"vnd": true,
	"clp": true,
	"pyg": true,
}

func stripeMinorUnits(amount int64, currency string) int64 {
	if zeroDecimalCurrencies[currency] {
		return amount
	}
	return amount * 100
}

// StripeEvent is a verified Stripe checkout event reduced to the fields the
// reconciler consumes. TransactionStatus uses the Midtrans vocabulary.
type StripeEvent struct {
	ID                string
	Type              string
	OrderID           string
	TransactionStatus string
	Payload           json.RawMessage
}

// ErrIgnoredStripeEvent marks verified events that carry no order status change.
var ErrIgnoredStripeEvent = errors.New("stripe: event ignored")

// ParseStripeEvent verifies the Stripe-Signature header and maps checkout
// session events to a transaction status.
func ParseStripeEvent(payload []byte, signature, secret string) (StripeEvent, error) {
	if strings.TrimSpace(secret) == "" {
		return StripeEvent{}, domain.ErrMissingServerKey
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return StripeEvent{}, domain.ErrInvalidSignature
	}

	out := StripeEvent{ID: event.ID, Type: string(event.Type), Payload: json.RawMessage(payload)}
	var session stripe.CheckoutSession
	switch out.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return StripeEvent{}, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			out.TransactionStatus = "pending"
		} else {
			out.TransactionStatus = "settlement"
		}
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return StripeEvent{}, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		out.TransactionStatus = "expire"
	default:
		return out, ErrIgnoredStripeEvent
	}
	out.OrderID = session.ClientReferenceID
	if out.OrderID == "" {
		out.OrderID = session.Metadata["order_id"]
	}
	return out, nil
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
