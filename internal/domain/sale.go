package domain

import (
	"encoding/json"
	"time"
)

type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusCancelled SaleStatus = "cancelled"
)

type SaleSource string

const (
	SaleSourceOnline SaleSource = "online"
	SaleSourcePOS    SaleSource = "pos"
)

type CustomerContact struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Sale is the customer order produced by checkout.
type Sale struct {
	ID             string
	StoreID        string
	BusinessID     string
	SaleNumber     string
	Subtotal       int64
	DiscountAmount int64
	TaxAmount      int64
	DeliveryFee    int64
	FeeAmount      int64
	TotalAmount    int64
	Status         SaleStatus
	Source         SaleSource
	Customer       CustomerContact
	PromoCode      *string
	ShippingRateID *string
	PaymentURL     *string
	CreatedAt      time.Time
	Items          []SaleItem
}

// SaleItem is an immutable copy of a cart line at checkout time.
type SaleItem struct {
	ID                  string
	SaleID              string
	ProductID           string
	VariantID           *string
	Quantity            int
	UnitPrice           int64
	Subtotal            int64
	NameSnapshot        string
	VariantSnapshot     *string
	WeightGramsSnapshot int
}

// Payment is keyed by (provider, provider_ref) where provider_ref is the sale number.
type Payment struct {
	ID          string
	SaleID      string
	Provider    string
	ProviderRef string
	Amount      int64
	Status      string
	RawJSON     json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	WebhookStatusReceived  = "received"
	WebhookStatusProcessed = "processed"
)

type WebhookEvent struct {
	ID          string
	Provider    string
	EventID     string
	Status      string
	Payload     json.RawMessage
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

const (
	NotificationPending = "pending"
	NotificationQueued  = "queued"
	NotificationFailed  = "failed"

	TemplateOrderCreated = "order_created"
	TemplateOrderPaid    = "order_paid"

	ChannelEmail      = "email"
	ChannelWhatsApp   = "whatsapp"
	ChannelUnassigned = "unassigned"
)

// Notification is an outbox row picked up by the relay.
type Notification struct {
	ID        string          `json:"id"`
	StoreID   string          `json:"storeId"`
	SaleID    string          `json:"saleId"`
	Channel   string          `json:"channel"`
	Template  string          `json:"template"`
	Recipient string          `json:"recipient"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NotificationFor picks the channel from the customer contact. A customer with
// neither an email nor a phone number gets ChannelUnassigned and an empty
// recipient; the delivery worker decides what to do with those rows.
func NotificationFor(c CustomerContact) (channel, recipient string) {
	switch {
	case c.Email != "":
		return ChannelEmail, c.Email
	case c.Phone != "":
		return ChannelWhatsApp, c.Phone
	default:
		return ChannelUnassigned, ""
	}
}

type AnalyticsEvent struct {
	StoreID string
	SaleID  string
	Event   string
	Payload json.RawMessage
}
