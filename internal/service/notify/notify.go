// Package notify builds outbox notifications for sale events.
package notify

import (
	"encoding/json"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"storefront/internal/domain"
)

var printer = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount with Indonesian digit grouping, e.g. "Rp 29.970".
func FormatRupiah(amount int64) string {
	return printer.Sprintf("Rp %d", amount)
}

type orderPayload struct {
	SaleNumber   string            `json:"saleNumber"`
	Status       domain.SaleStatus `json:"status"`
	CustomerName string            `json:"customerName,omitempty"`
	ItemCount    int               `json:"itemCount"`
	Total        int64             `json:"total"`
	TotalDisplay string            `json:"totalDisplay"`
	PaymentURL   *string           `json:"paymentUrl,omitempty"`
}

// ForSale returns the notification for a sale event. Every sale event gets
// one, including sales without customer contact details.
func ForSale(s *domain.Sale, template string) (*domain.Notification, error) {
	channel, recipient := domain.NotificationFor(s.Customer)

	items := 0
	for _, item := range s.Items {
		items += item.Quantity
	}
	payload, err := json.Marshal(orderPayload{
		SaleNumber:   s.SaleNumber,
		Status:       s.Status,
		CustomerName: s.Customer.Name,
		ItemCount:    items,
		Total:        s.TotalAmount,
		TotalDisplay: FormatRupiah(s.TotalAmount),
		PaymentURL:   s.PaymentURL,
	})
	if err != nil {
		return nil, err
	}
	return &domain.Notification{
		StoreID:   s.StoreID,
		SaleID:    s.ID,
		Channel:   channel,
		Template:  template,
		Recipient: recipient,
		Payload:   payload,
		Status:    domain.NotificationPending,
	}, nil
}
