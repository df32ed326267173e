// Package webhook reconciles asynchronous payment callbacks into sale and
// payment state.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"storefront/internal/domain"
	salerepo "storefront/internal/repository/sale"
	"storefront/internal/service/notify"
)

const instrumentationName = "storefront/internal/service/webhook"

var tracer = otel.Tracer(instrumentationName)

type eventRepo interface {
	Exists(ctx context.Context, provider, eventID string) (bool, error)
	Record(ctx context.Context, provider, eventID string, payload json.RawMessage) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) error
}

type saleRepo interface {
	GetBySaleNumber(ctx context.Context, saleNumber string) (*domain.Sale, error)
	MarkPaid(ctx context.Context, saleID string, effects salerepo.PaidEffects) (bool, error)
	UpdateStatus(ctx context.Context, saleID string, status domain.SaleStatus) (bool, error)
}

type paymentRepo interface {
	UpdateStatus(ctx context.Context, provider, providerRef, status string, raw json.RawMessage) error
}

// Delivery is one inbound callback, already decoded by the transport.
type Delivery struct {
	Provider          string
	EventID           string
	OrderID           string
	TransactionStatus string
	Payload           json.RawMessage
	// Verify checks authenticity. It runs after the duplicate check and
	// before anything is persisted. Nil means the transport already verified.
	Verify func() error
}

type Result struct {
	Duplicate bool
	Status    domain.SaleStatus
}

type Reconciler struct {
	events   eventRepo
	sales    saleRepo
	payments paymentRepo
	logger   *zap.Logger

	deliveries        metric.Int64Counter
	deliveriesEnabled bool
}

func New(events eventRepo, sales saleRepo, payments paymentRepo, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	deliveries, err := otel.GetMeterProvider().Meter(instrumentationName).Int64Counter(
		"webhook.deliveries",
		metric.WithDescription("Payment callbacks by provider and outcome"),
	)
	if err != nil {
		logger.Warn("webhook: unable to register deliveries metric", zap.Error(err))
	}
	return &Reconciler{
		events:            events,
		sales:             sales,
		payments:          payments,
		logger:            logger,
		deliveries:        deliveries,
		deliveriesEnabled: err == nil,
	}
}

// MapStatus converts a raw provider transaction status to a sale status.
func MapStatus(raw string) domain.SaleStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "settlement", "capture":
		return domain.SaleStatusPaid
	case "expire", "deny", "cancel":
		return domain.SaleStatusCancelled
	default:
		return domain.SaleStatusPending
	}
}

// Process applies a delivery at most once per (provider, event id).
func (r *Reconciler) Process(ctx context.Context, d Delivery) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "webhook.Process")
	span.SetAttributes(
		attribute.String("webhook.provider", d.Provider),
		attribute.String("webhook.event_id", d.EventID),
		attribute.String("sale.number", d.OrderID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.countDelivery(ctx, d.Provider, outcome(res, err))
	}()

	if d.EventID == "" {
		d.EventID = d.OrderID
	}
	if d.EventID == "" {
		return Result{}, domain.Validation("order_id wajib diisi")
	}

	seen, err := r.events.Exists(ctx, d.Provider, d.EventID)
	if err != nil {
		return Result{}, err
	}
	if seen {
		r.logger.Info("webhook: duplicate delivery", zap.String("provider", d.Provider), zap.String("event_id", d.EventID))
		return Result{Duplicate: true}, nil
	}

	if d.Verify != nil {
		if err := d.Verify(); err != nil {
			r.logger.Warn("webhook: verification failed", zap.String("provider", d.Provider), zap.String("order_id", d.OrderID), zap.Error(err))
			return Result{}, err
		}
	}

	recorded, err := r.events.Record(ctx, d.Provider, d.EventID, d.Payload)
	if err != nil {
		return Result{}, err
	}
	if !recorded {
		return Result{Duplicate: true}, nil
	}

	status := MapStatus(d.TransactionStatus)
	res.Status = status

	sale, err := r.sales.GetBySaleNumber(ctx, d.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return res, domain.ErrOrderNotFound
		}
		return res, err
	}

	if err := r.payments.UpdateStatus(ctx, d.Provider, sale.SaleNumber, d.TransactionStatus, d.Payload); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return res, err
		}
		r.logger.Warn("webhook: no payment row for provider", zap.String("provider", d.Provider), zap.String("sale_number", sale.SaleNumber))
	}

	if status == domain.SaleStatusPaid {
		if err := r.markPaid(ctx, sale); err != nil {
			return res, err
		}
	} else if _, err := r.sales.UpdateStatus(ctx, sale.ID, status); err != nil {
		return res, err
	}

	if err := r.events.MarkProcessed(ctx, d.Provider, d.EventID); err != nil {
		return res, err
	}
	r.logger.Info("webhook: processed",
		zap.String("provider", d.Provider),
		zap.String("event_id", d.EventID),
		zap.String("sale_number", sale.SaleNumber),
		zap.String("status", string(status)),
	)
	return res, nil
}

func outcome(res Result, err error) string {
	switch {
	case err == nil && res.Duplicate:
		return "duplicate"
	case err == nil:
		return "processed"
	case domain.KindOf(err) == domain.KindAuthentication:
		return "rejected"
	default:
		return "failed"
	}
}

func (r *Reconciler) countDelivery(ctx context.Context, provider, result string) {
	if !r.deliveriesEnabled {
		return
	}
	r.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", result),
	))
}

func (r *Reconciler) markPaid(ctx context.Context, sale *domain.Sale) error {
	paid := *sale
	paid.Status = domain.SaleStatusPaid
	n, err := notify.ForSale(&paid, domain.TemplateOrderPaid)
	if err != nil {
		return err
	}
	analytics, err := purchaseEvent(&paid)
	if err != nil {
		return err
	}

	applied, err := r.sales.MarkPaid(ctx, sale.ID, salerepo.PaidEffects{Notification: n, Analytics: analytics})
	if err != nil {
		return err
	}
	if !applied {
		r.logger.Info("webhook: sale already paid", zap.String("sale_number", sale.SaleNumber))
	}
	return nil
}

func purchaseEvent(s *domain.Sale) (*domain.AnalyticsEvent, error) {
	payload, err := json.Marshal(map[string]any{
		"saleNumber": s.SaleNumber,
		"total":      s.TotalAmount,
		"items":      len(s.Items),
		"promoCode":  s.PromoCode,
	})
	if err != nil {
		return nil, err
	}
	return &domain.AnalyticsEvent{StoreID: s.StoreID, SaleID: s.ID, Event: "purchase", Payload: payload}, nil
}
