package checkout

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/payments"
	salerepo "storefront/internal/repository/sale"
	"storefront/internal/service/notify"
	"storefront/internal/service/pricing"
)

var tracer = otel.Tracer("storefront/internal/service/checkout")

type storeResolver interface {
	ResolveStore(ctx context.Context, storeID, businessID string) (*domain.Store, error)
}

type cartRepo interface {
	GetBySession(ctx context.Context, storeID, sessionID string) (*domain.Cart, error)
}

type discountRepo interface {
	GetByCode(ctx context.Context, businessID, code string) (*domain.Discount, error)
}

type shippingRepo interface {
	GetByID(ctx context.Context, id string) (*domain.ShippingRate, error)
}

type settingsRepo interface {
	PlatformSettings(ctx context.Context, storeID string) (*domain.PlatformSettings, error)
}

type stockValidator interface {
	Validate(ctx context.Context, items []domain.CartItem) error
}

type saleRepo interface {
	CreatePending(ctx context.Context, in salerepo.CreateInput) (*domain.Sale, error)
	SetPaymentURL(ctx context.Context, saleID, url string) error
}

type Deps struct {
	Stores    storeResolver
	Carts     cartRepo
	Discounts discountRepo
	Shipping  shippingRepo
	Settings  settingsRepo
	Stock     stockValidator
	Sales     saleRepo
	Provider  payments.Provider
	Logger    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Options struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

type Service struct {
	stores    storeResolver
	carts     cartRepo
	discounts discountRepo
	shipping  shippingRepo
	settings  settingsRepo
	stock     stockValidator
	sales     saleRepo
	provider  payments.Provider
	opts      Options
	now       func() time.Time
	newNumber func(time.Time) string
	policy    *bluemonday.Policy
	logger    *zap.Logger
}

func New(deps Deps, opts Options) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Currency == "" {
		opts.Currency = payments.CurrencyIDR
	}
	return &Service{
		stores:    deps.Stores,
		carts:     deps.Carts,
		discounts: deps.Discounts,
		shipping:  deps.Shipping,
		settings:  deps.Settings,
		stock:     deps.Stock,
		sales:     deps.Sales,
		provider:  deps.Provider,
		opts:      opts,
		now:       now,
		newNumber: NewSaleNumber,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

type CustomerInput struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Input struct {
	StoreID        string         `json:"storeId"`
	BusinessID     string         `json:"businessId"`
	ShippingRateID *string        `json:"shippingRateId,omitempty"`
	PromoCode      *string        `json:"promoCode,omitempty"`
	Customer       *CustomerInput `json:"customer,omitempty"`
}

type Result struct {
	OrderID    string  `json:"orderId"`
	SaleNumber string  `json:"saleNumber"`
	PaymentURL *string `json:"payment_url"`
}

// Checkout turns the session cart into a pending sale. Nothing is written
// unless pricing and stock validation pass; the payment page is requested
// after the sale is committed and a provider failure leaves PaymentURL nil.
func (s *Service) Checkout(ctx context.Context, sessionID string, in Input) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "checkout.Checkout")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	store, err := s.stores.ResolveStore(ctx, in.StoreID, in.BusinessID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("store.id", store.ID))

	cart, err := s.carts.GetBySession(ctx, store.ID, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCartNotFound
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.ErrCartEmpty
	}

	now := s.now()
	priceIn := pricing.Input{
		StoreID:      store.ID,
		Subtotal:     cart.Subtotal(),
		WeightGrams:  cart.TotalWeightGrams(),
		StoreTaxRate: store.DefaultTaxRate,
		Now:          now,
	}
	if priceIn.Promo, err = s.resolvePromo(ctx, store.BusinessID, in.PromoCode); err != nil {
		return nil, err
	}
	if priceIn.Shipping, err = s.resolveShipping(ctx, in.ShippingRateID); err != nil {
		return nil, err
	}
	if priceIn.Settings, err = s.resolveSettings(ctx, store.ID); err != nil {
		return nil, err
	}

	breakdown, err := pricing.Compute(priceIn)
	if err != nil {
		return nil, err
	}
	if priceIn.Promo != nil && !breakdown.PromoApplied {
		s.logger.Info("checkout: promo not applied",
			zap.String("store_id", store.ID),
			zap.String("promo_code", priceIn.Promo.Code),
			zap.String("reason", breakdown.PromoReason),
		)
	}

	if err := s.stock.Validate(ctx, cart.Items); err != nil {
		return nil, err
	}

	saved, err := s.sales.CreatePending(ctx, salerepo.CreateInput{
		Sale:            s.buildSale(store, cart, breakdown, priceIn, in.Customer),
		PaymentProvider: s.providerName(),
		Notify: func(sale *domain.Sale) (*domain.Notification, error) {
			return notify.ForSale(sale, domain.TemplateOrderCreated)
		},
		NewSaleNumber: func() string { return s.newNumber(now) },
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("sale.number", saved.SaleNumber))
	s.logger.Info("checkout: sale created",
		zap.String("sale_id", saved.ID),
		zap.String("sale_number", saved.SaleNumber),
		zap.Int64("total", saved.TotalAmount),
	)

	return &Result{
		OrderID:    saved.ID,
		SaleNumber: saved.SaleNumber,
		PaymentURL: s.startPayment(ctx, saved),
	}, nil
}

// startPayment requests a hosted payment page. Failures are logged and swallowed.
func (s *Service) startPayment(ctx context.Context, sale *domain.Sale) *string {
	if s.provider == nil {
		return nil
	}
	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		OrderID:    sale.SaleNumber,
		Amount:     sale.TotalAmount,
		Currency:   s.opts.Currency,
		Customer:   sale.Customer,
		SuccessURL: s.opts.SuccessURL,
		CancelURL:  s.opts.CancelURL,
	})
	if err != nil {
		s.logger.Warn("checkout: payment session failed", zap.String("sale_number", sale.SaleNumber), zap.Error(err))
		return nil
	}
	if session.RedirectURL == "" {
		return nil
	}
	if err := s.sales.SetPaymentURL(ctx, sale.ID, session.RedirectURL); err != nil {
		s.logger.Warn("checkout: storing payment url failed", zap.String("sale_number", sale.SaleNumber), zap.Error(err))
	}
	url := session.RedirectURL
	return &url
}

func (s *Service) providerName() string {
	if s.provider == nil {
		return payments.ProviderMidtrans
	}
	return s.provider.Name()
}

func (s *Service) resolvePromo(ctx context.Context, businessID string, code *string) (*domain.Discount, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}
	promo, err := s.discounts.GetByCode(ctx, businessID, *code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("checkout: unknown promo code", zap.String("business_id", businessID), zap.String("promo_code", *code))
			return nil, nil
		}
		return nil, err
	}
	return promo, nil
}

func (s *Service) resolveShipping(ctx context.Context, id *string) (*domain.ShippingRate, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	rate, err := s.shipping.GetByID(ctx, strings.TrimSpace(*id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrShippingNotFound
		}
		return nil, err
	}
	return rate, nil
}

func (s *Service) resolveSettings(ctx context.Context, storeID string) (*domain.PlatformSettings, error) {
	settings, err := s.settings.PlatformSettings(ctx, storeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return settings, nil
}

func (s *Service) buildSale(store *domain.Store, cart *domain.Cart, b pricing.Breakdown, in pricing.Input, customer *CustomerInput) domain.Sale {
	sale := domain.Sale{
		StoreID:        store.ID,
		BusinessID:     store.BusinessID,
		Subtotal:       b.Subtotal,
		DiscountAmount: b.Discount,
		TaxAmount:      b.Tax,
		DeliveryFee:    b.Shipping,
		FeeAmount:      b.Fee,
		TotalAmount:    b.Total,
		Status:         domain.SaleStatusPending,
		Source:         domain.SaleSourceOnline,
		Customer:       s.sanitizeCustomer(customer),
	}
	if b.PromoApplied {
		code := in.Promo.Code
		sale.PromoCode = &code
	}
	if in.Shipping != nil {
		id := in.Shipping.ID
		sale.ShippingRateID = &id
	}

	sale.Items = make([]domain.SaleItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		sale.Items = append(sale.Items, domain.SaleItem{
			ProductID:           item.ProductID,
			VariantID:           item.VariantID,
			Quantity:            item.Quantity,
			UnitPrice:           item.PriceSnapshot,
			Subtotal:            item.LineTotal(),
			NameSnapshot:        item.NameSnapshot,
			VariantSnapshot:     item.VariantSnapshot,
			WeightGramsSnapshot: item.WeightGramsSnapshot,
		})
	}
	return sale
}

func (s *Service) sanitizeCustomer(in *CustomerInput) domain.CustomerContact {
	if in == nil {
		return domain.CustomerContact{}
	}
	return domain.CustomerContact{
		Email:   strings.ToLower(s.clean(in.Email)),
		Name:    s.clean(in.Name),
		Phone:   s.clean(in.Phone),
		Address: s.clean(in.Address),
	}
}

// clean strips markup and returns plain text.
func (s *Service) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(strings.TrimSpace(v))))
}
