package cart

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

type Service struct {
	repo     cartRepo
	products productRepo
	stores   storeResolver
	logger   *zap.Logger
}

type cartRepo interface {
	GetOrCreate(ctx context.Context, storeID, sessionID string) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID string, line cartrepo.NewLine) error
	SetLineQuantity(ctx context.Context, cartID, productID string, variantID *string, quantity int) error
	RemoveLineItem(ctx context.Context, cartID, productID string, variantID *string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetVariant(ctx context.Context, id string) (*domain.ProductVariant, error)
}

type storeResolver interface {
	ResolveStore(ctx context.Context, storeID, businessID string) (*domain.Store, error)
}

func New(repo cartRepo, products productRepo, stores storeResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, products: products, stores: stores, logger: logger}
}

// ItemInput is the body of add, update and remove requests.
type ItemInput struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Qty       *int    `json:"qty,omitempty"`
}

func (in ItemInput) productID() string {
	return strings.TrimSpace(in.ProductID)
}

func (in ItemInput) variantID() *string {
	if in.VariantID == nil {
		return nil
	}
	v := strings.TrimSpace(*in.VariantID)
	if v == "" {
		return nil
	}
	return &v
}

// Get returns the session cart, creating it on first access.
func (s *Service) Get(ctx context.Context, ref domain.StoreRef, sessionID string) (*domain.Cart, error) {
	store, err := s.stores.ResolveStore(ctx, ref.StoreID, ref.BusinessID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, store.ID, sessionID)
}

func (s *Service) AddItem(ctx context.Context, ref domain.StoreRef, sessionID string, in ItemInput) (*domain.Cart, error) {
	productID := in.productID()
	if productID == "" {
		return nil, domain.ErrProductRequired
	}
	if in.Qty == nil || *in.Qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	qty := *in.Qty

	store, err := s.stores.ResolveStore(ctx, ref.StoreID, ref.BusinessID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProductUnavailable
		}
		return nil, err
	}
	if product.BusinessID != store.BusinessID || !product.Sellable() {
		return nil, domain.ErrProductUnavailable
	}

	var variant *domain.ProductVariant
	variantID := in.variantID()
	if variantID != nil {
		variant, err = s.products.GetVariant(ctx, *variantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrVariantUnavailable
			}
			return nil, err
		}
		if variant.ProductID != product.ID || !variant.Sellable() {
			return nil, domain.ErrVariantUnavailable
		}
	}

	cart, err := s.repo.GetOrCreate(ctx, store.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddLineItem(ctx, cart.ID, snapshotLine(*product, variant, qty)); err != nil {
		return nil, err
	}
	s.logger.Debug("cart: item added",
		zap.String("cart_id", cart.ID),
		zap.String("product_id", product.ID),
		zap.Int("qty", qty),
	)
	return s.repo.GetOrCreate(ctx, store.ID, sessionID)
}

// UpdateItem overwrites a line quantity; zero or less removes the line.
func (s *Service) UpdateItem(ctx context.Context, ref domain.StoreRef, sessionID string, in ItemInput) (*domain.Cart, error) {
	productID := in.productID()
	if productID == "" {
		return nil, domain.ErrProductRequired
	}
	if in.Qty == nil {
		return nil, domain.ErrInvalidQuantity
	}

	store, err := s.stores.ResolveStore(ctx, ref.StoreID, ref.BusinessID)
	if err != nil {
		return nil, err
	}
	cart, err := s.repo.GetOrCreate(ctx, store.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetLineQuantity(ctx, cart.ID, productID, in.variantID(), *in.Qty); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCartItemNotFound
		}
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, store.ID, sessionID)
}

func (s *Service) RemoveItem(ctx context.Context, ref domain.StoreRef, sessionID string, in ItemInput) (*domain.Cart, error) {
	productID := in.productID()
	if productID == "" {
		return nil, domain.ErrProductRequired
	}

	store, err := s.stores.ResolveStore(ctx, ref.StoreID, ref.BusinessID)
	if err != nil {
		return nil, err
	}
	cart, err := s.repo.GetOrCreate(ctx, store.ID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveLineItem(ctx, cart.ID, productID, in.variantID()); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, store.ID, sessionID)
}

func snapshotLine(p domain.Product, v *domain.ProductVariant, qty int) cartrepo.NewLine {
	line := cartrepo.NewLine{
		ProductID:           p.ID,
		Quantity:            qty,
		PriceSnapshot:       domain.EffectivePrice(p, v),
		NameSnapshot:        p.Name,
		WeightGramsSnapshot: domain.EffectiveWeight(p, v),
	}
	if v != nil {
		id, name := v.ID, v.Name
		line.VariantID = &id
		line.VariantSnapshot = &name
	}
	return line
}
