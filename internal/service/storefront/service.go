package storefront

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"storefront/internal/cache"
	"storefront/internal/domain"
)

type businessRepo interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Business, error)
}

type storeRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Store, error)
	DefaultForBusiness(ctx context.Context, businessID string) (*domain.Store, error)
}

type productRepo interface {
	ListActiveByBusiness(ctx context.Context, businessID string) ([]domain.Product, error)
}

type shippingRepo interface {
	ListActiveByStore(ctx context.Context, storeID string) ([]domain.ShippingRate, error)
}

type feedCache interface {
	Get(ctx context.Context, slug string) (*domain.StoreFeed, error)
	Set(ctx context.Context, slug string, feed *domain.StoreFeed) error
}

type Service struct {
	businesses businessRepo
	stores     storeRepo
	products   productRepo
	rates      shippingRepo
	cache      feedCache
	sfg        singleflight.Group
	logger     *zap.Logger
}

// New builds the service. feed may be nil, in which case every feed request reads the database.
func New(businesses businessRepo, stores storeRepo, products productRepo, rates shippingRepo, feed feedCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		businesses: businesses,
		stores:     stores,
		products:   products,
		rates:      rates,
		cache:      feed,
		logger:     logger,
	}
}

// ResolveStore prefers an explicit store id and otherwise uses the business default store.
func (s *Service) ResolveStore(ctx context.Context, storeID, businessID string) (*domain.Store, error) {
	storeID = strings.TrimSpace(storeID)
	businessID = strings.TrimSpace(businessID)

	var (
		store *domain.Store
		err   error
	)
	switch {
	case storeID != "":
		store, err = s.stores.GetByID(ctx, storeID)
	case businessID != "":
		store, err = s.stores.DefaultForBusiness(ctx, businessID)
	default:
		return nil, domain.ErrStoreRequired
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, err
	}
	return store, nil
}

func (s *Service) Feed(ctx context.Context, slug string) (*domain.StoreFeed, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, domain.ErrStoreNotFound
	}

	if s.cache != nil {
		feed, err := s.cache.Get(ctx, slug)
		if err == nil {
			return feed, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("storefront: feed cache read failed", zap.String("slug", slug), zap.Error(err))
		}
	}

	v, err, _ := s.sfg.Do(slug, func() (any, error) {
		feed, err := s.loadFeed(ctx, slug)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, slug, feed); err != nil {
				s.logger.Warn("storefront: feed cache write failed", zap.String("slug", slug), zap.Error(err))
			}
		}
		return feed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.StoreFeed), nil
}

func (s *Service) loadFeed(ctx context.Context, slug string) (*domain.StoreFeed, error) {
	business, err := s.businesses.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, err
	}
	products, err := s.products.ListActiveByBusiness(ctx, business.ID)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return &domain.StoreFeed{Profile: *business, Products: products}, nil
}

func (s *Service) ShippingRates(ctx context.Context, storeID string) ([]domain.ShippingRate, error) {
	if strings.TrimSpace(storeID) == "" {
		return nil, domain.ErrStoreRequired
	}
	return s.rates.ListActiveByStore(ctx, strings.TrimSpace(storeID))
}
