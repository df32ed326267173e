package storefront

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/cache"
	"storefront/internal/domain"
)

type stubBusinessRepo struct {
	business *domain.Business
	err      error
	calls    atomic.Int32
	delay    time.Duration
}

func (s *stubBusinessRepo) GetBySlug(_ context.Context, slug string) (*domain.Business, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.business == nil || s.business.Slug != slug {
		return nil, domain.ErrNotFound
	}
	return s.business, nil
}

type stubStoreRepo struct {
	byID           map[string]*domain.Store
	defaults       map[string]*domain.Store
	lastBusinessID string
}

func (s *stubStoreRepo) GetByID(_ context.Context, id string) (*domain.Store, error) {
	if st, ok := s.byID[id]; ok {
		return st, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubStoreRepo) DefaultForBusiness(_ context.Context, businessID string) (*domain.Store, error) {
	s.lastBusinessID = businessID
	if st, ok := s.defaults[businessID]; ok {
		return st, nil
	}
	return nil, domain.ErrNotFound
}

type stubProductRepo struct {
	products []domain.Product
}

func (s *stubProductRepo) ListActiveByBusiness(_ context.Context, _ string) ([]domain.Product, error) {
	return s.products, nil
}

type stubShippingRepo struct {
	rates       []domain.ShippingRate
	lastStoreID string
}

func (s *stubShippingRepo) ListActiveByStore(_ context.Context, storeID string) ([]domain.ShippingRate, error) {
	s.lastStoreID = storeID
	return s.rates, nil
}

func TestResolveStore(t *testing.T) {
	main := &domain.Store{ID: "s1", BusinessID: "b1"}
	stores := &stubStoreRepo{
		byID:     map[string]*domain.Store{"s1": main},
		defaults: map[string]*domain.Store{"b1": main},
	}
	svc := New(nil, stores, nil, nil, nil, nil)
	ctx := context.Background()

	got, err := svc.ResolveStore(ctx, "s1", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Empty(t, stores.lastBusinessID, "explicit store id wins")

	got, err = svc.ResolveStore(ctx, "", " b1 ")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	_, err = svc.ResolveStore(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrStoreRequired)

	_, err = svc.ResolveStore(ctx, "missing", "")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)

	_, err = svc.ResolveStore(ctx, "", "b-missing")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestFeedWithoutCache(t *testing.T) {
	businesses := &stubBusinessRepo{business: &domain.Business{ID: "b1", Slug: "kopi"}}
	svc := New(businesses, nil, &stubProductRepo{}, nil, nil, nil)

	feed, err := svc.Feed(context.Background(), " KOPI ")
	require.NoError(t, err)
	assert.Equal(t, "b1", feed.Profile.ID)
	assert.NotNil(t, feed.Products)

	_, err = svc.Feed(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestFeedUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	businesses := &stubBusinessRepo{business: &domain.Business{ID: "b1", Slug: "kopi", Name: "Kopi"}}
	products := &stubProductRepo{products: []domain.Product{{ID: "p1", Name: "Latte"}}}
	svc := New(businesses, nil, products, nil, cache.NewFeedCache(client, time.Minute), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		feed, err := svc.Feed(ctx, "kopi")
		require.NoError(t, err)
		assert.Equal(t, "Latte", feed.Products[0].Name)
	}
	assert.Equal(t, int32(1), businesses.calls.Load())
	assert.True(t, mr.Exists("feed:kopi"))
}

func TestFeedCollapsesConcurrentMisses(t *testing.T) {
	businesses := &stubBusinessRepo{business: &domain.Business{ID: "b1", Slug: "kopi"}, delay: 50 * time.Millisecond}
	svc := New(businesses, nil, &stubProductRepo{}, nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Feed(context.Background(), "kopi")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, businesses.calls.Load(), int32(10))
}

func TestFeedDegradesWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	businesses := &stubBusinessRepo{business: &domain.Business{ID: "b1", Slug: "kopi"}}
	svc := New(businesses, nil, &stubProductRepo{}, nil, cache.NewFeedCache(client, time.Minute), nil)

	feed, err := svc.Feed(context.Background(), "kopi")
	require.NoError(t, err)
	assert.Equal(t, "b1", feed.Profile.ID)
}

func TestFeedPropagatesRepoError(t *testing.T) {
	svc := New(&stubBusinessRepo{err: errors.New("boom")}, nil, &stubProductRepo{}, nil, nil, nil)
	_, err := svc.Feed(context.Background(), "kopi")
	assert.EqualError(t, err, "boom")
}

func TestShippingRates(t *testing.T) {
	rates := &stubShippingRepo{rates: []domain.ShippingRate{{ID: "r1"}}}
	svc := New(nil, nil, nil, rates, nil, nil)

	got, err := svc.ShippingRates(context.Background(), " s1 ")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "s1", rates.lastStoreID)

	_, err = svc.ShippingRates(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrStoreRequired)
}
