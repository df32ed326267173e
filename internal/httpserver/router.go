package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	webhooksvc "storefront/internal/service/webhook"
)

type cartService interface {
	Get(ctx context.Context, ref domain.StoreRef, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, ref domain.StoreRef, sessionID string, in cartsvc.ItemInput) (*domain.Cart, error)
	UpdateItem(ctx context.Context, ref domain.StoreRef, sessionID string, in cartsvc.ItemInput) (*domain.Cart, error)
	RemoveItem(ctx context.Context, ref domain.StoreRef, sessionID string, in cartsvc.ItemInput) (*domain.Cart, error)
}

type checkoutService interface {
	Checkout(ctx context.Context, sessionID string, in checkoutsvc.Input) (*checkoutsvc.Result, error)
}

type reconciler interface {
	Process(ctx context.Context, d webhooksvc.Delivery) (webhooksvc.Result, error)
}

type storefrontService interface {
	Feed(ctx context.Context, slug string) (*domain.StoreFeed, error)
	ShippingRates(ctx context.Context, storeID string) ([]domain.ShippingRate, error)
}

// Deps groups the services the router dispatches to.
type Deps struct {
	CartSvc       cartService
	CheckoutSvc   checkoutService
	Reconciler    reconciler
	StorefrontSvc storefrontService

	MidtransServerKey   string
	StripeWebhookSecret string

	CORSAllowedOrigins []string
	CookieSecure       bool
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db readinessProbe, deps Deps) (*gin.Engine, error) {
	if deps.CartSvc == nil || deps.CheckoutSvc == nil || deps.Reconciler == nil || deps.StorefrontSvc == nil {
		return nil, errors.New("httpserver: all services are required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID(), accessLog(logger), gin.Recovery())
	if len(deps.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	session := sessionMiddleware(deps.CookieSecure)
	router.GET("/cart", session, getCartHandler(deps.CartSvc))
	router.POST("/cart", session, addCartItemHandler(deps.CartSvc))
	router.PUT("/cart", session, updateCartItemHandler(deps.CartSvc))
	router.DELETE("/cart", session, removeCartItemHandler(deps.CartSvc))
	router.POST("/checkout", session, checkoutHandler(deps.CheckoutSvc))

	router.POST("/webhooks/midtrans", midtransWebhookHandler(deps.Reconciler, deps.MidtransServerKey, logger))
	router.POST("/webhooks/stripe", stripeWebhookHandler(deps.Reconciler, deps.StripeWebhookSecret, logger))

	router.GET("/public/stores/:slug", storeFeedHandler(deps.StorefrontSvc))
	router.GET("/shipping-rates", shippingRatesHandler(deps.StorefrontSvc))

	return router, nil
}
