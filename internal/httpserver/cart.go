package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

type cartItemRequest struct {
	StoreID    string `json:"storeId"`
	BusinessID string `json:"businessId"`
	cartsvc.ItemInput
}

func (r cartItemRequest) ref() domain.StoreRef {
	return domain.StoreRef{StoreID: strings.TrimSpace(r.StoreID), BusinessID: strings.TrimSpace(r.BusinessID)}
}

type cartResponse struct {
	CartID    string            `json:"cartId"`
	SessionID string            `json:"sessionId"`
	Items     []domain.CartItem `json:"items"`
	Subtotal  int64             `json:"subtotal"`
}

func toCartResponse(cart *domain.Cart) cartResponse {
	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		CartID:    cart.ID,
		SessionID: cart.SessionID,
		Items:     items,
		Subtotal:  cart.Subtotal(),
	}
}

func getCartHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := domain.StoreRef{
			StoreID:    strings.TrimSpace(c.Query("storeId")),
			BusinessID: strings.TrimSpace(c.Query("businessId")),
		}
		cart, err := svc.Get(c.Request.Context(), ref, sessionID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toCartResponse(cart))
	}
}

func addCartItemHandler(svc cartService) gin.HandlerFunc {
	return mutateCart(func(c *gin.Context, req cartItemRequest) error {
		_, err := svc.AddItem(c.Request.Context(), req.ref(), sessionID(c), req.ItemInput)
		return err
	})
}

func updateCartItemHandler(svc cartService) gin.HandlerFunc {
	return mutateCart(func(c *gin.Context, req cartItemRequest) error {
		_, err := svc.UpdateItem(c.Request.Context(), req.ref(), sessionID(c), req.ItemInput)
		return err
	})
}

func removeCartItemHandler(svc cartService) gin.HandlerFunc {
	return mutateCart(func(c *gin.Context, req cartItemRequest) error {
		_, err := svc.RemoveItem(c.Request.Context(), req.ref(), sessionID(c), req.ItemInput)
		return err
	})
}

func mutateCart(apply func(*gin.Context, cartItemRequest) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		if err := apply(c, req); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
