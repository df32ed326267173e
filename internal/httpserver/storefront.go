package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

func storeFeedHandler(svc storefrontService) gin.HandlerFunc {
	return func(c *gin.Context) {
		feed, err := svc.Feed(c.Request.Context(), c.Param("slug"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, feed)
	}
}

func shippingRatesHandler(svc storefrontService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rates, err := svc.ShippingRates(c.Request.Context(), c.Query("storeId"))
		if err != nil {
			writeError(c, err)
			return
		}
		if rates == nil {
			rates = []domain.ShippingRate{}
		}
		c.JSON(http.StatusOK, gin.H{"rates": rates})
	}
}
