package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutsvc "storefront/internal/service/checkout"
)

func checkoutHandler(svc checkoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutsvc.Input
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		res, err := svc.Checkout(c.Request.Context(), sessionID(c), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
