package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindUnavailable, domain.KindAuthentication:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"message": ...} and records it for the access log.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"message": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
