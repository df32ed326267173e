package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront/internal/payments"
	webhooksvc "storefront/internal/service/webhook"
)

const maxWebhookBody = 1 << 20

func readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "invalid request body")
		return nil, false
	}
	return body, true
}

func midtransWebhookHandler(rec reconciler, serverKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}
		var n payments.MidtransNotification
		if err := json.Unmarshal(body, &n); err != nil || n.OrderID == "" {
			badRequest(c, "invalid notification payload")
			return
		}

		res, err := rec.Process(c.Request.Context(), webhooksvc.Delivery{
			Provider:          payments.ProviderMidtrans,
			EventID:           n.EventID(),
			OrderID:           n.OrderID,
			TransactionStatus: n.TransactionStatus,
			Payload:           body,
			Verify:            func() error { return payments.VerifyMidtransSignature(n, serverKey) },
		})
		if err != nil {
			writeError(c, err)
			return
		}
		logger.Debug("midtrans webhook handled", zap.String("order_id", n.OrderID), zap.Bool("duplicate", res.Duplicate))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// stripeWebhookHandler verifies the signature before the duplicate check
// because the event id is only trustworthy once the payload is verified.
func stripeWebhookHandler(rec reconciler, secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}
		event, err := payments.ParseStripeEvent(body, c.GetHeader("Stripe-Signature"), secret)
		if errors.Is(err, payments.ErrIgnoredStripeEvent) {
			logger.Debug("stripe webhook ignored", zap.String("type", event.Type), zap.String("event_id", event.ID))
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		if event.OrderID == "" {
			badRequest(c, "checkout session has no order reference")
			return
		}

		if _, err := rec.Process(c.Request.Context(), webhooksvc.Delivery{
			Provider:          payments.ProviderStripe,
			EventID:           event.ID,
			OrderID:           event.OrderID,
			TransactionStatus: event.TransactionStatus,
			Payload:           event.Payload,
		}); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
