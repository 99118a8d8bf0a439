package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	headerStripeSignature = "Stripe-Signature"
	maxWebhookPayload     = 1 << 20
)

// StripeWebhook verifies and dispatches a gateway event. Any 2xx tells the
// gateway to stop redelivering.
// POST /webhooks/stripe
func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayload+1))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(payload) > maxWebhookPayload {
		AbortWithError(c, ErrPayloadTooLarge)
		return
	}

	if err := s.webhooks.Handle(c.Request.Context(), payload, c.GetHeader(headerStripeSignature)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}
