package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type createPaymentIntentRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

type confirmPaymentIntentRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

// CreatePaymentIntent
// POST /api/billing/payment-intents
func (s *Server) CreatePaymentIntent(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createPaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("planId", "missing_plan_id", "planId is required"))
		return
	}

	result, err := s.checkoutSvc.CreatePlanPayment(c.Request.Context(), userID, strings.TrimSpace(req.PlanID))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, result)
}

// ConfirmPaymentIntent
// POST /api/billing/payment-intents/:id/confirm
func (s *Server) ConfirmPaymentIntent(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req confirmPaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.checkoutSvc.ConfirmPayment(c.Request.Context(), userID, c.Param("id"), strings.TrimSpace(req.PaymentMethodID))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, record)
}

// ListBillingRecords
// GET /api/billing/records
func (s *Server) ListBillingRecords(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	records, err := s.checkoutSvc.ListRecords(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, records)
}

// GetBillingRecord
// GET /api/billing/records/:id
func (s *Server) GetBillingRecord(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	recordID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.checkoutSvc.GetRecord(c.Request.Context(), userID, recordID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, record)
}

// GetBillingReceipt
// GET /api/billing/records/:id/receipt
func (s *Server) GetBillingReceipt(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	recordID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pdf, err := s.checkoutSvc.Receipt(c.Request.Context(), userID, recordID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, recordID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
