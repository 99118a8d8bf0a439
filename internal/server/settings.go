package server

import (
	"github.com/gin-gonic/gin"
	billingdomain "github.com/railzwaylabs/modelrail/internal/billing/domain"
)

// GetPaymentSettings
// GET /api/admin/settings/payment
func (s *Server) GetPaymentSettings(c *gin.Context) {
	view, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, view)
}

// UpdatePaymentSettings
// PUT /api/admin/settings/payment
func (s *Server) UpdatePaymentSettings(c *gin.Context) {
	var req billingdomain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.settingsSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, view)
}
