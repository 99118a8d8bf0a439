package server

import (
	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/railzwaylabs/modelrail/internal/subscription/domain"
)

type createPlanRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency" binding:"required,len=3"`
	DurationDays int     `json:"duration_days"`
}

// ListPlans
// GET /api/plans
func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planSvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, plans)
}

// CreatePlan
// POST /api/admin/plans
func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plan, err := s.planSvc.Create(c.Request.Context(), subscriptiondomain.CreatePlanRequest{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Currency:     req.Currency,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, plan)
}
