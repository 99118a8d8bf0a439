package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	aiaccountdomain "github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
)

type batchHealthCheckRequest struct {
	AccountIDs []string `json:"accountIds"`
}

// ListAIAccounts
// GET /api/admin/ai-accounts
func (s *Server) ListAIAccounts(c *gin.Context) {
	accounts, err := s.aiAccountSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, accounts)
}

// CreateAIAccount
// POST /api/admin/ai-accounts
func (s *Server) CreateAIAccount(c *gin.Context) {
	var req aiaccountdomain.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.aiAccountSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, account)
}

// GetAIAccount
// GET /api/admin/ai-accounts/:id
func (s *Server) GetAIAccount(c *gin.Context) {
	account, err := s.aiAccountSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, account)
}

// BatchHealthCheck probes the listed accounts one after another. The summary
// is returned at the top level of the body.
// POST /api/admin/ai-accounts/health-check
func (s *Server) BatchHealthCheck(c *gin.Context) {
	var req batchHealthCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("accountIds", "invalid_account_ids", "accountIds must be a non-empty array"))
		return
	}
	if len(req.AccountIDs) == 0 {
		AbortWithError(c, newValidationError("accountIds", "invalid_account_ids", "accountIds must be a non-empty array"))
		return
	}

	result, err := s.aiAccountSvc.BatchCheck(c.Request.Context(), req.AccountIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
