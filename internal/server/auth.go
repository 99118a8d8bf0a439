package server

import (
	"time"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/railzwaylabs/modelrail/internal/account/domain"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      *accountdomain.User `json:"user"`
}

// Login
// POST /api/auth/login
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	user, err := s.accountSvc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	token, expiresAt, err := s.tokens.Issue(ctx, user.ID, string(user.Role))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, loginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// Me
// GET /api/me
func (s *Server) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.accountSvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, user)
}
