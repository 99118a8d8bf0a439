package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	accountdomain "github.com/railzwaylabs/modelrail/internal/account/domain"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-ID"

	contextRequestIDKey = "request_id"
	contextUserIDKey    = "user_id"
	contextRoleKey      = "role"
)

// RequestID tags every request with a ULID, reusing a well-formed incoming
// header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if _, err := ulid.ParseStrict(id); err != nil {
			id = ulid.Make().String()
		}
		c.Set(contextRequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString(contextRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

type initializer interface {
	Ensure(ctx context.Context) error
}

// EnsureInitialized blocks the request until first-run initialization has
// finished.
func (s *Server) EnsureInitialized() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.initializer.Ensure(c.Request.Context()); err != nil {
			_ = c.Error(err)
			AbortWithError(c, ErrNotReady)
			return
		}
		c.Next()
	}
}

// RequireAuth accepts a bearer token issued by Login.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.tokens.Parse(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Set(contextRoleKey, claims.Role)
		c.Next()
	}
}

// RequirePermission checks the caller's stored role against the request
// path. The role claim in the token is not trusted here, so a demotion takes
// effect on the next request.
func (s *Server) RequirePermission() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		user, err := s.accountSvc.Get(c.Request.Context(), userID)
		if errors.Is(err, accountdomain.ErrUserNotFound) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}

		role := string(user.Role)
		if claimed := c.GetString(contextRoleKey); claimed != role {
			s.log.Info("token role differs from stored role",
				zap.String("user_id", userID.String()),
				zap.String("token_role", claimed),
				zap.String("role", role))
			c.Set(contextRoleKey, role)
		}
		if err := s.authorizer.Authorize(role, c.Request.URL.Path, c.Request.Method); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func userIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(snowflake.ID)
	return id, ok && id != 0
}
