package api

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/server/services"
	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// requireAuth accepts "Authorization: Bearer <access token>" and stores the
// caller in the gin context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)

		var token string
		if n := len(common.BearerPrefix); len(header) > n && strings.EqualFold(header[:n], common.BearerPrefix) {
			token = strings.TrimSpace(header[n:])
		}
		if token == "" {
			s.writeError(c, common.ErrInvalidToken)
			c.Abort()
			return
		}

		claims, err := s.svc.Users.VerifyToken(token)
		if err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}

		c.Set(callerKey, services.Caller{UserID: claims.UserID(), Role: claims.Role})
		c.Next()
	}
}

func callerFrom(c *gin.Context) services.Caller {
	v, _ := c.Get(callerKey)
	caller, _ := v.(services.Caller)
	return caller
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
