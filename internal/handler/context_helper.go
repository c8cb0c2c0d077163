package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-surveillance-api/internal/middleware"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

// SessionHeader lets clients pin a session without repeating the query parameter.
const SessionHeader = "X-Session-ID"

type sessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (string, error)
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// resolveSession picks the sessionId query parameter, then the session header,
// then the active session.
func resolveSession(c *gin.Context, sessions sessionResolver) (string, error) {
	return sessions.Resolve(c.Request.Context(), requestedSession(c))
}

func requestedSession(c *gin.Context) string {
	if requested := strings.TrimSpace(c.Query("sessionId")); requested != "" {
		return requested
	}
	return strings.TrimSpace(c.GetHeader(SessionHeader))
}
