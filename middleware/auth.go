package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"servicesync-server/models"
	"servicesync-server/services"
	"servicesync-server/types"
	"servicesync-server/utils"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxClaims = "claims"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (*types.Claims, error)
}

// AuthMiddleware resolves the caller from the bearer token. It reads only
// the token: a missing or malformed header is rejected before any handler
// or database work runs.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, fmt.Errorf("%w: authorization header required", services.ErrTokenAbsent))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
			utils.RespondError(c, fmt.Errorf("%w: token must be in format: Bearer <token>", services.ErrTokenInvalid))
			return
		}

		claims, err := tokens.VerifyAccess(strings.TrimSpace(tokenString))
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		c.Set(ctxClaims, claims)
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// Authorize checks the caller's role against policy for action. It must run
// after AuthMiddleware.
func Authorize(policy services.Policy, action services.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			utils.RespondError(c, services.ErrTokenAbsent)
			return
		}
		if err := policy.Authorize(actor.Role, action); err != nil {
			utils.RespondError(c, err)
			return
		}
		c.Next()
	}
}

// CurrentActor returns the authenticated caller set by AuthMiddleware.
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	id := c.GetUint(ctxUserID)
	role, ok := c.Get(ctxRole)
	if id == 0 || !ok {
		return services.Actor{}, false
	}
	r, ok := role.(models.UserRole)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{ID: id, Role: r}, true
}
