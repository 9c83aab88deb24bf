package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/funding-audit-ledger/internal/platform/permission"
)

const (
	// UserIDHeader carries the authenticated user id set by the upstream gateway
	UserIDHeader = "X-User-ID"
	// UserRoleHeader carries the user's role
	UserRoleHeader = "X-User-Role"

	// ActorKey is the key used to store the actor in the context
	ActorKey = "actor"
)

// Actor reads the caller identity forwarded by the authenticating gateway.
// Missing headers yield an anonymous actor, which the permission gate refuses.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := permission.Actor{
			ID:   strings.TrimSpace(c.GetHeader(UserIDHeader)),
			Role: strings.ToLower(strings.TrimSpace(c.GetHeader(UserRoleHeader))),
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor retrieves the actor from the gin context if present
func GetActor(c *gin.Context) permission.Actor {
	if v, exists := c.Get(ActorKey); exists {
		if actor, ok := v.(permission.Actor); ok {
			return actor
		}
	}
	return permission.Actor{}
}
