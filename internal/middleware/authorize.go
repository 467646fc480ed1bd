package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
	"github.com/univ-hub/attendance-api/pkg/response"
)

// RequireCapability gates a route on the actor holding every listed
// capability. Services still re-check at the operation boundary; this
// middleware only rejects early with a uniform error shape.
func RequireCapability(capabilities ...models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		actor := claims.Actor()
		for _, capability := range capabilities {
			if !actor.Can(capability) {
				response.Error(c, appErrors.ErrForbidden)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
