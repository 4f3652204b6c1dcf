package gateway

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
)

const (
	userKey   = "user"
	claimsKey = "claims"
)

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// authMiddleware resolves the bearer token to the calling user.
func (g *Gateway) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		user, claims, err := g.services.Users.Authenticate(c.Request.Context(), token)
		if err != nil {
			g.fail(c, err)
			return
		}
		c.Set(userKey, user)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (g *Gateway) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin() {
			g.fail(c, errs.Forbidden("Not authorized as an admin"))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}

func currentClaims(c *gin.Context) *auth.Claims {
	return c.MustGet(claimsKey).(*auth.Claims)
}

func callerID(c *gin.Context) string {
	return currentUser(c).ID.Hex()
}
