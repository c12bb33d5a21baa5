package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studentmanagement/internal/access"
)

const claimsKey = "claims"

// Bearer enforces bearer JWT access tokens signed with HS256 and puts the
// parsed claims into the gin context. Refresh tokens are rejected here.
func Bearer(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil || claims.Refresh {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects callers whose token does not carry the given role.
// The authoritative ownership checks still run in the services; this only
// prunes obviously wrong routes early.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ContextClaims(c)
		if !ok || claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}

// ContextClaims returns the claims stored by Bearer.
func ContextClaims(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// ContextActor rebuilds the gate actor from the request's claims.
func ContextActor(c *gin.Context) access.Actor {
	claims, ok := ContextClaims(c)
	if !ok {
		return access.Actor{}
	}
	return access.Actor{ID: claims.Subject, Role: claims.Role}
}
