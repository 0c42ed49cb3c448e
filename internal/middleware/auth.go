package middleware

import (
	"net/http"
	"strings"
	"time"

	"stockreport/internal/model"
	"stockreport/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	IdentityKey       = "identity"
	AccessTokenCookie = "access_token"
)

// TokenParser turns a bearer token into the caller's identity.
type TokenParser interface {
	ParseToken(token string) (model.Identity, error)
}

// SetTokenCookie stores the access token as an HttpOnly cookie. Cross-site
// deployments need secure=true, which also switches SameSite to None.
func SetTokenCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

func ClearTokenCookie(c *gin.Context, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, response.Failure(http.StatusUnauthorized, "auth", msg, false))
}

// RequireAuth validates the token from the access_token cookie or the
// Authorization header and stores the caller's model.Identity on the context.
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(AccessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				unauthorized(c, "Not authorized, no token")
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(c, "Invalid authorization format. Expected 'Bearer <token>'")
				return
			}
			tokenString = parts[1]
		}

		identity, err := parser.ParseToken(tokenString)
		if err != nil {
			unauthorized(c, "Not authorized, token failed")
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed. It must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			unauthorized(c, "Not authorized, no token")
			return
		}
		if !allowed[identity.Role] {
			msg := "User role " + identity.Role + " is not authorized to access this route"
			c.AbortWithStatusJSON(http.StatusForbidden, response.Failure(http.StatusForbidden, "forbidden", msg, false))
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity stored by RequireAuth.
func GetIdentity(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}
