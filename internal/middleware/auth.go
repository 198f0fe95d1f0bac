package middleware

import (
	"net/http"
	"strings"

	"agro-crm/internal/apierror"
	"agro-crm/internal/models"
	"agro-crm/internal/service"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Authenticate accepts a Bearer token, or failing that the session cookie set
// at login, so report pages opened in a browser work without a header.
func Authenticate(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
				return
			}
			claims, err := auth.ParseToken(strings.TrimSpace(raw))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
				return
			}
			setPrincipal(c, &Principal{ID: claims.UserID, Email: claims.Email, Role: claims.Role})
			c.Next()
			return
		}

		sess := sessions.Default(c)
		uid, ok := sess.Get(SessionUserID).(uint)
		if !ok || uid == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}
		role, _ := sess.Get(SessionRole).(string)
		email, _ := sess.Get(SessionEmail).(string)
		setPrincipal(c, &Principal{ID: uid, Email: email, Role: models.UserRole(role)})
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		p, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}
		if _, ok := roleSet[p.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// WritesRequire lets every authenticated role read and restricts the other
// methods to roles.
func WritesRequire(roles ...models.UserRole) gin.HandlerFunc {
	check := RequireRole(roles...)
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			check(c)
		}
	}
}
