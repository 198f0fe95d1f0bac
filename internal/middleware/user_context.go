package middleware

import (
	"agro-crm/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	currentUserKey = "CurrentUser"

	SessionUserID = "user_id"
	SessionEmail  = "email"
	SessionRole   = "role"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID    uint
	Email string
	Role  models.UserRole
}

func setPrincipal(c *gin.Context, p *Principal) {
	c.Set(currentUserKey, p)
}

// CurrentUser returns the caller set by Authenticate.
func CurrentUser(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

// ActorID is the caller's user id for audit entries, nil when anonymous.
func ActorID(c *gin.Context) *uint {
	p, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	id := p.ID
	return &id
}
