package handlers

import (
	"agro-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// render wraps c.HTML and passes the current user to every template.
func render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if p, ok := middleware.CurrentUser(c); ok {
		data["CurrentUser"] = p
	}
	c.HTML(status, tmpl, data)
}
