package handlers

import (
	"fmt"
	"net/http"

	"agro-crm/internal/dto"
	"agro-crm/internal/middleware"
	"agro-crm/internal/service"

	"github.com/gin-gonic/gin"
)

// CRUDHandler exposes a service.CRUD as list/get/create/update/delete routes.
type CRUDHandler[M, C, U, R any] struct {
	svc *service.CRUD[M, C, U, R]
}

func NewCRUDHandler[M, C, U, R any](svc *service.CRUD[M, C, U, R]) *CRUDHandler[M, C, U, R] {
	return &CRUDHandler[M, C, U, R]{svc: svc}
}

// Register mounts the five routes under g.
func (h *CRUDHandler[M, C, U, R]) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *CRUDHandler[M, C, U, R]) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), queryMap(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CRUDHandler[M, C, U, R]) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CRUDHandler[M, C, U, R]) Create(c *gin.Context) {
	var req C
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := h.svc.Create(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *CRUDHandler[M, C, U, R]) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req U
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := h.svc.Update(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CRUDHandler[M, C, U, R]) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rm, err := h.svc.Delete(c.Request.Context(), middleware.ActorID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := h.svc.Entity() + " removed"
	if len(rm.VisitIDs) > 0 {
		msg = fmt.Sprintf("%s removed with %d visit(s)", h.svc.Entity(), len(rm.VisitIDs))
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: msg})
}
