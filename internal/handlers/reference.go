package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"agro-crm/internal/service"

	"github.com/gin-gonic/gin"
)

type ReferenceHandler struct {
	refs    *service.ReferenceService
	reports *service.ReportService
}

func NewReferenceHandler(refs *service.ReferenceService, reports *service.ReportService) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, reports: reports}
}

func Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (h *ReferenceHandler) Cultures(c *gin.Context) {
	out, err := h.refs.Cultures(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReferenceHandler) Consultants(c *gin.Context) {
	c.JSON(http.StatusOK, h.refs.Consultants())
}

func (h *ReferenceHandler) Status(c *gin.Context) {
	out, err := h.refs.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReferenceHandler) ClientDetail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.refs.ClientDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AuditLogs lists the newest entries; ?limit caps the count.
func (h *ReferenceHandler) AuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.refs.AuditLogs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Schedule previews the stage visits for ?culture=&planting_date=.
func (h *ReferenceHandler) Schedule(c *gin.Context) {
	out, err := h.reports.Schedule(c.Request.Context(), c.Query("culture"), c.Query("variety"), c.Query("planting_date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ReferenceHandler) ScheduleXLSX(c *gin.Context) {
	var buf bytes.Buffer
	err := h.reports.ScheduleXLSX(c.Request.Context(), c.Query("culture"), c.Query("variety"), c.Query("planting_date"), &buf)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "schedule.xlsx", xlsxContentType)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
