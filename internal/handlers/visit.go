package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"agro-crm/internal/apierror"
	"agro-crm/internal/dto"
	"agro-crm/internal/middleware"
	"agro-crm/internal/service"

	"github.com/gin-gonic/gin"
)

type VisitHandler struct {
	visits  *service.VisitService
	reports *service.ReportService
}

func NewVisitHandler(visits *service.VisitService, reports *service.ReportService) *VisitHandler {
	return &VisitHandler{visits: visits, reports: reports}
}

// visitQuery reads the GET /visits filters. "to" is inclusive.
func visitQuery(c *gin.Context) (service.VisitQuery, error) {
	q := service.VisitQuery{
		Month: strings.TrimSpace(c.Query("month")),
		Scope: strings.TrimSpace(c.Query("scope")),
	}
	f := &q.VisitFilter
	var err error
	for name, dst := range map[string]**uint{
		"client_id":     &f.ClientID,
		"property_id":   &f.PropertyID,
		"plot_id":       &f.PlotID,
		"planting_id":   &f.PlantingID,
		"consultant_id": &f.ConsultantID,
	} {
		if *dst, err = queryID(c, name); err != nil {
			return q, err
		}
	}
	f.Status = strings.ToLower(strings.TrimSpace(c.Query("status")))
	if f.From, err = dto.ParseDate(c.Query("from")); err != nil {
		return q, apierror.Validation("invalid from, expected YYYY-MM-DD")
	}
	to, err := dto.ParseDate(c.Query("to"))
	if err != nil {
		return q, apierror.Validation("invalid to, expected YYYY-MM-DD")
	}
	if to != nil {
		next := to.AddDate(0, 0, 1)
		f.To = &next
	}
	return q, nil
}

func (h *VisitHandler) List(c *gin.Context) {
	q, err := visitQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.visits.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *VisitHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.visits.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *VisitHandler) Create(c *gin.Context) {
	var req dto.CreateVisitRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := h.visits.Create(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// Bulk creates plain visits; items that fail validation are skipped.
func (h *VisitHandler) Bulk(c *gin.Context) {
	var req dto.BulkVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return
	}
	items := make([]dto.CreateVisitRequest, 0, len(req.Items))
	for _, it := range req.Items {
		if validate.Struct(&it) == nil {
			items = append(items, it)
		}
	}
	out, err := h.visits.Bulk(c.Request.Context(), middleware.ActorID(c), items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": len(out), "visits": out})
}

func (h *VisitHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateVisitRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := h.visits.Update(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Delete cascades to the planting unless ?scope=visit.
func (h *VisitHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	opts := service.DeleteOptions{SingleOnly: c.Query("scope") == "visit"}
	out, err := h.visits.Delete(c.Request.Context(), middleware.ActorID(c), id, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *VisitHandler) Export(c *gin.Context) {
	q, err := visitQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := h.visits.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := h.reports.ExportVisits(c.Request.Context(), list, &buf); err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "visits.xlsx", xlsxContentType)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// PDF downloads the cumulative report of the visit's cycle.
func (h *VisitHandler) PDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	name, err := h.reports.PDF(c.Request.Context(), id, &buf)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, name, "application/pdf")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// Report renders the cycle report as an HTML page.
func (h *VisitHandler) Report(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cycle, err := h.reports.Cycle(c.Request.Context(), id, false)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, http.StatusOK, "visit_report.html", gin.H{"Report": cycle})
}

// ── Products ─────────────────────────────────────────────────────────────────

func (h *VisitHandler) AddProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductInput
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := h.visits.AddProduct(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *VisitHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := h.visits.UpdateProduct(c.Request.Context(), middleware.ActorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *VisitHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.visits.DeleteProduct(c.Request.Context(), middleware.ActorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "product removed"})
}
