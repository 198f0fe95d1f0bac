package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"agro-crm/internal/apierror"
	"agro-crm/internal/dto"
	"agro-crm/internal/middleware"
	"agro-crm/internal/service"

	"github.com/gin-gonic/gin"
)

type PhotoHandler struct {
	photos *service.PhotoService
}

func NewPhotoHandler(photos *service.PhotoService) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// formValue returns values[i], or "" when the parallel list is shorter.
func formValue(values []string, i int) string {
	if i < len(values) {
		return strings.TrimSpace(values[i])
	}
	return ""
}

func formFloat(values []string, i int) (*float64, error) {
	raw := formValue(values, i)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Upload stores photos[] with the parallel captions[], latitude[] and longitude[] fields.
func (h *PhotoHandler) Upload(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("expected multipart form"))
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		files = form.File["photos[]"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, apierror.New("no files sent"))
		return
	}
	values := func(name string) []string {
		if v := form.Value[name]; len(v) > 0 {
			return v
		}
		return form.Value[name+"[]"]
	}
	captions, lats, lons := values("captions"), values("latitude"), values("longitude")

	uploads := make([]service.PhotoUpload, 0, len(files))
	var opened []io.Closer
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for i, fh := range files {
		lat, err := formFloat(lats, i)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("latitude must be numeric"))
			return
		}
		lon, err := formFloat(lons, i)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("longitude must be numeric"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			_ = c.Error(err)
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, service.PhotoUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
			Caption:     formValue(captions, i),
			Latitude:    lat,
			Longitude:   lon,
		})
	}

	out, err := h.photos.Upload(c.Request.Context(), middleware.ActorID(c), id, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *PhotoHandler) List(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	out, err := h.photos.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *PhotoHandler) UpdateCaption(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCaptionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := h.photos.UpdateCaption(c.Request.Context(), middleware.ActorID(c), id, req.Caption)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *PhotoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.photos.Delete(c.Request.Context(), middleware.ActorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "photo removed"})
}

func (h *PhotoHandler) DeleteAll(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	n, err := h.photos.DeleteAll(c.Request.Context(), middleware.ActorID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "photos removed", "removed": n})
}

// Serve streams a stored object for GET /uploads/*key.
func (h *PhotoHandler) Serve(c *gin.Context) {
	info, rc, err := h.photos.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()
	ct := info.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	size := info.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, ct, rc, nil)
}
