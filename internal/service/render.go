package service

import (
	"fmt"
	"strings"

	"agro-crm/internal/consultant"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"
)

// PhotoURLs builds public photo URLs. PhotoBase is the CDN or bucket URL;
// when empty photos are streamed by the API under /uploads/. PublicBase is
// this API's external URL, prefixed to relative /uploads/ paths.
type PhotoURLs struct {
	PhotoBase  string
	PublicBase string
}

// Stored is the URL persisted for a newly uploaded key.
func (u PhotoURLs) Stored(key string) string {
	if u.PhotoBase != "" {
		return strings.TrimRight(u.PhotoBase, "/") + "/" + key
	}
	return "/uploads/" + key
}

// Resolve turns a stored URL into one a client can fetch.
func (u PhotoURLs) Resolve(stored string) string {
	switch {
	case stored == "":
		return ""
	case strings.HasPrefix(stored, "http://"), strings.HasPrefix(stored, "https://"):
		return stored
	case strings.HasPrefix(stored, "/uploads/") && u.PublicBase != "":
		return strings.TrimRight(u.PublicBase, "/") + stored
	}
	return stored
}

// Renderer converts visit models into responses.
type Renderer struct {
	Consultants *consultant.Directory
	URLs        PhotoURLs
}

func (r *Renderer) Photo(p *models.Photo) dto.PhotoResponse {
	return dto.PhotoResponse{
		ID:        p.ID,
		VisitID:   p.VisitID,
		URL:       r.URLs.Resolve(p.URL),
		Caption:   p.Caption,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}

func renderProduct(p *models.VisitProduct) dto.ProductResponse {
	return dto.ProductResponse{
		ID:              p.ID,
		VisitID:         p.VisitID,
		ProductName:     p.ProductName,
		Dose:            p.Dose,
		Unit:            p.Unit,
		ApplicationDate: dto.FormatDate(p.ApplicationDate),
	}
}

// clientName falls back to a placeholder when the client was not preloaded.
func clientName(v *models.Visit) string {
	if v.Client.ID != 0 && v.Client.Name != "" {
		return v.Client.Name
	}
	return fmt.Sprintf("Client %d", v.ClientID)
}

// cropOf returns culture and variety, inherited from the planting when the visit lacks them.
func cropOf(v *models.Visit) (string, string) {
	culture, variety := v.Culture, v.Variety
	if v.Planting != nil {
		if culture == "" {
			culture = v.Planting.Culture
		}
		if variety == "" {
			variety = v.Planting.Variety
		}
	}
	return culture, variety
}

func (r *Renderer) Visit(v *models.Visit) dto.VisitResponse {
	culture, variety := cropOf(v)
	out := dto.VisitResponse{
		ID:             v.ID,
		ClientID:       v.ClientID,
		ClientName:     clientName(v),
		PropertyID:     v.PropertyID,
		PlotID:         v.PlotID,
		PlantingID:     v.PlantingID,
		ConsultantID:   v.ConsultantID,
		ConsultantName: r.Consultants.NameOf(v.ConsultantID),
		Date:           dto.FormatDate(v.Date),
		Kind:           string(v.Kind),
		Status:         string(v.Status),
		Checklist:      v.Checklist,
		Diagnosis:      v.Diagnosis,
		Recommendation: v.Recommendation,
		ObservedStage:  v.ObservedStage,
		Culture:        culture,
		Variety:        variety,
		Latitude:       v.Latitude,
		Longitude:      v.Longitude,
		CreatedAt:      v.CreatedAt,
		Photos:         make([]dto.PhotoResponse, 0, len(v.Photos)),
		Products:       make([]dto.ProductResponse, 0, len(v.Products)),
	}
	if out.Status == "" {
		out.Status = string(models.VisitPlanned)
	}
	for i := range v.Photos {
		out.Photos = append(out.Photos, r.Photo(&v.Photos[i]))
	}
	for i := range v.Products {
		out.Products = append(out.Products, renderProduct(&v.Products[i]))
	}
	return out
}

func (r *Renderer) Visits(list []models.Visit) []dto.VisitResponse {
	out := make([]dto.VisitResponse, 0, len(list))
	for i := range list {
		out = append(out, r.Visit(&list[i]))
	}
	return out
}
