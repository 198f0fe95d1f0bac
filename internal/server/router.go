package server

import (
	"context"
	"net/http"

	"agro-crm/internal/blob"
	"agro-crm/internal/config"
	"agro-crm/internal/consultant"
	"agro-crm/internal/handlers"
	"agro-crm/internal/middleware"
	"agro-crm/internal/models"
	"agro-crm/internal/phenology"
	"agro-crm/internal/service"
	"agro-crm/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const maxUploadMemory = 32 << 20

// Deps are the long-lived resources the router is built from. Redis is
// optional; without Catalog the stage table is read through NewStageCatalog.
type Deps struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	Blobs       blob.Store
	Consultants *consultant.Directory
	Catalog     phenology.Catalog
}

func NewRouter(d Deps) (*gin.Engine, error) {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = maxUploadMemory
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(cfg.AllowedOrigins()),
		middleware.ErrorHandler(),
		middleware.Metrics(),
	)

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.JWTExpirationHours * 3600,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("agrocrm_session", store))

	// services
	catalog := d.Catalog
	if catalog == nil {
		catalog = NewStageCatalog(context.Background(), d.DB, d.Redis, cfg.ScheduleCacheTTL)
	}
	scheduler := phenology.NewScheduler(catalog)
	rnd := &service.Renderer{
		Consultants: d.Consultants,
		URLs:        service.PhotoURLs{PhotoBase: cfg.PhotoPublicBaseURL, PublicBase: cfg.PublicBaseURL},
	}
	authSvc := service.NewAuthService(d.DB, cfg.JWTSecret, cfg.JWTExpirationHours)
	photoSvc := service.NewPhotoService(d.DB, d.Blobs, rnd)
	visitSvc := service.NewVisitService(d.DB, scheduler, d.Consultants, d.Blobs, rnd)
	reportSvc := service.NewReportService(d.DB, photoSvc, scheduler, rnd)
	refSvc := service.NewReferenceService(d.DB, rnd)

	authH := handlers.NewAuthHandler(authSvc)
	visitH := handlers.NewVisitHandler(visitSvc, reportSvc)
	photoH := handlers.NewPhotoHandler(photoSvc)
	refH := handlers.NewReferenceHandler(refSvc, reportSvc)

	// public
	r.GET("/health", handlers.Health(d.DB, d.Redis))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/uploads/*key", photoH.Serve)

	api := r.Group("/api")
	api.GET("/ping", handlers.Ping)
	api.POST("/login", authH.Login)
	api.POST("/logout", authH.Logout)

	auth := api.Group("")
	auth.Use(
		middleware.Authenticate(authSvc),
		middleware.WritesRequire(models.RoleAdmin, models.RoleConsultant),
	)

	auth.GET("/me", authH.Me)

	// entities
	handlers.NewCRUDHandler(service.NewClientService(d.DB, d.Blobs)).Register(auth.Group("/clients"))
	handlers.NewCRUDHandler(service.NewPropertyService(d.DB, d.Blobs)).Register(auth.Group("/properties"))
	handlers.NewCRUDHandler(service.NewPlotService(d.DB, d.Blobs)).Register(auth.Group("/plots"))
	handlers.NewCRUDHandler(service.NewPlantingService(d.DB, d.Blobs)).Register(auth.Group("/plantings"))
	handlers.NewCRUDHandler(service.NewOpportunityService(d.DB)).Register(auth.Group("/opportunities"))
	handlers.NewCRUDHandler(service.NewVarietyService(d.DB)).Register(auth.Group("/varieties"))
	auth.GET("/clients/:id/detail", refH.ClientDetail)

	// visits
	auth.GET("/visits", visitH.List)
	auth.POST("/visits", visitH.Create)
	auth.POST("/visits/bulk", visitH.Bulk)
	auth.GET("/visits/export.xlsx", visitH.Export)
	auth.GET("/visits/:id", visitH.Get)
	auth.PUT("/visits/:id", visitH.Update)
	auth.DELETE("/visits/:id", visitH.Delete)
	auth.GET("/visits/:id/pdf", visitH.PDF)
	auth.GET("/visits/:id/report", visitH.Report)

	auth.GET("/visits/:id/photos", photoH.List)
	auth.POST("/visits/:id/photos", photoH.Upload)
	auth.DELETE("/visits/:id/photos", photoH.DeleteAll)
	auth.PUT("/photos/:id", photoH.UpdateCaption)
	auth.DELETE("/photos/:id", photoH.Delete)

	auth.POST("/visits/:id/products", visitH.AddProduct)
	auth.PUT("/products/:id", visitH.UpdateProduct)
	auth.DELETE("/products/:id", visitH.DeleteProduct)

	// reference data
	auth.GET("/phenology/schedule", refH.Schedule)
	auth.GET("/phenology/schedule.xlsx", refH.ScheduleXLSX)
	auth.GET("/cultures", refH.Cultures)
	auth.GET("/consultants", refH.Consultants)
	auth.GET("/status", refH.Status)

	// administration
	admin := auth.Group("")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.POST("/users", authH.CreateUser)
	admin.GET("/audit", refH.AuditLogs)

	return r, nil
}
