package routes

import (
	"net/http"
	"slices"
	"time"

	"civicreport-be/config"
	"civicreport-be/controllers"
	"civicreport-be/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps are the handlers mounted by NewRouter.
type Deps struct {
	Config      config.Config
	Log         zerolog.Logger
	Issues      *controllers.IssueController
	Departments *controllers.DepartmentController
	Uploads     *controllers.UploadController
	// IssueLimiter is optional.
	IssueLimiter gin.HandlerFunc
}

// NewRouter builds the gin engine with middleware, API routes and static files.
func NewRouter(d Deps) *gin.Engine {
	if d.Config.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(cors.New(corsConfig(d.Config.AllowedOrigins)))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	IssueRoutes(r, d.Issues, d.IssueLimiter)
	DepartmentRoutes(r, d.Departments)
	if d.Uploads != nil {
		UploadRoutes(r, d.Uploads)
	}
	if dir := d.Config.Static.ClientDir; dir != "" {
		r.Static("/client", dir)
	}
	if dir := d.Config.Static.PortalDir; dir != "" {
		r.Static("/portal", dir)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
