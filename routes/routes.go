package routes

import (
	"fmt"
	"net/http"

	"research-repository-api/controllers"
	"research-repository-api/middleware"
	"research-repository-api/models"
	"research-repository-api/services"

	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Auth        *services.AuthService
	Papers      *services.PaperService
	AuthLimiter *middleware.FixedWindowLimiter
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authController := controllers.NewAuthController(deps.Auth)
	paperController := controllers.NewPaperController(deps.Papers)

	api := router.Group("/api")
	{
		// Public routes
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"message": "Research Repository API is running",
			})
		})

		auth := api.Group("/auth")
		{
			limited := auth.Group("", middleware.RateLimit(deps.AuthLimiter, "auth"))
			limited.POST("/register", authController.Register)
			limited.POST("/login", authController.Login)

			auth.GET("/me", middleware.AuthMiddleware(deps.Auth), authController.Me)
		}

		papers := api.Group("/papers")
		{
			// Approved papers are public
			papers.GET("/:id/download", paperController.Download)

			protected := papers.Group("", middleware.AuthMiddleware(deps.Auth))
			protected.GET("", paperController.List)
			protected.POST("/upload",
				middleware.RequireRole(models.RoleStudent, models.RoleFaculty),
				paperController.Upload)
			protected.PUT("/:id/status",
				middleware.RequireRole(models.RoleAdmin),
				paperController.UpdateStatus)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Route not found"})
	})
}

// Options configure the engine around the routes.
type Options struct {
	AllowedOrigins []string
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// are believed when resolving the client IP. Empty trusts none.
	TrustedProxies []string
}

// NewRouter builds the engine with the standard middleware stack.
func NewRouter(deps Dependencies, opts Options) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(opts.AllowedOrigins))
	router.MaxMultipartMemory = services.MaxAttachmentBytes + (1 << 20)

	SetupRoutes(router, deps)
	return router, nil
}
