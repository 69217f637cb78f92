package handler

import (
	"net/http"

	"github.com/Baaaki/wastetrack/internal/middleware"
	"github.com/Baaaki/wastetrack/internal/models"
	"github.com/Baaaki/wastetrack/internal/service"
	"github.com/Baaaki/wastetrack/internal/utils"
	"github.com/gin-gonic/gin"
)

type Services struct {
	People  *service.PersonService
	Reports *service.ReportService
	Charts  *service.ChartService
}

// RouteOptions carries the optional pieces. Nil limiters and a nil feed are skipped.
type RouteOptions struct {
	Tokens      utils.TokenConfig
	AuthLimiter *middleware.RateLimiter
	APILimiter  *middleware.RateLimiter
	Feed        *ReportFeed
}

// RegisterRoutes mounts the whole API on router.
func RegisterRoutes(router *gin.Engine, svc Services, opts RouteOptions) {
	authHandler := NewAuthHandler(svc.People)
	personHandler := NewPersonHandler(svc.People)
	reportHandler := NewReportHandler(svc.Reports)
	chartHandler := NewChartHandler(svc.Charts)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	auth := router.Group("/api/auth")
	if opts.AuthLimiter != nil {
		auth.Use(opts.AuthLimiter.Middleware())
	}
	{
		auth.POST("/register", middleware.OptionalAuth(opts.Tokens), authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
	}

	// Protected routes (require JWT)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(opts.Tokens))
	if opts.APILimiter != nil {
		protected.Use(opts.APILimiter.Middleware())
	}
	// The token claim is checked first so employees never cost a lookup.
	managerClaim := middleware.RequireRole(models.RoleManager)
	managerAccount := middleware.RequireAccountRole(svc.People, models.RoleManager)
	{
		protected.GET("/wastereports", reportHandler.List)
		protected.GET("/wastereports/:id", reportHandler.Get)
		protected.POST("/wastereports", reportHandler.Create)
		protected.PUT("/wastereports/:id", reportHandler.Update)
		protected.DELETE("/wastereports/:id", managerClaim, managerAccount, reportHandler.Delete)

		protected.GET("/wastereports/co2emission", reportHandler.TotalEmission)
		protected.GET("/wastereports/co2emission/:id", reportHandler.EmissionForReport)
		protected.GET("/wastereports/facilities", reportHandler.Facilities)
		protected.GET("/wastereports/types", reportHandler.WasteTypes)

		protected.GET("/charts/daily", chartHandler.Daily)
		protected.GET("/charts/distribution", chartHandler.Distribution)
		protected.GET("/charts/facilities", chartHandler.Facilities)

		if opts.Feed != nil {
			protected.GET("/ws/reports", opts.Feed.HandleWebSocket)
		}
	}

	people := protected.Group("/people", managerClaim, managerAccount)
	{
		people.GET("", personHandler.List)
		people.GET("/:employeeId", personHandler.Get)
		people.PUT("/:employeeId", personHandler.Update)
		people.DELETE("/:employeeId", personHandler.Delete)
	}
}
