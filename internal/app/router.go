package app

import (
	_ "student_forms/docs"
	"student_forms/internal/config"
	"student_forms/internal/middleware"
	"student_forms/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	// 1. Upstream contract, when this process also plays the registry
	if c.registry != nil {
		a.registerRegistryRoutes(router, c)
	}

	session := router.Group("/")
	session.Use(middleware.SessionMiddleware(cfg))
	{
		// 2. Pages
		a.registerPageRoutes(session, c)

		// 3. JSON API
		a.registerAPIRoutes(session.Group("/api"), c)
	}
}

func (a *App) registerRegistryRoutes(router *gin.Engine, c *controllers) {
	registry := router.Group("/registry")
	{
		registry.POST("/create-user", c.registry.CreateUser)
		registry.GET("/get-form", c.registry.GetForm)
	}
}

func (a *App) registerPageRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/", c.page.Index)
	rg.GET("/login", c.page.LoginPage)
	rg.POST("/login", c.page.Login)
	rg.GET("/form", c.page.FormPage)
	rg.POST("/form/section", c.page.Section)
	rg.POST("/form/retry", c.page.Retry)
	rg.POST("/form/return", c.page.ReturnToLogin)
}

func (a *App) registerAPIRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/session/login", c.form.Login)
	rg.GET("/session", c.form.Session)

	rg.GET("/form", c.form.GetForm)
	rg.PUT("/form/fields/:fieldId", c.form.SetField)
	rg.POST("/form/next", c.form.Next)
	rg.POST("/form/prev", c.form.Previous)
	rg.POST("/form/retry", c.form.Retry)
	rg.POST("/form/return", c.form.ReturnToLogin)
}
