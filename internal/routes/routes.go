package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tomanage/internal/handlers"
	"tomanage/internal/middleware"
)

type Handlers struct {
	Tasks           *handlers.TaskHandler
	Reports         *handlers.ReportHandler
	Integrations    *handlers.IntegrationsHandler
	Recommendations *handlers.RecommendationHandler
	Chat            *handlers.ChatHandler
	Profile         *handlers.ProfileHandler
}

func SetupRoutes(r *gin.Engine, jwtSecret []byte, h Handlers) *gin.Engine {
	// ---- public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ---- protected
	r.Use(middleware.AuthMiddleware(jwtSecret))

	tasks := r.Group("/tasks")
	{
		tasks.GET("", h.Tasks.List)
		tasks.POST("", h.Tasks.Create)
		tasks.POST("/extract", h.Tasks.Extract)
		tasks.GET("/report", h.Reports.TaskReport)
		tasks.PUT("/:id", h.Tasks.Update)
		tasks.DELETE("/:id", h.Tasks.Delete)
		tasks.POST("/:id/toggle", h.Tasks.Toggle)
	}

	r.POST("/sync", h.Integrations.Sync)
	tt := r.Group("/ticktick")
	{
		tt.GET("/auth-url", h.Integrations.AuthURL)
		tt.POST("/exchange", h.Integrations.Exchange)
		tt.GET("/status", h.Integrations.Status)
		tt.DELETE("/connection", h.Integrations.Disconnect)
		tt.GET("/tasks", h.Integrations.Tasks)
	}

	r.GET("/recommendations", h.Recommendations.Recommend)
	r.POST("/recommendations/deliver", h.Recommendations.Deliver)
	r.POST("/chat", h.Chat.Chat)

	r.GET("/context", h.Profile.Context)
	r.GET("/profile", h.Profile.Profile)
	r.GET("/preferences", h.Profile.Preferences)
	r.PUT("/preferences", h.Profile.SavePreferences)
	r.GET("/patterns", h.Profile.Patterns)
	r.GET("/patterns/:type", h.Profile.Pattern)
	r.PUT("/patterns/:type", h.Profile.SavePattern)

	analytics := r.Group("/analytics")
	{
		analytics.GET("", h.Profile.Analytics)
		analytics.POST("", h.Profile.SaveAnalytics)
		analytics.DELETE("", h.Profile.ClearAnalytics)
	}
	return r
}
