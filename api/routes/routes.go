package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quicktools/file-processor/api/handlers"
	"github.com/quicktools/file-processor/api/middleware"
	"github.com/quicktools/file-processor/internal/ratelimit"
)

// SetupRoutes wires all HTTP routes.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, limiter *ratelimit.Limiter) {
	r.Use(middleware.CORS())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	tools := v1.Group("/tools")
	{
		// Submission endpoints sit behind the rate limiter; status and
		// download polling do not burn submission slots.
		tools.POST("/process", middleware.RateLimit(limiter), h.Tool.ProcessTool)
		tools.POST("/process/sync", middleware.RateLimit(limiter), h.Tool.ProcessSync)
		tools.GET("/status/:taskId", h.Tool.GetStatus)
		tools.GET("/download/:taskId", h.Tool.DownloadResult)
		tools.DELETE("/task/:taskId", h.Tool.CancelTask)
	}
}
