package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guestfeedback/pkg/logger"
	"guestfeedback/pkg/metrics"
)

func SetupRoutes(feedbackHandler *FeedbackHandler, healthHandler *HealthHandler, allowOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())

	router.Use(logger.GinLoggerMiddleware())

	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	router.Use(cors.New(corsConfig(allowOrigins)))

	router.GET("/health", healthHandler.Health)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reviews := router.Group("/reviews")
	{
		reviews.POST("", feedbackHandler.Submit)
		reviews.GET("", feedbackHandler.List)
		reviews.GET("/report.pdf", feedbackHandler.ExportPDF)
	}

	return router
}

// corsConfig - страница гостя и отчёт обычно живут на другом домене
func corsConfig(allowOrigins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", logger.RequestIDHeader}
	cfg.ExposeHeaders = []string{"Content-Disposition", logger.RequestIDHeader}

	if len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
	}
	return cfg
}
