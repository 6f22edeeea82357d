// Package api stellt die Lese- und Admin-Endpunkte der Drug-Datenbank bereit.
package api

import (
	"net/http"

	"drug-info/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server bündelt die Abhängigkeiten der Handler.
type Server struct {
	DB     *gorm.DB
	Runner *services.BatchRunner
	Logger *zap.Logger
	APIKey string
}

func apiKeyAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// NewRouter registriert alle Routen.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(s.APIKey))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupDrugRoutes(router, s.DB, s.Logger)
	setupRunRoutes(router, s.DB, s.Logger)
	setupIngestRoutes(router, s.Runner, s.Logger)
	return router
}
