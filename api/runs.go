package api

import (
	"errors"
	"net/http"
	"strconv"

	"drug-info/models"
	"drug-info/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRunRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/runs")

	rg.GET("", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		runs, err := services.ListRuns(c.Request.Context(), db, limit)
		if err != nil {
			log.Error("Laufliste fehlgeschlagen", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, runs)
	})

	rg.GET("/:id", func(c *gin.Context) {
		var run models.IngestionRun
		if err := db.WithContext(c.Request.Context()).Where("id = ?", c.Param("id")).Take(&run).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			log.Error("Lauf-Abfrage fehlgeschlagen", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, run)
	})
}
