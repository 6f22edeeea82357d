package api

import (
	"errors"
	"net/http"

	"drug-info/providers"
	"drug-info/providers/jsonfile"
	"drug-info/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// setupIngestRoutes startet Batches im Hintergrund. Ein leerer Body nutzt die konfigurierte Quelle,
// sonst wird der Body als JSON-Array oder JSON Lines von Rohdatensätzen gelesen.
func setupIngestRoutes(router *gin.Engine, runner *services.BatchRunner, log *zap.Logger) {
	router.POST("/ingest", func(c *gin.Context) {
		var source providers.Source
		if c.Request.ContentLength != 0 {
			records, err := jsonfile.Decode(c.Request.Body)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
				return
			}
			if len(records) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "request body contains no records"})
				return
			}
			source = &providers.Static{Label: "api", Records: records}
		}

		runID, err := runner.Start(c.Request.Context(), source)
		if err != nil {
			if errors.Is(err, services.ErrBatchRunning) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			log.Error("Batch konnte nicht gestartet werden", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start batch"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "status": "started"})
	})
}
